// Command ledgerctl is the interactive terminal client of the auditchain server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/gitzhang10/auditchain/conn"
	"github.com/gitzhang10/auditchain/coordinator"
)

const defaultAddr = "127.0.0.1:8123"

func main() {
	timeoutFlag := flag.Uint("timeout", 10, "dial timeout in seconds")
	flag.Parse()

	addr := defaultAddr
	if flag.NArg() > 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [OPTIONS] [server address]\n", os.Args[0])
		os.Exit(1)
	}
	if flag.NArg() == 1 {
		addr = flag.Arg(0)
	}

	// Create a new slog logger with the default PTerm logger
	logger := slog.New(pterm.NewSlogHandler(&pterm.DefaultLogger))
	pterm.Print("\n")
	if err := printBanner(); err != nil {
		logger.Error(err.Error())
	}

	netConn, err := conn.Dial(addr, time.Duration(*timeoutFlag)*time.Second)
	if err != nil {
		logger.Error("could not reach the server", "address", addr, "error", err)
		os.Exit(1)
	}
	defer netConn.Release()

	name, ok := login(netConn, logger)
	if !ok {
		os.Exit(1)
	}

	responses := make(chan coordinator.Response)
	closed := make(chan struct{})
	go readLoop(netConn, responses, closed, logger)

	for {
		line, _ := pterm.DefaultInteractiveTextInput.WithDefaultText(name).WithDefaultValue("").Show()
		cmd, act, err := parseLine(line)
		if err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
		switch act {
		case actionNone:
			continue
		case actionHelp:
			printHelp()
			continue
		case actionExit:
			pterm.Println("Bye")
			return
		}

		if err := conn.SendMsg(netConn, coordinator.CommandTag, &cmd); err != nil {
			logger.Error("fail to send the command", "error", err)
			return
		}
		select {
		case res := <-responses:
			printResponse(res)
		case <-closed:
			logger.Warn("the server closed the connection")
			return
		}
	}
}

// login asks for credentials until the server accepts them.
func login(netConn *conn.NetConn, logger *slog.Logger) (string, bool) {
	for {
		name, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your user name").Show()
		password, _ := pterm.DefaultInteractiveTextInput.WithDefaultText("Enter your password").WithMask("*").Show()
		pterm.Println()

		if err := conn.SendMsg(netConn, coordinator.LoginTag, &coordinator.Login{Name: name, Password: password}); err != nil {
			logger.Error("fail to send the login", "error", err)
			return "", false
		}
		_, msg, err := conn.ReceiveMsg(netConn, coordinator.ReflectedTypesMap)
		if err != nil {
			logger.Error("fail to read the login response", "error", err)
			return "", false
		}
		res, ok := msg.(coordinator.Response)
		if !ok {
			logger.Error("unexpected message during login", "type", fmt.Sprintf("%T", msg))
			return "", false
		}
		printResponse(res)
		if res.OK {
			return name, true
		}
	}
}

// readLoop routes responses to the prompt and prints notifications as they arrive.
func readLoop(netConn *conn.NetConn, responses chan<- coordinator.Response, closed chan<- struct{}, logger *slog.Logger) {
	defer close(closed)
	for {
		_, msg, err := conn.ReceiveMsg(netConn, coordinator.ReflectedTypesMap)
		if err != nil {
			logger.Debug("connection closed", "error", err)
			return
		}
		switch m := msg.(type) {
		case coordinator.Response:
			responses <- m
		case coordinator.Notification:
			printNotification(m)
		default:
			logger.Warn("unexpected message from the server", "type", fmt.Sprintf("%T", msg))
		}
	}
}
