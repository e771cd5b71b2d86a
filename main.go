package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gitzhang10/auditchain/config"
	"github.com/gitzhang10/auditchain/coordinator"
)

var conf *config.Config
var err error

func init() {
	conf, err = config.LoadConfig("", "config")
	if err != nil {
		panic(err)
	}
}

func main() {
	node := coordinator.NewNode(conf)
	if err = node.Restore(); err != nil {
		panic(err)
	}
	if err = node.StartListen(); err != nil {
		panic(err)
	}
	addr, _ := node.Addr()
	fmt.Printf("%s is accepting participants on %s\n", conf.Name, addr)
	go node.HandleMsgLoop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	_ = node.Close()
}
