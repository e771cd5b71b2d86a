package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gitzhang10/auditchain/coordinator"
)

type action int

const (
	actionSend action = iota
	actionHelp
	actionExit
	actionNone
)

var errUnknownCommand = errors.New("command does not exist, enter \"help\" to list the available commands")

// aliases maps the accepted spellings of every command to its kind.
var aliases = map[string]string{
	"propose":      coordinator.KindPropose,
	"add":          coordinator.KindPropose,
	"approve":      coordinator.KindApprove,
	"checked":      coordinator.KindApprove,
	"view":         coordinator.KindView,
	"verify":       coordinator.KindVerify,
	"report":       coordinator.KindReport,
	"transactions": coordinator.KindReport,
	"reconcile":    coordinator.KindReconcile,
	"update":       coordinator.KindReconcile,
	"adjust":       coordinator.KindAdjust,
	"list":         coordinator.KindList,
}

// parseLine splits a typed line into a command. Argument counts are checked
// by the server; only the command word is resolved here.
func parseLine(line string) (coordinator.Command, action, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return coordinator.Command{}, actionNone, nil
	}
	word := strings.ToLower(fields[0])
	switch word {
	case "help":
		return coordinator.Command{}, actionHelp, nil
	case "exit", "quit":
		return coordinator.Command{}, actionExit, nil
	}
	kind, ok := aliases[word]
	if !ok {
		return coordinator.Command{}, actionNone, fmt.Errorf("%w: %q", errUnknownCommand, fields[0])
	}
	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}
	return coordinator.Command{Kind: kind, Args: args}, actionSend, nil
}

const helpText = `exit: Disconnects from the server
help: Lists the available commands
list: Lists all the current online users
view: Shows your entire blockchain
verify: Checks the validity of your blockchain
report (transactions): Lists the incoming and outgoing transactions of every account
propose (add) <Sales|Expenditure> <to account> <amount>: Proposes a transaction to the other party
approve (checked): Mines the pending transaction into every blockchain
reconcile (update): Replaces every blockchain with the longest one
adjust: Compares the last Sales and Expenditure blocks and sends the tax due to CBDT`
