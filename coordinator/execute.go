package coordinator

import (
	"fmt"
	"math"
	"strconv"
)

const proposeUsage = "usage: propose <Sales|Expenditure> <to account> <amount>"

// Execute runs cmd on behalf of participant. Every failure is reported in
// the returned Result and leaves the ledger untouched.
func (n *Node) Execute(participant string, cmd Command) Result {
	res, err := n.execute(participant, cmd)
	if err != nil {
		n.logger.Debug("command failed", "participant", participant, "command", cmd.Kind, "error", err)
		return failed(err)
	}
	return res
}

func (n *Node) execute(participant string, cmd Command) (Result, error) {
	if cmd.Kind != KindPropose && len(cmd.Args) != 0 {
		return Result{}, fmt.Errorf("%w: %s takes no arguments", ErrMalformedCommand, cmd.Kind)
	}
	switch cmd.Kind {
	case KindPropose:
		if len(cmd.Args) != 3 {
			return Result{}, fmt.Errorf("%w: %s", ErrMalformedCommand, proposeUsage)
		}
		amount, err := parseAmount(cmd.Args[2])
		if err != nil {
			return Result{}, err
		}
		return n.Propose(participant, cmd.Args[0], cmd.Args[1], amount)
	case KindApprove:
		return n.Approve(participant)
	case KindView:
		text, err := n.View(participant)
		return Result{OK: err == nil, Text: text}, err
	case KindVerify:
		text, _, err := n.Verify(participant)
		return Result{OK: err == nil, Text: text}, err
	case KindReport:
		return n.report(participant)
	case KindReconcile:
		return n.Reconcile(), nil
	case KindAdjust:
		return n.Adjust(participant)
	case KindList:
		return n.list(), nil
	default:
		return Result{}, fmt.Errorf("%w: command %q does not exist", ErrMalformedCommand, cmd.Kind)
	}
}

func parseAmount(s string) (float64, error) {
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("%w: amount %q is not a finite number", ErrMalformedCommand, s)
	}
	return amount, nil
}
