package main

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gitzhang10/auditchain/chain"
	"github.com/gitzhang10/auditchain/coordinator"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		cmd  coordinator.Command
		act  action
	}{
		{"", coordinator.Command{}, actionNone},
		{"   ", coordinator.Command{}, actionNone},
		{"help", coordinator.Command{}, actionHelp},
		{"exit", coordinator.Command{}, actionExit},
		{"view", coordinator.Command{Kind: coordinator.KindView}, actionSend},
		{"transactions", coordinator.Command{Kind: coordinator.KindReport}, actionSend},
		{"checked", coordinator.Command{Kind: coordinator.KindApprove}, actionSend},
		{"update", coordinator.Command{Kind: coordinator.KindReconcile}, actionSend},
		{"add Sales bob 100", coordinator.Command{Kind: coordinator.KindPropose, Args: []string{"Sales", "bob", "100"}}, actionSend},
		{"  propose  Expenditure   alice 2.5 ", coordinator.Command{Kind: coordinator.KindPropose, Args: []string{"Expenditure", "alice", "2.5"}}, actionSend},
		{"VERIFY", coordinator.Command{Kind: coordinator.KindVerify}, actionSend},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, act, err := parseLine(tt.line)
			if err != nil {
				t.Fatal(err)
			}
			if act != tt.act || !reflect.DeepEqual(cmd, tt.cmd) {
				t.Fatalf("got %+v (%d), expected %+v (%d)", cmd, act, tt.cmd, tt.act)
			}
		})
	}
}

func TestParseLineUnknown(t *testing.T) {
	if _, _, err := parseLine("mint 100"); !errors.Is(err, errUnknownCommand) {
		t.Fatalf("expected errUnknownCommand, got %v", err)
	}
}

func TestEveryKindHasAnAlias(t *testing.T) {
	kinds := map[string]bool{}
	for _, kind := range aliases {
		kinds[kind] = true
	}
	for _, kind := range []string{
		coordinator.KindPropose, coordinator.KindApprove, coordinator.KindView, coordinator.KindVerify,
		coordinator.KindReport, coordinator.KindReconcile, coordinator.KindAdjust, coordinator.KindList,
	} {
		if !kinds[kind] {
			t.Fatalf("no alias reaches %s", kind)
		}
	}
}

func TestTotalsTable(t *testing.T) {
	data := totalsTable([]chain.AccountTotal{
		{Account: "B", Incoming: 100, Outgoing: -30},
		{Account: "A", Incoming: 30, Outgoing: -100.5},
	})
	want := [][]string{
		{"Account", "Incoming", "Outgoing"},
		{"B", "100", "-30"},
		{"A", "30", "-100.5"},
	}
	if !reflect.DeepEqual([][]string(data), want) {
		t.Fatalf("got %v, expected %v", data, want)
	}
}
