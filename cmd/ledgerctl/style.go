package main

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/gitzhang10/auditchain/chain"
	"github.com/gitzhang10/auditchain/coordinator"
)

func printBanner() error {
	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("Audit", pterm.FgCyan.ToStyle()),
		putils.LettersFromStringWithStyle("Chain", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err != nil {
		return err
	}
	pterm.Print(title)
	pterm.Info.Println(`Enter "help" to list all the available commands`)
	return nil
}

func printHelp() {
	pbox := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTopPadding(1).WithBottomPadding(1)
	pbox.WithTitle(pterm.LightYellow("|AVAILABLE COMMANDS|")).WithTitleTopCenter().Println(helpText)
}

func printResponse(res coordinator.Response) {
	text := strings.TrimRight(res.Text, "\n")
	if !res.OK {
		pterm.Error.Println(strings.TrimPrefix(text, "[!] "))
		return
	}
	if len(res.Totals) == 0 {
		pterm.Success.Println(text)
		return
	}
	title, _, _ := strings.Cut(text, "\n")
	pterm.Success.Println(title)
	if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(totalsTable(res.Totals)).Render(); err != nil {
		pterm.Println(text)
	}
}

// totalsTable lays out one row per account. Incoming and outgoing stay separate.
func totalsTable(totals []chain.AccountTotal) pterm.TableData {
	data := pterm.TableData{{"Account", "Incoming", "Outgoing"}}
	for _, t := range totals {
		data = append(data, []string{t.Account, chain.FormatAmount(t.Incoming), chain.FormatAmount(t.Outgoing)})
	}
	return data
}

func printNotification(n coordinator.Notification) {
	pbox := pterm.DefaultBox.WithLeftPadding(2).WithRightPadding(2).WithTopPadding(1).WithBottomPadding(1)
	title := pterm.LightGreen("|NOTICE FROM " + strings.ToUpper(n.From) + "|")
	pterm.Println()
	pbox.WithTitle(title).WithTitleTopCenter().Println(strings.TrimRight(n.Text, "\n"))
}
