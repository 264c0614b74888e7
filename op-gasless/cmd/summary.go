package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/mantlenetworkio/gasless/op-gasless/config"
	"github.com/mantlenetworkio/gasless/op-gasless/gasless"
)

// writeSummary prints what is about to be relayed, so it can be reviewed before confirming.
func writeSummary(w io.Writer, cfg *config.Config, chainCtx *gasless.ChainContext, from fmt.Stringer, strategy gasless.CalldataStrategy) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.AppendBulk([][]string{
		{"Flow", strategy.Name()},
		{"Account", from.String()},
		{"Chain ID", chainCtx.ChainID().String()},
		{"Forwarder", cfg.Forwarder.Hex()},
		{"Recipient", cfg.Recipient.Hex()},
		{"Domain", fmt.Sprintf("%s (version %s)", cfg.DomainName, cfg.DomainVersion)},
		{"Type", fmt.Sprintf("%s(...,%s", cfg.TypeName, cfg.TypeSuffixData)},
		{"Relayer", cfg.RelayerRPC},
	})
	if withdraw, ok := strategy.(gasless.FaucetWithdrawCall); ok && withdraw.Amount != nil {
		table.Append([]string{"Withdraw amount", withdraw.Amount.Dec()})
	}
	table.Render()
}
