// cmd_targets.go - Targets Command: registrierte Hardware-Familien anzeigen
package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/7blacky7/tensorc/format"
	"github.com/7blacky7/tensorc/target"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "List the registered hardware target families",
		Args:  cobra.ExactArgs(0),
		RunE:  TargetsHandler,
	}
}

// TargetsHandler - Gibt die Kapazitaetsparameter aller Familien aus
func TargetsHandler(cmd *cobra.Command, args []string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "LMEM", "BANK", "EU", "LANES", "PACKED-N"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	for _, name := range target.Names() {
		tgt, err := target.Get(name)
		if err != nil {
			return err
		}
		table.Append([]string{
			tgt.Name(),
			format.HumanBytes2(tgt.LMemBytes()),
			format.HumanBytes2(tgt.BankBytes()),
			fmt.Sprintf("%d", tgt.EUBytes()),
			fmt.Sprintf("%d", tgt.Lanes()),
			fmt.Sprintf("%t", tgt.AlignedN()),
		})
	}

	table.Render()
	return nil
}
