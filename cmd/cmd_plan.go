// cmd_plan.go - Plan Command: Gruppen einer Graphdatei einplanen
//
// Dieses Modul enthaelt:
// - newPlanCmd: Command-Definition mit Flags
// - PlanHandler: Graph laden, partitionieren, Planner laufen lassen
// - Tabellenausgabe pro Gruppe und (verbose) pro Tensor
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/7blacky7/tensorc/envconfig"
	"github.com/7blacky7/tensorc/format"
	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/lgroup"
	"github.com/7blacky7/tensorc/ops"
	"github.com/7blacky7/tensorc/parser"
	"github.com/7blacky7/tensorc/target"
)

func newPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan GRAPH",
		Short: "Schedule the groups of a graph into local memory",
		Args:  cobra.ExactArgs(1),
		RunE:  PlanHandler,
	}

	planCmd.Flags().String("target", envconfig.Target(), "Hardware target family")
	planCmd.Flags().Bool("small-channel", false, "Use the small-channel group layout")
	planCmd.Flags().Bool("verbose", false, "Show per-tensor slice windows")

	return planCmd
}

// PlanHandler - Laedt den Graph und gibt pro Gruppe das Planungsergebnis aus
func PlanHandler(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("target")
	tgt, err := target.Get(name)
	if err != nil {
		return err
	}

	g, err := parser.ParseFile(args[0])
	if err != nil {
		return err
	}

	gt := ops.GroupNormal
	if small, _ := cmd.Flags().GetBool("small-channel"); small {
		gt = ops.GroupSmallChannel
	}

	groups, err := graph.Partition(g, gt)
	if err != nil {
		return err
	}

	planner := &lgroup.Planner{Target: tgt}
	plans, err := planner.PlanAll(cmd.Context(), groups)
	if err != nil {
		return err
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintf(os.Stdout, "target %s: %s local memory, %d lanes\n\n",
			tgt.Name(), format.HumanBytes2(tgt.LMemBytes()), tgt.Lanes())
	}

	var data [][]string
	for i, plan := range plans {
		opNames := make([]string, 0, len(plan.Group.Ops))
		for _, id := range plan.Group.Ops {
			opNames = append(opNames, g.Op(id).Name)
		}

		status := "ok"
		if !plan.Feasible {
			status = "infeasible: " + plan.Reason
		}

		data = append(data, []string{
			fmt.Sprintf("%d", i),
			strings.Join(opNames, ","),
			fmt.Sprintf("%d", plan.TimeSteps),
			fmt.Sprintf("%dx%d", plan.Secs.NSecs, plan.Secs.HSecs),
			format.HumanBytes2(plan.PeakBytes),
			status,
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"GROUP", "OPS", "STEPS", "SPLIT", "PEAK", "STATUS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		for i, plan := range plans {
			if !plan.Feasible || plan.Records == nil {
				continue
			}
			fmt.Fprintf(os.Stdout, "\ngroup %d tensors:\n", i)
			printRecords(g, plan.Records)
		}
	}

	for _, plan := range plans {
		if !plan.Feasible {
			return fmt.Errorf("%d of %d groups cannot be scheduled", infeasibleCount(plans), len(plans))
		}
	}

	return nil
}

func infeasibleCount(plans []*lgroup.GroupPlan) int {
	n := 0
	for _, plan := range plans {
		if !plan.Feasible {
			n++
		}
	}
	return n
}

func printRecords(g *graph.Graph, recs *lgroup.Records) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"TENSOR", "KIND", "N-SLICES", "H-SLICES", "FLAGS"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")

	recs.Each(func(id graph.TensorID, rec *lgroup.TensorRecord) {
		t := g.Tensor(id)

		var flags []string
		if rec.EUAlign {
			flags = append(flags, "align")
		}
		if rec.NeedBroadcast {
			flags = append(flags, "bcast")
		}
		if rec.Use3IC > 0 {
			flags = append(flags, fmt.Sprintf("3ic=%d", rec.Use3IC))
		}

		table.Append([]string{
			t.Name,
			t.Kind.String(),
			formatSlices(rec.Slice.N),
			formatSlices(rec.Slice.H),
			strings.Join(flags, ","),
		})
	})

	table.Render()
}

func formatSlices(pairs []lgroup.SlicePair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("(%d,%d)", p.Start, p.Len))
	}
	return strings.Join(parts, " ")
}
