// planner.go - Gruppen-Planung und aeusserer Treiber
//
// Dieses Modul enthaelt:
// - GroupPlan: Ergebnis einer Gruppen-Analyse (machbar/unmachbar)
// - Planner.PlanGroup: Suche, exakte Materialisierung, Gewichts-Finalisierung
// - Planner.PlanAll: unabhaengige Gruppen parallel analysieren
package lgroup

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/7blacky7/tensorc/envconfig"
	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/target"
)

// GroupPlan is the scheduler's verdict for one group. On success Secs and
// Records describe the accepted slice partition for the code generator;
// on failure Reason says why and the caller may shrink the group or fall
// back to unfused execution.
type GroupPlan struct {
	Group    *graph.Group
	Feasible bool
	Reason   string

	Secs      SplitFactors
	Records   *Records
	PeakBytes int64
	TimeSteps int64
}

// Planner runs the split-factor search for candidate groups against one
// capacity model.
type Planner struct {
	Target target.Target
}

// PlanGroup analyzes one group. It never returns partial state: an
// infeasible plan carries no records.
func (p *Planner) PlanGroup(grp *graph.Group) *GroupPlan {
	plan := &GroupPlan{Group: grp, Secs: SplitFactors{NSecs: 1, HSecs: 1}}

	recs := NewRecords()

	if len(grp.Ops) > 1 {
		secs, ok := updateSplit(grp, p.Target, recs)
		if !ok {
			plan.Reason = "no split factor up to the capacity ceiling fits local memory"
			return plan
		}
		plan.Secs = secs

		// materialize the exact partition the code generator will use
		if !propagate(grp, p.Target, secs, recs, exact) {
			plan.Reason = fmt.Sprintf("slice partition conflict at %v", secs)
			return plan
		}

		// bound the row duplication caused by overlapping backward windows
		ok = true
		recs.Each(func(id graph.TensorID, rec *TensorRecord) {
			t := grp.Graph.Tensor(id)
			if t.Kind == graph.Activation && !checkHeightGrowth(rec.Slice, t.Shape.H) {
				slog.Debug("height growth above bound", "tensor", t.Name, "secs", secs)
				ok = false
			}
		})
		if !ok {
			plan.Reason = fmt.Sprintf("height duplication above 1.5x at %v", secs)
			return plan
		}
	}

	FinalizeWeights(grp, p.Target, recs)

	if envconfig.CheckSlices() {
		for _, out := range grp.Outs {
			t := grp.Graph.Tensor(out)
			if rec, ok := recs.Get(out); ok {
				if err := rec.Slice.Validate(t.Shape.N, t.Shape.H); err != nil {
					slog.Warn("slice invariant violated", "tensor", t.Name, "error", err)
				}
			}
		}
	}

	bufs, T := Buffers(grp, p.Target, recs)
	plan.Feasible = true
	plan.Records = recs
	plan.PeakBytes = PeakDemand(bufs, T)
	plan.TimeSteps = T

	return plan
}

// PlanAll analyzes every group, independent groups concurrently. Group
// state is never shared, so no synchronization beyond the errgroup is
// needed. Results keep the input order.
func (p *Planner) PlanAll(ctx context.Context, groups []*graph.Group) ([]*GroupPlan, error) {
	parallel := int(envconfig.NumParallel())
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)

	plans := make([]*GroupPlan, len(groups))
	for i, grp := range groups {
		i, grp := i, grp
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			plans[i] = p.PlanGroup(grp)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return plans, nil
}
