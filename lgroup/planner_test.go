// planner_test.go - Tests fuer PlanGroup/PlanAll
package lgroup

import (
	"context"
	"testing"

	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
)

func TestPlanGroupFeasible(t *testing.T) {
	_, grp := reluChain(t, graph.Shape{N: 8, C: 1, H: 32, W: 1})
	p := &Planner{Target: &testTarget{lmem: 384, nUnit: 8}}

	plan := p.PlanGroup(grp)
	if !plan.Feasible {
		t.Fatalf("plan infeasible: %s", plan.Reason)
	}
	if plan.Secs != (SplitFactors{NSecs: 1, HSecs: 8}) {
		t.Errorf("Secs = %v, want n=1,h=8", plan.Secs)
	}
	if plan.TimeSteps != 2 {
		t.Errorf("TimeSteps = %d, want 2", plan.TimeSteps)
	}
	if plan.Records == nil || plan.Records.Len() != 3 {
		t.Fatalf("want records for x, y and z")
	}

	// three slices of 8 packed batches x 4 rows x 4 bytes, all concurrent
	// at the second step
	if plan.PeakBytes != 384 {
		t.Errorf("PeakBytes = %d, want 384", plan.PeakBytes)
	}
	if plan.PeakBytes > p.Target.LMemBytes() {
		t.Errorf("accepted plan exceeds capacity: %d > %d", plan.PeakBytes, p.Target.LMemBytes())
	}
}

func TestPlanGroupInfeasible(t *testing.T) {
	b := newBuilder(t)
	x := b.tensor("x", graph.Shape{N: 1, C: 1, H: 8, W: 8}, graph.Activation)
	y := b.tensor("y", graph.Shape{N: 1, C: 1, H: 8, W: 8}, graph.Activation)
	z := b.tensor("z", graph.Shape{N: 1, C: 1, H: 8, W: 8}, graph.Activation)
	op0 := b.op("softmax", ops.Softmax, ops.Attrs{}, []graph.TensorID{x}, []graph.TensorID{y})
	op1 := b.op("relu", ops.Relu, ops.Attrs{}, []graph.TensorID{y}, []graph.TensorID{z})
	grp := b.group(op0, op1)

	p := &Planner{Target: &testTarget{lmem: 10, nUnit: 1}}
	plan := p.PlanGroup(grp)
	if plan.Feasible {
		t.Fatal("impossible group planned as feasible")
	}
	if plan.Reason == "" {
		t.Error("infeasible plan carries no reason")
	}
	if plan.Records != nil {
		t.Error("infeasible plan carries records")
	}
}

func TestPlanGroupSingleOp(t *testing.T) {
	b := newBuilder(t)
	x := b.tensor("x", graph.Shape{N: 2, C: 1, H: 8, W: 1}, graph.Activation)
	w := b.tensor("w", graph.Shape{N: 1, C: 1, H: 1, W: 1}, graph.Weight)
	y := b.tensor("y", graph.Shape{N: 2, C: 1, H: 8, W: 1}, graph.Activation)
	scale := b.op("scale", ops.Scale, ops.Attrs{}, []graph.TensorID{x, w}, []graph.TensorID{y})
	grp := b.group(scale)

	p := &Planner{Target: &testTarget{lmem: 1 << 20, nUnit: 1}}
	plan := p.PlanGroup(grp)
	if !plan.Feasible {
		t.Fatalf("plan infeasible: %s", plan.Reason)
	}
	if plan.Secs != (SplitFactors{NSecs: 1, HSecs: 1}) {
		t.Errorf("Secs = %v, want n=1,h=1", plan.Secs)
	}
	if plan.TimeSteps != 1 {
		t.Errorf("TimeSteps = %d, want 1", plan.TimeSteps)
	}

	// weight finalization seeds the operand with its full extent
	rec, ok := plan.Records.Get(w)
	if !ok {
		t.Fatal("weight operand has no record")
	}
	want := SliceInfo{N: []SlicePair{{0, 1}}, H: []SlicePair{{0, 1}}}
	if !SameSliceInfo(rec.Slice, want) {
		t.Errorf("weight record %v, want %v", rec.Slice, want)
	}
}

func TestPlanAll(t *testing.T) {
	// two disconnected chains partition into two independent groups
	b := newBuilder(t)
	shape := graph.Shape{N: 2, C: 1, H: 8, W: 1}
	var members [][]graph.OpID
	for _, prefix := range []string{"a", "b"} {
		x := b.tensor(prefix+"_x", shape, graph.Activation)
		y := b.tensor(prefix+"_y", shape, graph.Activation)
		z := b.tensor(prefix+"_z", shape, graph.Activation)
		op0 := b.op(prefix+"_relu0", ops.Relu, ops.Attrs{}, []graph.TensorID{x}, []graph.TensorID{y})
		op1 := b.op(prefix+"_relu1", ops.Relu, ops.Attrs{}, []graph.TensorID{y}, []graph.TensorID{z})
		members = append(members, []graph.OpID{op0, op1})
	}
	if err := b.g.Finalize(); err != nil {
		t.Fatal(err)
	}

	groups, err := graph.Partition(b.g, ops.GroupNormal)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("Partition yields %d groups, want 2", len(groups))
	}
	for i, grp := range groups {
		if len(grp.Ops) != len(members[i]) {
			t.Fatalf("group %d has %d ops, want %d", i, len(grp.Ops), len(members[i]))
		}
	}

	p := &Planner{Target: &testTarget{lmem: 1 << 20, nUnit: 1}}
	plans, err := p.PlanAll(context.Background(), groups)
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 2 {
		t.Fatalf("PlanAll yields %d plans, want 2", len(plans))
	}
	for i, plan := range plans {
		if plan.Group != groups[i] {
			t.Errorf("plan %d out of order", i)
		}
		if !plan.Feasible {
			t.Errorf("plan %d infeasible: %s", i, plan.Reason)
		}
	}
}

func TestPlanAllCancelled(t *testing.T) {
	_, grp := reluChain(t, graph.Shape{N: 2, C: 1, H: 8, W: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Planner{Target: &testTarget{lmem: 1 << 20, nUnit: 1}}
	if _, err := p.PlanAll(ctx, []*graph.Group{grp}); err == nil {
		t.Error("cancelled context not reported")
	}
}
