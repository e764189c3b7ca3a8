// propagate.go - Rueckwaerts-Slice-Propagation
//
// Dieses Modul leitet fuer jeden Tensor einer Gruppe die Slice-Fenster ab,
// die alle Konsumenten benoetigen: von den Gruppen-Ausgaben rueckwaerts
// durch den Abhaengigkeitsgraphen.
//
// Zwei Modi:
// - bounding: ein konservatives Fenster pro Dimension (fuer die
//   Puffer-Dimensionierung vor der exakten Partition)
// - exact: gleichmaessige Partition der vollen Ausgabe-Extents
package lgroup

import (
	"log/slog"

	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
	"github.com/7blacky7/tensorc/target"
)

type mode int

const (
	bounding mode = iota
	exact
)

// propagate fills recs with slice info for every tensor reachable inside
// grp under the candidate secs. On success every tensor's record is
// consistent with all of its in-group consumers; on failure recs is left
// in an undefined state and must be cleared by the caller before reuse.
func propagate(grp *graph.Group, tgt target.Target, secs SplitFactors, recs *Records, m mode) bool {
	if len(grp.Ops) == 1 {
		return true
	}
	recs.Clear()

	g := grp.Graph
	var worklist []graph.TensorID
	opSeen := make(map[graph.OpID]int)

	for _, out := range grp.Outs {
		t := g.Tensor(out)

		var si SliceInfo
		if m == bounding {
			maxN := ceilDiv(t.Shape.N, secs.NSecs)
			maxN = alignUp(maxN, tgt.NAlignUnit(t.DType))
			maxH := ceilDiv(t.Shape.H, secs.HSecs)
			si = SliceInfo{
				N: []SlicePair{{0, maxN}},
				H: []SlicePair{{0, maxH}},
			}
		} else {
			si = OutSliceInfo(secs, t.Shape.N, t.Shape.H)
		}
		recs.Set(out, &TensorRecord{Slice: si})

		if expandable(grp, out, opSeen) {
			worklist = append(worklist, out)
		}
	}

	for len(worklist) > 0 {
		t := worklist[0]
		worklist = worklist[1:]
		if !backwardUpdate(grp, tgt, secs, t, recs, opSeen, &worklist) {
			return false
		}
	}

	return true
}

// backwardUpdate maps the slice record of t back through its producing
// operation onto every non-weight operand.
func backwardUpdate(grp *graph.Group, tgt target.Target, secs SplitFactors, id graph.TensorID, recs *Records, opSeen map[graph.OpID]int, worklist *[]graph.TensorID) bool {
	// a group input's requirement is final; never cross the group boundary
	if grp.IsInput(id) {
		return true
	}

	g := grp.Graph
	t := g.Tensor(id)
	op := g.Op(t.Producer)
	opSeen[op.ID]++

	rec, ok := recs.Get(id)
	if !ok {
		return false
	}

	for _, inID := range op.Ins {
		in := g.Tensor(inID)
		if in.Kind != graph.Activation {
			continue
		}

		si, ok := backwardSliceInfo(g, rec.Slice, op, in, secs)
		if !ok {
			slog.Debug("backward mapping unsatisfiable", "op", op.Name, "tensor", in.Name, "secs", secs)
			return false
		}

		if existing, ok := recs.Get(inID); ok {
			// two consumers of one tensor must agree on the partition
			if !SameSliceInfo(existing.Slice, si) {
				slog.Debug("conflicting consumer constraint", "tensor", in.Name, "secs", secs)
				return false
			}
		} else {
			recs.Set(inID, &TensorRecord{Slice: si})
		}

		if expandable(grp, inID, opSeen) {
			*worklist = append(*worklist, inID)
		}
	}

	return true
}

// backwardSliceInfo asks the producing operation to map every output slice
// pair backward into the corresponding input slice pair.
func backwardSliceInfo(g *graph.Graph, outSi SliceInfo, op *graph.Op, in *graph.Tensor, secs SplitFactors) (SliceInfo, bool) {
	c := g.Capability(op.ID)
	bcast := isBroadcastOperand(g, op, in)

	var si SliceInfo
	switch {
	case bcast && in.Shape.N == 1:
		// a broadcast operand keeps its degenerate window no matter how
		// the output is partitioned
		si.N = []SlicePair{{0, 1}}
	case secs.NSecs == 1:
		si.N = append(si.N, SlicePair{0, in.Shape.N})
	default:
		for _, s := range outSi.N {
			idx, slice, ok := c.BackwardN(s.Start, s.Len)
			if !ok || slice == 0 {
				return si, false
			}
			si.N = append(si.N, SlicePair{idx, slice})
		}
	}

	switch {
	case bcast && in.Shape.H == 1:
		si.H = []SlicePair{{0, 1}}
	case secs.HSecs == 1:
		si.H = append(si.H, SlicePair{0, in.Shape.H})
	default:
		preEnd := int64(0)
		for i, s := range outSi.H {
			idx, slice, ok := c.BackwardH(s.Start, s.Len)
			// a later slice restarting at 0 or ending where the previous
			// one ended means the windows collapsed
			endReached := idx+slice == preEnd
			if !ok || slice == 0 || (idx == 0 && i > 0) || endReached {
				return si, false
			}
			preEnd = idx + slice
			si.H = append(si.H, SlicePair{idx, slice})
		}
	}

	return si, true
}

// isBroadcastOperand reports whether in participates in a symmetric binary
// operation with an extent of 1 against a peer's larger extent.
func isBroadcastOperand(g *graph.Graph, op *graph.Op, in *graph.Tensor) bool {
	if !ops.IsBinaryElementwise(op.Kind) || len(op.Ins) < 2 {
		return false
	}

	other := g.Tensor(op.Ins[0])
	if other.ID == in.ID {
		other = g.Tensor(op.Ins[1])
	}

	is, os := in.Shape, other.Shape
	for _, dims := range [][2]int64{{is.N, os.N}, {is.C, os.C}, {is.H, os.H}, {is.W, os.W}} {
		if dims[0] != dims[1] && dims[0] == 1 {
			return true
		}
	}
	return false
}

// expandable decides whether a tensor may be propagated further backward:
// only once every in-group consumer has contributed its requirement, so a
// multiply-consumed tensor's record reflects the union of all consumers'
// needs. A tensor that is also a group output is eligible regardless of
// outer consumers.
func expandable(grp *graph.Group, id graph.TensorID, opSeen map[graph.OpID]int) bool {
	g := grp.Graph
	hasOuterUser := false
	for _, user := range g.Tensor(id).Consumers {
		if grp.Contains(user) {
			if opSeen[user] == 0 {
				return false
			}
		} else {
			hasOuterUser = true
		}
	}

	if hasOuterUser {
		return grp.IsOutput(id)
	}
	return true
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}

func alignUp(v, unit int64) int64 {
	if unit <= 1 {
		return v
	}
	return (v + unit - 1) / unit * unit
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
