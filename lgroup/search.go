// search.go - Split-Faktor-Suche
//
// Dieses Modul enthaelt:
// - MaxSecs: Obergrenze der Split-Faktoren einer Gruppe
// - InitSecs: billiger, unverifizierter Startpunkt
// - updateSplit: iterative Suche bis die Gruppe in den Speicher passt
package lgroup

import (
	"log/slog"
	"math"

	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
	"github.com/7blacky7/tensorc/target"
)

// MaxSecs computes the split-factor ceiling for grp. It cannot fail; the
// worst case is {1,1}.
func MaxSecs(grp *graph.Group, tgt target.Target) SplitFactors {
	g := grp.Graph

	first := g.Op(grp.Ops[0])
	maxN := g.Tensor(first.Ins[0]).Shape.N
	if ops.IsBinaryElementwise(first.Kind) && len(first.Ins) > 1 {
		// a broadcast second operand may carry the larger batch
		if n := g.Tensor(first.Ins[1]).Shape.N; n > maxN {
			maxN = n
		}
	}

	maxH := int64(math.MaxInt64)
	for _, opID := range grp.Ops {
		c := g.Capability(opID)
		for _, out := range g.Outputs(g.Op(opID)) {
			nAlign := tgt.NAlignUnit(out.DType)
			maxN = min64(maxN, ceilDiv(out.Shape.N, nAlign))
			if c.AllowSplit(ops.AxisH, grp.Type) {
				maxH = min64(maxH, out.Shape.H)
			} else {
				maxH = 1
			}
		}
	}

	return SplitFactors{NSecs: max64(maxN, 1), HSecs: max64(maxH, 1)}
}

// InitSecs derives a starting candidate from the worst single operation's
// unsliced footprint. Cheap and not yet verified against the schedule.
func InitSecs(grp *graph.Group, tgt target.Target) SplitFactors {
	secs := SplitFactors{NSecs: 1, HSecs: 1}
	if len(grp.Ops) == 1 {
		return secs
	}

	g := grp.Graph
	maxSecs := MaxSecs(grp, tgt)
	for _, opID := range grp.Ops {
		op := g.Op(opID)
		ins := g.Inputs(op)
		outs := g.Outputs(op)

		in0, out0 := ins[0], outs[0]
		inBytes := tgt.TensorLMemBytes(in0, in0.Shape.N, in0.Shape.H, true, grp.Type)
		outBytes := tgt.TensorLMemBytes(out0, out0.Shape.N, out0.Shape.H, true, grp.Type)

		total := inBytes + outBytes
		total += g.Capability(opID).BufferSize(inBytes, outBytes,
			in0.Shape.N, in0.Shape.H, out0.Shape.N, out0.Shape.H, grp.Type)

		for _, in := range ins[1:] {
			if in.Kind == graph.Weight {
				total += tgt.WeightLMemBytes(in, tgt.EUAlign(g, in), grp.Type)
			} else {
				total += tgt.TensorLMemBytes(in, in.Shape.N, in.Shape.H, true, grp.Type)
			}
		}
		for _, out := range outs[1:] {
			total += tgt.TensorLMemBytes(out, out.Shape.N, out.Shape.H, true, grp.Type)
		}

		totalSecs := ceilDiv(total, tgt.LMemBytes())
		secs.NSecs = max64(min64(totalSecs, maxSecs.NSecs), secs.NSecs)
		totalSecs = ceilDiv(totalSecs, secs.NSecs)
		secs.HSecs = max64(totalSecs, secs.HSecs)
	}

	return secs
}

// updateSplit grows the split factors until the group's peak demand fits
// local memory, or reports that no factor up to the ceiling does. recs
// holds the bounding-mode records of the last attempted candidate.
//
// A bounding-mode propagation failure aborts the search: the conflict is
// structural (two consumers demanding different partitions of one single
// conservative window) and a larger n cannot resolve it.
func updateSplit(grp *graph.Group, tgt target.Target, recs *Records) (SplitFactors, bool) {
	secs := SplitFactors{NSecs: 1, HSecs: 1}
	maxSecs := MaxSecs(grp, tgt)

	for n := int64(1); n <= maxSecs.NSecs; n++ {
		secs.NSecs = n
		if !propagate(grp, tgt, secs, recs, bounding) {
			return secs, false
		}

		bufs, T := Buffers(grp, tgt, recs)
		total := RequiredSecs(bufs, T, tgt.LMemBytes())

		secs.NSecs = max64(secs.NSecs, min64(maxSecs.NSecs, total))
		secs.HSecs = ceilDiv(total, secs.NSecs)
		if secs.HSecs <= maxSecs.HSecs {
			slog.Debug("split search converged", "secs", secs, "required", total, "ceiling", maxSecs)
			return secs, true
		}
	}

	slog.Debug("split search exhausted", "ceiling", maxSecs)
	return secs, false
}
