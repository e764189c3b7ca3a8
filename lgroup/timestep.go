// timestep.go - Puffer-/Zeitschritt-Buchhaltung
//
// Dieses Modul enthaelt:
// - LiveBuffer: Belegung einer Ressource ueber ein Zeitschritt-Intervall
// - Buffers: Lebenszeiten und Groessen aller Puffer einer Gruppe
// - PeakDemand/RequiredSecs: Spitzenbedarf und daraus noetige Abschnitte
//
// Intervalle duerfen ueber die Gruppen-Grenze wickeln (Start > End):
// der Puffer lebt ueber das Ende einer Gruppen-Ausfuehrung hinaus, wie
// bei doppelt gepufferten Eingaben.
package lgroup

import (
	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
	"github.com/7blacky7/tensorc/target"
)

// LiveBuffer describes one resource's occupancy within the group's linear
// schedule. End < Start means the lifetime wraps around the boundary of
// one full group execution.
type LiveBuffer struct {
	Tensor graph.TensorID // -1 for operation scratch
	Op     graph.OpID
	Start  int64
	End    int64
	Size   int64
}

// Buffers converts the group's schedule and the candidate's records into
// live buffers. The time-step count equals the number of operations; loads
// of group inputs overlap the previous iteration via wrapping lifetimes.
func Buffers(grp *graph.Group, tgt target.Target, recs *Records) ([]LiveBuffer, int64) {
	g := grp.Graph
	T := int64(len(grp.Ops))

	var bufs []LiveBuffer
	seen := make(map[graph.TensorID]bool)

	addTensor := func(t *graph.Tensor) {
		if t.Kind == graph.None || seen[t.ID] {
			return
		}
		seen[t.ID] = true

		size := tensorBufferBytes(g, grp.Type, tgt, t, recs)

		var start, end int64
		switch {
		case t.Kind == graph.Weight:
			// resident for the whole group execution
			start, end = 0, T-1
		case t.Producer == graph.NoOp || !grp.Contains(t.Producer):
			last := int64(0)
			for _, user := range t.Consumers {
				if s := grp.Step(user); s >= 0 && int64(s) > last {
					last = int64(s)
				}
			}
			if last == T-1 {
				start, end = 0, T-1
			} else {
				// the next iteration's copy starts loading right after
				// the last use, wrapping across the group boundary
				start, end = last+1, last
			}
		default:
			p := int64(grp.Step(t.Producer))
			end = p
			for _, user := range t.Consumers {
				if s := grp.Step(user); s >= 0 && int64(s) > end {
					end = int64(s)
				}
			}
			if grp.IsOutput(t.ID) {
				end = T - 1
			}
			start = p
		}

		bufs = append(bufs, LiveBuffer{Tensor: t.ID, Op: t.Producer, Start: start, End: end, Size: size})
	}

	for _, opID := range grp.Ops {
		op := g.Op(opID)
		for _, in := range g.Inputs(op) {
			addTensor(in)
		}
		for _, out := range g.Outputs(op) {
			addTensor(out)
		}
	}

	// operation scratch buffers, alive for exactly their own step
	for _, opID := range grp.Ops {
		op := g.Op(opID)
		in0 := g.Tensor(op.Ins[0])
		out0 := g.Tensor(op.Outs[0])

		inN, inH := sliceDims(in0, recs)
		outN, outH := sliceDims(out0, recs)
		inBytes := tgt.TensorLMemBytes(in0, inN, inH, tgt.EUAlign(g, in0), grp.Type)
		outBytes := tgt.TensorLMemBytes(out0, outN, outH, tgt.EUAlign(g, out0), grp.Type)

		if size := g.Capability(opID).BufferSize(inBytes, outBytes, inN, inH, outN, outH, grp.Type); size > 0 {
			step := int64(grp.Step(opID))
			bufs = append(bufs, LiveBuffer{Tensor: -1, Op: opID, Start: step, End: step, Size: size})
		}
	}

	return bufs, T
}

func sliceDims(t *graph.Tensor, recs *Records) (int64, int64) {
	if rec, ok := recs.Get(t.ID); ok {
		return maxSliceNH(rec.Slice)
	}
	return t.Shape.N, t.Shape.H
}

func tensorBufferBytes(g *graph.Graph, gt ops.GroupType, tgt target.Target, t *graph.Tensor, recs *Records) int64 {
	euAlign := tgt.EUAlign(g, t)
	if t.Kind == graph.Weight {
		if gt == ops.GroupSmallChannel {
			return tgt.TensorLMemBytes(t, t.Shape.N, t.Shape.H, euAlign, gt)
		}
		return tgt.WeightLMemBytes(t, euAlign, gt)
	}

	n, h := sliceDims(t, recs)
	return tgt.TensorLMemBytes(t, n, h, euAlign, gt)
}

// PeakDemand is the highest concurrent byte demand across all time steps.
func PeakDemand(bufs []LiveBuffer, T int64) int64 {
	if T <= 0 {
		return 0
	}

	demand := make([]int64, T)
	add := func(from, to, size int64) {
		for ts := from; ts <= to; ts++ {
			demand[ts] += size
		}
	}
	for _, b := range bufs {
		if b.Start <= b.End {
			add(b.Start, b.End, b.Size)
		} else {
			add(0, b.End, b.Size)
			add(b.Start, T-1, b.Size)
		}
	}

	var peak int64
	for _, d := range demand {
		if d > peak {
			peak = d
		}
	}
	return peak
}

// RequiredSecs is the minimum total section count needed so the peak
// demand fits the capacity.
func RequiredSecs(bufs []LiveBuffer, T, capacity int64) int64 {
	secs := ceilDiv(PeakDemand(bufs, T), capacity)
	if secs < 1 {
		secs = 1
	}
	return secs
}
