// record.go - Tensor-Records eines Suchversuchs
//
// Dieses Modul enthaelt:
// - TensorRecord: Slice-Info plus Layout-Flags
// - Records: geordnete Record-Map (deterministische Iteration)
// - FinalizeWeights: Gewichts-Records nach Konvergenz der Suche
package lgroup

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/target"
)

// TensorRecord is the per-tensor scheduling result: the slice windows plus
// the layout flags the footprint formulas depend on. Records are built
// fresh for every candidate and never carried over.
type TensorRecord struct {
	Slice SliceInfo

	// EUAlign requires execution-unit row alignment, NeedBroadcast the
	// lane-replicated lookup-table layout, Use3IC the input-channel
	// interleave level. Resolved by target policy in FinalizeWeights.
	EUAlign       bool
	NeedBroadcast bool
	Use3IC        int64
}

// Records maps tensors to their records. Insertion order is preserved so
// that repeated propagation over the same candidate yields identical
// iteration order (and therefore identical downstream results).
type Records struct {
	m *orderedmap.OrderedMap[graph.TensorID, *TensorRecord]
}

func NewRecords() *Records {
	return &Records{m: orderedmap.New[graph.TensorID, *TensorRecord]()}
}

func (r *Records) Get(id graph.TensorID) (*TensorRecord, bool) {
	return r.m.Get(id)
}

func (r *Records) Set(id graph.TensorID, rec *TensorRecord) {
	r.m.Set(id, rec)
}

func (r *Records) Len() int {
	return r.m.Len()
}

// Clear discards every record; a failed candidate never leaks state into
// the next attempt.
func (r *Records) Clear() {
	r.m = orderedmap.New[graph.TensorID, *TensorRecord]()
}

// Each visits the records in insertion order.
func (r *Records) Each(fn func(id graph.TensorID, rec *TensorRecord)) {
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// FinalizeWeights resolves the layout flags of every propagated record and
// seeds each weight operand's record with its full, unsliced extent.
// Weights are always materialized whole.
func FinalizeWeights(grp *graph.Group, tgt target.Target, recs *Records) {
	g := grp.Graph

	recs.Each(func(id graph.TensorID, rec *TensorRecord) {
		t := g.Tensor(id)
		rec.EUAlign = tgt.EUAlign(g, t)
		rec.NeedBroadcast = tgt.NeedBroadcast(g, t)
		rec.Use3IC = tgt.Use3IC(g, t)
	})

	for _, opID := range grp.Ops {
		for _, in := range g.Op(opID).Ins {
			t := g.Tensor(in)
			if t.Kind != graph.Weight {
				continue
			}
			recs.Set(in, &TensorRecord{
				Slice: SliceInfo{
					N: []SlicePair{{0, t.Shape.N}},
					H: []SlicePair{{0, t.Shape.H}},
				},
				EUAlign:       tgt.EUAlign(g, t),
				NeedBroadcast: tgt.NeedBroadcast(g, t),
				Use3IC:        tgt.Use3IC(g, t),
			})
		}
	}
}
