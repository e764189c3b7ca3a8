// helpers_test.go - Testbausteine: Mini-Kapazitaetsmodell und Graph-Aufbau
package lgroup

import (
	"testing"

	"github.com/7blacky7/tensorc/dtype"
	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
)

// testTarget is a one-lane capacity model with trivially checkable
// arithmetic: a tensor slice costs alignUp(n)*C*bytes(h*W), a weight its
// full payload. No EU alignment, no layout flags.
type testTarget struct {
	lmem  int64
	nUnit int64
}

func (t *testTarget) Name() string     { return "test" }
func (t *testTarget) LMemBytes() int64 { return t.lmem }
func (t *testTarget) BankBytes() int64 { return t.lmem / 4 }
func (t *testTarget) EUBytes() int64   { return 1 }
func (t *testTarget) Lanes() int64     { return 1 }
func (t *testTarget) AlignedN() bool   { return t.nUnit > 1 }

func (t *testTarget) NAlignUnit(dt dtype.Type) int64 {
	if t.nUnit > 1 {
		return t.nUnit
	}
	return 1
}

func (t *testTarget) TensorLMemBytes(ts *graph.Tensor, nSlice, hSlice int64, euAlign bool, gt ops.GroupType) int64 {
	return alignUp(nSlice, t.NAlignUnit(ts.DType)) * ts.Shape.C * ts.DType.Bytes(hSlice*ts.Shape.W)
}

func (t *testTarget) WeightLMemBytes(ts *graph.Tensor, euAlign bool, gt ops.GroupType) int64 {
	return ts.Shape.N * ts.Shape.C * ts.DType.Bytes(ts.Shape.H*ts.Shape.W)
}

func (t *testTarget) EUAlign(g *graph.Graph, ts *graph.Tensor) bool       { return false }
func (t *testTarget) NeedBroadcast(g *graph.Graph, ts *graph.Tensor) bool { return false }
func (t *testTarget) Use3IC(g *graph.Graph, ts *graph.Tensor) int64       { return 0 }

// builder keeps the test graphs short: f32 tensors, fatal on any error.
type builder struct {
	t *testing.T
	g *graph.Graph
}

func newBuilder(t *testing.T) *builder {
	return &builder{t: t, g: graph.New()}
}

func (b *builder) tensor(name string, shape graph.Shape, kind graph.TensorKind) graph.TensorID {
	b.t.Helper()
	id, err := b.g.AddTensor(name, shape, dtype.F32, kind)
	if err != nil {
		b.t.Fatal(err)
	}
	return id
}

func (b *builder) op(name string, kind ops.Kind, attrs ops.Attrs, ins, outs []graph.TensorID) graph.OpID {
	b.t.Helper()
	id, err := b.g.AddOp(name, kind, attrs, ins, outs)
	if err != nil {
		b.t.Fatal(err)
	}
	return id
}

func (b *builder) group(members ...graph.OpID) *graph.Group {
	b.t.Helper()
	if err := b.g.Finalize(); err != nil {
		b.t.Fatal(err)
	}
	grp, err := graph.NewGroup(b.g, members, ops.GroupNormal)
	if err != nil {
		b.t.Fatal(err)
	}
	return grp
}

// reluChain builds x -> relu -> y -> relu -> z over the given shape and
// groups both operations.
func reluChain(t *testing.T, shape graph.Shape) (*builder, *graph.Group) {
	b := newBuilder(t)
	x := b.tensor("x", shape, graph.Activation)
	y := b.tensor("y", shape, graph.Activation)
	z := b.tensor("z", shape, graph.Activation)
	op0 := b.op("relu0", ops.Relu, ops.Attrs{}, []graph.TensorID{x}, []graph.TensorID{y})
	op1 := b.op("relu1", ops.Relu, ops.Attrs{}, []graph.TensorID{y}, []graph.TensorID{z})
	return b, b.group(op0, op1)
}
