// timestep_test.go - Tests fuer Lebenszeiten und Spitzenbedarf
package lgroup

import (
	"testing"

	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
)

func TestBuffersLifetimes(t *testing.T) {
	b := newBuilder(t)
	shape := graph.Shape{N: 2, C: 1, H: 8, W: 1}
	x := b.tensor("x", shape, graph.Activation)
	w := b.tensor("w", graph.Shape{N: 1, C: 1, H: 1, W: 1}, graph.Weight)
	y := b.tensor("y", shape, graph.Activation)
	z := b.tensor("z", shape, graph.Activation)
	scale := b.op("scale", ops.Scale, ops.Attrs{}, []graph.TensorID{x, w}, []graph.TensorID{y})
	relu := b.op("relu", ops.Relu, ops.Attrs{}, []graph.TensorID{y}, []graph.TensorID{z})
	grp := b.group(scale, relu)

	bufs, T := Buffers(grp, &testTarget{lmem: 1 << 20, nUnit: 1}, NewRecords())
	if T != 2 {
		t.Fatalf("T = %d, want 2", T)
	}

	byTensor := make(map[graph.TensorID]LiveBuffer)
	for _, buf := range bufs {
		if buf.Tensor >= 0 {
			byTensor[buf.Tensor] = buf
		}
	}

	// the group input is last used at step 0; its next copy loads during
	// step 1, wrapping across the group boundary
	if got := byTensor[x]; got.Start != 1 || got.End != 0 {
		t.Errorf("input lifetime [%d,%d], want wrapping [1,0]", got.Start, got.End)
	}

	// weights stay resident for the whole group execution
	if got := byTensor[w]; got.Start != 0 || got.End != T-1 {
		t.Errorf("weight lifetime [%d,%d], want [0,%d]", got.Start, got.End, T-1)
	}

	// the intermediate lives from its producer to its last consumer
	if got := byTensor[y]; got.Start != 0 || got.End != 1 {
		t.Errorf("intermediate lifetime [%d,%d], want [0,1]", got.Start, got.End)
	}

	// the group output stays until the end
	if got := byTensor[z]; got.Start != 1 || got.End != T-1 {
		t.Errorf("output lifetime [%d,%d], want [1,%d]", got.Start, got.End, T-1)
	}
}

func TestBuffersInputResidentWhenUsedLast(t *testing.T) {
	// an input consumed at the final step cannot overlap with its next
	// copy; it occupies its buffer across all steps
	b := newBuilder(t)
	shape := graph.Shape{N: 1, C: 1, H: 8, W: 1}
	x := b.tensor("x", shape, graph.Activation)
	late := b.tensor("late", shape, graph.Activation)
	y := b.tensor("y", shape, graph.Activation)
	z := b.tensor("z", shape, graph.Activation)
	relu := b.op("relu", ops.Relu, ops.Attrs{}, []graph.TensorID{x}, []graph.TensorID{y})
	add := b.op("add", ops.Add, ops.Attrs{}, []graph.TensorID{y, late}, []graph.TensorID{z})
	grp := b.group(relu, add)

	bufs, T := Buffers(grp, &testTarget{lmem: 1 << 20, nUnit: 1}, NewRecords())
	for _, buf := range bufs {
		if buf.Tensor == late {
			if buf.Start != 0 || buf.End != T-1 {
				t.Errorf("late input lifetime [%d,%d], want [0,%d]", buf.Start, buf.End, T-1)
			}
			return
		}
	}
	t.Fatal("late input has no buffer")
}

func TestBuffersScratch(t *testing.T) {
	// leaky relu requests scratch the size of its output slice, alive for
	// exactly its own step
	b := newBuilder(t)
	shape := graph.Shape{N: 1, C: 1, H: 8, W: 1}
	x := b.tensor("x", shape, graph.Activation)
	y := b.tensor("y", shape, graph.Activation)
	z := b.tensor("z", shape, graph.Activation)
	op0 := b.op("lrelu", ops.LeakyRelu, ops.Attrs{}, []graph.TensorID{x}, []graph.TensorID{y})
	op1 := b.op("relu", ops.Relu, ops.Attrs{}, []graph.TensorID{y}, []graph.TensorID{z})
	grp := b.group(op0, op1)

	bufs, _ := Buffers(grp, &testTarget{lmem: 1 << 20, nUnit: 1}, NewRecords())
	for _, buf := range bufs {
		if buf.Tensor == -1 {
			if buf.Op != op0 {
				t.Fatalf("scratch attributed to op %d, want %d", buf.Op, op0)
			}
			if buf.Start != 0 || buf.End != 0 {
				t.Errorf("scratch lifetime [%d,%d], want [0,0]", buf.Start, buf.End)
			}
			if buf.Size != 32 { // 8 f32 rows
				t.Errorf("scratch size %d, want 32", buf.Size)
			}
			return
		}
	}
	t.Fatal("no scratch buffer emitted")
}

func TestPeakDemandWrap(t *testing.T) {
	bufs := []LiveBuffer{
		{Tensor: 0, Start: 3, End: 1, Size: 5}, // wraps: steps 0,1,3
		{Tensor: 1, Start: 1, End: 2, Size: 2},
	}
	if got := PeakDemand(bufs, 4); got != 7 {
		t.Errorf("PeakDemand = %d, want 7", got)
	}
}

func TestRequiredSecs(t *testing.T) {
	bufs := []LiveBuffer{{Tensor: 0, Start: 0, End: 0, Size: 100}}

	if got := RequiredSecs(bufs, 1, 30); got != 4 {
		t.Errorf("RequiredSecs = %d, want 4", got)
	}
	if got := RequiredSecs(bufs, 1, 1000); got != 1 {
		t.Errorf("RequiredSecs = %d, want 1", got)
	}

	// tripling the demand roughly triples the sections
	tripled := []LiveBuffer{{Tensor: 0, Start: 0, End: 0, Size: 300}}
	if got := RequiredSecs(tripled, 1, 30); got != 10 {
		t.Errorf("RequiredSecs = %d, want 10", got)
	}
}
