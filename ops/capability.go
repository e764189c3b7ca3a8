// capability.go - Capability-Interface der Operationen
//
// Dieses Modul enthaelt:
// - Attrs: Form-Parameter einer Operation
// - Capability: Split-Erlaubnis, Rueckwaerts-Abbildung, Scratch-Groesse
// - Resolve: Aufloesung Kind -> Capability (einmalig beim Gruppenbau)
//
// Der Scheduler interpretiert Operations-Semantik nie selbst; alles
// Form-Wissen steckt hinter diesem Interface.
package ops

import (
	"fmt"
)

// Attrs carries the shape-transform parameters of an operation. Fields that
// do not apply to a kind are left zero.
type Attrs struct {
	KernelH   int64 `json:"kernel_h,omitempty"`
	StrideH   int64 `json:"stride_h,omitempty"`
	PadTop    int64 `json:"pad_top,omitempty"`
	PadBottom int64 `json:"pad_bottom,omitempty"`
	DilationH int64 `json:"dilation_h,omitempty"`

	// GlobalPool marks a pooling window covering the full height.
	GlobalPool bool `json:"global_pool,omitempty"`

	// Use3IC is the input-channel-interleave optimization level requested
	// by a convolution (0 = off).
	Use3IC int64 `json:"use_3ic,omitempty"`
}

// Capability is the per-operation contract used during backward slice
// propagation. Implementations are resolved once per group and are pure.
type Capability interface {
	// AllowSplit reports whether the operation tolerates slicing its
	// tensors along the given axis.
	AllowSplit(axis Axis, gt GroupType) bool

	// BackwardN maps an output slice on the batch dimension to the input
	// slice it requires. ok=false means the request cannot be realized.
	BackwardN(outStart, outLen int64) (inStart, inLen int64, ok bool)

	// BackwardH is the height analogue of BackwardN.
	BackwardH(outStart, outLen int64) (inStart, inLen int64, ok bool)

	// BufferSize is the extra scratch the operation needs beyond its
	// operands, for the given sliced operand sizes.
	BufferSize(inBytes, outBytes, inN, inH, outN, outH int64, gt GroupType) int64
}

// Resolve returns the capability implementation for kind k. inH is the
// height extent of the primary input, needed to clamp backward windows.
// An unknown kind is a hard configuration error, never defaulted.
func Resolve(k Kind, attrs Attrs, inH int64) (Capability, error) {
	switch k {
	case Conv2D, DepthwiseConv2D, MaxPool2D, AvgPool2D:
		return &windowed{kind: k, attrs: normalize(attrs), inH: inH}, nil
	case Deconv2D:
		return &deconv{attrs: normalize(attrs), inH: inH}, nil
	case Add, Sub, Mul, Div, Max, Min, Relu, Scale, Cast, Sigmoid, Tanh:
		return &elementwise{}, nil
	case LeakyRelu:
		return &elementwise{scratchOut: true}, nil
	case LayerNorm:
		return &elementwise{scratchOut: true}, nil
	case Softmax, MatMul:
		return &rowBound{kind: k}, nil
	}

	return nil, fmt.Errorf("operation kind %s has no local capability", k)
}

func normalize(a Attrs) Attrs {
	if a.KernelH == 0 {
		a.KernelH = 1
	}
	if a.StrideH == 0 {
		a.StrideH = 1
	}
	if a.DilationH == 0 {
		a.DilationH = 1
	}
	return a
}

// elementwise covers operations whose output rows map one to one onto
// input rows.
type elementwise struct {
	// scratchOut requests a working buffer the size of the output slice.
	scratchOut bool
}

func (e *elementwise) AllowSplit(axis Axis, gt GroupType) bool { return true }

func (e *elementwise) BackwardN(outStart, outLen int64) (int64, int64, bool) {
	return outStart, outLen, outLen > 0
}

func (e *elementwise) BackwardH(outStart, outLen int64) (int64, int64, bool) {
	return outStart, outLen, outLen > 0
}

func (e *elementwise) BufferSize(inBytes, outBytes, inN, inH, outN, outH int64, gt GroupType) int64 {
	if e.scratchOut {
		return outBytes
	}
	return 0
}

// rowBound covers operations that reduce or contract along the height
// dimension and therefore forbid splitting it.
type rowBound struct {
	kind Kind
}

func (r *rowBound) AllowSplit(axis Axis, gt GroupType) bool {
	return axis != AxisH
}

func (r *rowBound) BackwardN(outStart, outLen int64) (int64, int64, bool) {
	return outStart, outLen, outLen > 0
}

func (r *rowBound) BackwardH(outStart, outLen int64) (int64, int64, bool) {
	// only ever called with the full height (hsecs is pinned to 1)
	return outStart, outLen, outLen > 0
}

func (r *rowBound) BufferSize(inBytes, outBytes, inN, inH, outN, outH int64, gt GroupType) int64 {
	if r.kind == Softmax {
		return inBytes
	}
	return 0
}

// windowed covers convolution- and pooling-like operations: output rows map
// back through a stride/kernel/pad/dilation window.
type windowed struct {
	kind  Kind
	attrs Attrs
	inH   int64
}

func (w *windowed) AllowSplit(axis Axis, gt GroupType) bool {
	if axis == AxisH && w.attrs.GlobalPool {
		return false
	}
	return true
}

func (w *windowed) BackwardN(outStart, outLen int64) (int64, int64, bool) {
	return outStart, outLen, outLen > 0
}

func (w *windowed) BackwardH(outStart, outLen int64) (int64, int64, bool) {
	if outLen <= 0 {
		return 0, 0, false
	}

	ext := w.attrs.DilationH*(w.attrs.KernelH-1) + 1
	start := outStart*w.attrs.StrideH - w.attrs.PadTop
	if start < 0 {
		start = 0 // consumed by top padding
	}
	end := (outStart+outLen-1)*w.attrs.StrideH - w.attrs.PadTop + ext - 1
	if end > w.inH-1 {
		end = w.inH - 1
	}
	if end < start {
		return 0, 0, false
	}

	return start, end - start + 1, true
}

func (w *windowed) BufferSize(inBytes, outBytes, inN, inH, outN, outH int64, gt GroupType) int64 {
	if w.kind == AvgPool2D {
		// widened accumulator for the running sum
		return outBytes
	}
	return 0
}

// deconv maps output rows of a transposed convolution back to the input
// rows that contribute to them.
type deconv struct {
	attrs Attrs
	inH   int64
}

func (d *deconv) AllowSplit(axis Axis, gt GroupType) bool { return true }

func (d *deconv) BackwardN(outStart, outLen int64) (int64, int64, bool) {
	return outStart, outLen, outLen > 0
}

func (d *deconv) BackwardH(outStart, outLen int64) (int64, int64, bool) {
	if outLen <= 0 {
		return 0, 0, false
	}

	ext := d.attrs.DilationH*(d.attrs.KernelH-1) + 1
	start := ceilDiv(outStart+d.attrs.PadTop-ext+1, d.attrs.StrideH)
	if start < 0 {
		start = 0
	}
	end := floorDiv(outStart+outLen-1+d.attrs.PadTop, d.attrs.StrideH)
	if end > d.inH-1 {
		end = d.inH - 1
	}
	if end < start {
		return 0, 0, false
	}

	return start, end - start + 1, true
}

func (d *deconv) BufferSize(inBytes, outBytes, inN, inH, outN, outH int64, gt GroupType) int64 {
	return 0
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) == (b > 0) {
		q++
	}
	return q
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a > 0) != (b > 0) {
		q--
	}
	return q
}
