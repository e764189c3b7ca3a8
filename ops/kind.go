// kind.go - Geschlossene Menge der Operations-Arten
//
// Dieses Modul enthaelt:
// - Kind: Enum aller Operations-Arten
// - ParseKind/String: Textform
// - Klassifizierungs-Helfer (IsBinaryElementwise, IsConvLike)
package ops

import (
	"fmt"
)

// Kind enumerates every operation the scheduler understands. The set is
// closed: capability lookup for an unknown kind is a configuration error.
type Kind uint32

const (
	Conv2D Kind = iota
	DepthwiseConv2D
	Deconv2D
	MaxPool2D
	AvgPool2D
	Add
	Sub
	Mul
	Div
	Max
	Min
	Relu
	LeakyRelu
	Sigmoid
	Tanh
	Scale
	LayerNorm
	MatMul
	Cast
	Softmax
)

var kindNames = map[Kind]string{
	Conv2D:          "conv2d",
	DepthwiseConv2D: "depthwise_conv2d",
	Deconv2D:        "deconv2d",
	MaxPool2D:       "maxpool2d",
	AvgPool2D:       "avgpool2d",
	Add:             "add",
	Sub:             "sub",
	Mul:             "mul",
	Div:             "div",
	Max:             "max",
	Min:             "min",
	Relu:            "relu",
	LeakyRelu:       "leaky_relu",
	Sigmoid:         "sigmoid",
	Tanh:            "tanh",
	Scale:           "scale",
	LayerNorm:       "layer_norm",
	MatMul:          "matmul",
	Cast:            "cast",
	Softmax:         "softmax",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// ParseKind parses an operation kind from its textual form.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("unknown operation kind %q", s)
}

// IsBinaryElementwise reports whether k is a symmetric two-operand
// elementwise operation. These support broadcasting on either operand.
func IsBinaryElementwise(k Kind) bool {
	switch k {
	case Add, Sub, Mul, Div, Max, Min:
		return true
	}
	return false
}

// IsConvLike reports whether k maps output rows back through a
// stride/kernel/pad window.
func IsConvLike(k Kind) bool {
	switch k {
	case Conv2D, DepthwiseConv2D, MaxPool2D, AvgPool2D:
		return true
	}
	return false
}

// GroupType selects the local-memory layout variant of a fused group.
type GroupType uint32

const (
	// GroupNormal is the default layout.
	GroupNormal GroupType = iota

	// GroupSmallChannel lays weights out with the sliced-tensor formula,
	// used when channel counts are too small to occupy the lanes.
	GroupSmallChannel
)

func (t GroupType) String() string {
	switch t {
	case GroupNormal:
		return "normal"
	case GroupSmallChannel:
		return "small_channel"
	}
	return "unknown"
}

// Axis identifies a splittable tensor dimension in NCHW order.
type Axis int

const (
	AxisN Axis = 0
	AxisH Axis = 2
)
