// graph.go - Arena fuer Op- und Tensor-Knoten
//
// Dieses Modul enthaelt:
// - Shape/Tensor/Op: Knotentypen, adressiert ueber Integer-Handles
// - Graph: Arena mit vorberechneter Adjazenz (Producer/Consumers)
// - Finalize: Adjazenz aufbauen und Capabilities aufloesen
//
// Kein Pointer-Identity-Walking: alle Verweise laufen ueber OpID/TensorID,
// Iterationsreihenfolgen sind dadurch reproduzierbar.
package graph

import (
	"fmt"

	"github.com/7blacky7/tensorc/dtype"
	"github.com/7blacky7/tensorc/ops"
)

type (
	OpID     int32
	TensorID int32
)

// NoOp marks the absence of a producer.
const NoOp OpID = -1

// TensorKind distinguishes how an operand participates in scheduling.
type TensorKind uint32

const (
	// Activation tensors are sliced and propagated.
	Activation TensorKind = iota

	// Weight tensors are materialized whole and never sliced.
	Weight

	// None is a placeholder operand (e.g. an absent bias).
	None
)

func (k TensorKind) String() string {
	switch k {
	case Activation:
		return "activation"
	case Weight:
		return "weight"
	case None:
		return "none"
	}
	return "unknown"
}

// Shape is a tensor extent in NCHW order.
type Shape struct {
	N, C, H, W int64
}

func (s Shape) Elems() int64 {
	return s.N * s.C * s.H * s.W
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%dx%d", s.N, s.C, s.H, s.W)
}

// Tensor is one value node in the arena.
type Tensor struct {
	ID    TensorID
	Name  string
	Shape Shape
	DType dtype.Type
	Kind  TensorKind

	// Data is an optional constant payload for weights.
	Data []byte

	// Producer is the operation producing this tensor, NoOp for graph
	// inputs and weights. Consumers lists every reading operation in
	// insertion order. Both are filled by Finalize.
	Producer  OpID
	Consumers []OpID
}

// Op is one operation node. Ins[0] is the primary input, Outs[0] the
// primary output.
type Op struct {
	ID    OpID
	Name  string
	Kind  ops.Kind
	Attrs ops.Attrs
	Ins   []TensorID
	Outs  []TensorID
}

// Graph is the arena. It is immutable after Finalize.
type Graph struct {
	Tensors []*Tensor
	Ops     []*Op

	caps      []ops.Capability
	byName    map[string]TensorID
	finalized bool
}

func New() *Graph {
	return &Graph{byName: make(map[string]TensorID)}
}

// AddTensor adds a value node. Names must be unique.
func (g *Graph) AddTensor(name string, shape Shape, dt dtype.Type, kind TensorKind) (TensorID, error) {
	if g.finalized {
		return 0, fmt.Errorf("graph already finalized")
	}
	if _, ok := g.byName[name]; ok {
		return 0, fmt.Errorf("duplicate tensor %q", name)
	}

	id := TensorID(len(g.Tensors))
	g.Tensors = append(g.Tensors, &Tensor{
		ID:       id,
		Name:     name,
		Shape:    shape,
		DType:    dt,
		Kind:     kind,
		Producer: NoOp,
	})
	g.byName[name] = id

	return id, nil
}

// AddOp adds an operation node reading ins and producing outs.
func (g *Graph) AddOp(name string, kind ops.Kind, attrs ops.Attrs, ins, outs []TensorID) (OpID, error) {
	if g.finalized {
		return 0, fmt.Errorf("graph already finalized")
	}
	if len(ins) == 0 || len(outs) == 0 {
		return 0, fmt.Errorf("op %q needs at least one input and one output", name)
	}
	for _, id := range append(append([]TensorID{}, ins...), outs...) {
		if int(id) < 0 || int(id) >= len(g.Tensors) {
			return 0, fmt.Errorf("op %q references unknown tensor %d", name, id)
		}
	}

	id := OpID(len(g.Ops))
	g.Ops = append(g.Ops, &Op{
		ID:    id,
		Name:  name,
		Kind:  kind,
		Attrs: attrs,
		Ins:   append([]TensorID{}, ins...),
		Outs:  append([]TensorID{}, outs...),
	})

	return id, nil
}

// Finalize builds the adjacency and resolves one capability per operation.
// A kind without a usable capability fails here, not during search.
func (g *Graph) Finalize() error {
	if g.finalized {
		return nil
	}

	for _, op := range g.Ops {
		for _, out := range op.Outs {
			t := g.Tensors[out]
			if t.Producer != NoOp {
				return fmt.Errorf("tensor %q has two producers", t.Name)
			}
			t.Producer = op.ID
		}
	}
	for _, op := range g.Ops {
		for _, in := range op.Ins {
			t := g.Tensors[in]
			if t.Kind == None {
				continue
			}
			t.Consumers = append(t.Consumers, op.ID)
		}
	}

	g.caps = make([]ops.Capability, len(g.Ops))
	for _, op := range g.Ops {
		c, err := ops.Resolve(op.Kind, op.Attrs, g.Tensors[op.Ins[0]].Shape.H)
		if err != nil {
			return fmt.Errorf("op %q: %w", op.Name, err)
		}
		g.caps[op.ID] = c
	}

	g.finalized = true
	return nil
}

// Tensor returns the node for id.
func (g *Graph) Tensor(id TensorID) *Tensor { return g.Tensors[id] }

// Op returns the node for id.
func (g *Graph) Op(id OpID) *Op { return g.Ops[id] }

// TensorByName looks a tensor up by name.
func (g *Graph) TensorByName(name string) (*Tensor, bool) {
	id, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.Tensors[id], true
}

// Capability returns the resolved capability for op.
func (g *Graph) Capability(op OpID) ops.Capability { return g.caps[op] }

// Inputs returns the operand tensors of op, placeholders excluded.
func (g *Graph) Inputs(op *Op) []*Tensor {
	ins := make([]*Tensor, 0, len(op.Ins))
	for _, id := range op.Ins {
		if t := g.Tensors[id]; t.Kind != None {
			ins = append(ins, t)
		}
	}
	return ins
}

// Outputs returns the result tensors of op.
func (g *Graph) Outputs(op *Op) []*Tensor {
	outs := make([]*Tensor, 0, len(op.Outs))
	for _, id := range op.Outs {
		outs = append(outs, g.Tensors[id])
	}
	return outs
}
