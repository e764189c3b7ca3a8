// parser.go - JSON-Graphbeschreibung einlesen
//
// Dieses Modul enthaelt:
// - Parse/ParseFile: Graphdatei -> graph.Graph
// - Validierung von Formen, Datentypen und Operanden-Referenzen
//
// Das Format ist das Austauschformat der vorgelagerten Graph-Passes:
// Tensoren mit NCHW-Form und Art, Operationen mit Attrs und benannten
// Operanden. Gewichtsdaten sind optionale float32-Literale, die in den
// Zieldatentyp kodiert werden.
package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/7blacky7/tensorc/dtype"
	"github.com/7blacky7/tensorc/graph"
	"github.com/7blacky7/tensorc/ops"
)

type tensorSpec struct {
	Name  string    `json:"name"`
	Shape []int64   `json:"shape"`
	DType string    `json:"dtype"`
	Kind  string    `json:"kind"`
	Data  []float32 `json:"data,omitempty"`
}

type opSpec struct {
	Name  string    `json:"name"`
	Kind  string    `json:"kind"`
	Attrs ops.Attrs `json:"attrs"`
	Ins   []string  `json:"ins"`
	Outs  []string  `json:"outs"`
}

type graphSpec struct {
	Name    string       `json:"name"`
	Tensors []tensorSpec `json:"tensors"`
	Ops     []opSpec     `json:"ops"`
}

// ParseFile reads a graph description from path.
func ParseFile(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse builds and finalizes a graph from a JSON description.
func Parse(r io.Reader) (*graph.Graph, error) {
	var spec graphSpec
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}

	g := graph.New()
	ids := make(map[string]graph.TensorID, len(spec.Tensors))

	for _, ts := range spec.Tensors {
		if len(ts.Shape) != 4 {
			return nil, fmt.Errorf("tensor %q: shape must have 4 extents (NCHW)", ts.Name)
		}
		for _, e := range ts.Shape {
			if e < 1 {
				return nil, fmt.Errorf("tensor %q: extents must be positive", ts.Name)
			}
		}

		dt, err := dtype.ParseType(ts.DType)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", ts.Name, err)
		}
		kind, err := parseKind(ts.Kind)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", ts.Name, err)
		}

		shape := graph.Shape{N: ts.Shape[0], C: ts.Shape[1], H: ts.Shape[2], W: ts.Shape[3]}
		id, err := g.AddTensor(ts.Name, shape, dt, kind)
		if err != nil {
			return nil, err
		}
		ids[ts.Name] = id

		if len(ts.Data) > 0 {
			if kind != graph.Weight {
				return nil, fmt.Errorf("tensor %q: only weights carry data", ts.Name)
			}
			if int64(len(ts.Data)) != shape.Elems() {
				return nil, fmt.Errorf("tensor %q: %d values for %d elements", ts.Name, len(ts.Data), shape.Elems())
			}
			bts, err := dtype.Encode(ts.Data, dt)
			if err != nil {
				return nil, fmt.Errorf("tensor %q: %w", ts.Name, err)
			}
			g.Tensor(id).Data = bts
		}
	}

	none := 0
	resolve := func(op string, names []string) ([]graph.TensorID, error) {
		out := make([]graph.TensorID, 0, len(names))
		for _, name := range names {
			if name == "" {
				// absent optional operand (e.g. no bias)
				id, err := g.AddTensor(fmt.Sprintf("$none%d", none), graph.Shape{N: 1, C: 1, H: 1, W: 1}, dtype.F32, graph.None)
				if err != nil {
					return nil, err
				}
				none++
				out = append(out, id)
				continue
			}
			id, ok := ids[name]
			if !ok {
				return nil, fmt.Errorf("op %q references unknown tensor %q", op, name)
			}
			out = append(out, id)
		}
		return out, nil
	}

	for _, op := range spec.Ops {
		kind, err := ops.ParseKind(op.Kind)
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", op.Name, err)
		}
		ins, err := resolve(op.Name, op.Ins)
		if err != nil {
			return nil, err
		}
		outs, err := resolve(op.Name, op.Outs)
		if err != nil {
			return nil, err
		}
		if _, err := g.AddOp(op.Name, kind, op.Attrs, ins, outs); err != nil {
			return nil, err
		}
	}

	if err := g.Finalize(); err != nil {
		return nil, err
	}
	return g, nil
}

func parseKind(s string) (graph.TensorKind, error) {
	switch s {
	case "activation", "":
		return graph.Activation, nil
	case "weight":
		return graph.Weight, nil
	}
	return 0, fmt.Errorf("unknown tensor kind %q", s)
}
