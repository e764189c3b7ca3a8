// group.go - Fusionierte Gruppen und ihr Zeitschritt-Plan
//
// Dieses Modul enthaelt:
// - Group: geordnete Op-Liste mit Gruppen-Ein/Ausgaben
// - NewGroup: Zusammenbau inkl. topologischer Sortierung (gonum)
// - Partition: einfacher Platzhalter fuer den vorgelagerten Gruppierungs-Pass
package graph

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/7blacky7/tensorc/ops"
)

// Group is a fused run of operations scheduled to keep every intermediate
// resident in local memory. Ops is in execution (topological) order; the
// position of an op in Ops is its time step.
type Group struct {
	Graph *Graph
	Ops   []OpID

	// Ins are activation tensors consumed from outside the group, Outs
	// tensors consumed outside (or final results). Weights appear in
	// neither list.
	Ins  []TensorID
	Outs []TensorID

	Type ops.GroupType
}

// NewGroup assembles a group from member ops. The member set must be free
// of cycles through non-member ops; ordering is stabilized on op IDs.
func NewGroup(g *Graph, members []OpID, gt ops.GroupType) (*Group, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("empty group")
	}

	inGroup := make(map[OpID]bool, len(members))
	for _, id := range members {
		if inGroup[id] {
			return nil, fmt.Errorf("op %d listed twice", id)
		}
		inGroup[id] = true
	}

	dg := simple.NewDirectedGraph()
	for _, id := range members {
		dg.AddNode(simple.Node(id))
	}
	for _, id := range members {
		for _, out := range g.Op(id).Outs {
			for _, consumer := range g.Tensor(out).Consumers {
				if inGroup[consumer] {
					dg.SetEdge(dg.NewEdge(simple.Node(id), simple.Node(consumer)))
				}
			}
		}
	}

	sorted, err := topo.SortStabilized(dg, nil)
	if err != nil {
		return nil, fmt.Errorf("group has a dependency cycle: %w", err)
	}

	grp := &Group{Graph: g, Type: gt}
	for _, n := range sorted {
		grp.Ops = append(grp.Ops, OpID(n.ID()))
	}

	seenIn := make(map[TensorID]bool)
	for _, id := range grp.Ops {
		for _, in := range g.Op(id).Ins {
			t := g.Tensor(in)
			if t.Kind != Activation || seenIn[in] {
				continue
			}
			if t.Producer == NoOp || !inGroup[t.Producer] {
				seenIn[in] = true
				grp.Ins = append(grp.Ins, in)
			}
		}
	}
	for _, id := range grp.Ops {
		for _, out := range g.Op(id).Outs {
			t := g.Tensor(out)
			external := len(t.Consumers) == 0
			for _, consumer := range t.Consumers {
				if !inGroup[consumer] {
					external = true
					break
				}
			}
			if external {
				grp.Outs = append(grp.Outs, out)
			}
		}
	}

	return grp, nil
}

// Contains reports whether op is a member of the group.
func (grp *Group) Contains(op OpID) bool {
	for _, id := range grp.Ops {
		if id == op {
			return true
		}
	}
	return false
}

// Step returns the time step of op within the group, or -1.
func (grp *Group) Step(op OpID) int {
	for i, id := range grp.Ops {
		if id == op {
			return i
		}
	}
	return -1
}

// IsInput reports whether t is one of the group's inputs.
func (grp *Group) IsInput(t TensorID) bool {
	for _, id := range grp.Ins {
		if id == t {
			return true
		}
	}
	return false
}

// IsOutput reports whether t is one of the group's outputs.
func (grp *Group) IsOutput(t TensorID) bool {
	for _, id := range grp.Outs {
		if id == t {
			return true
		}
	}
	return false
}

// Partition is a stand-in for the upstream grouping pass: it cuts the graph
// into maximal runs of dataflow-connected operations, in op order. The real
// grouping decision is supplied by the caller of the scheduler.
func Partition(g *Graph, gt ops.GroupType) ([]*Group, error) {
	var groups []*Group
	var run []OpID
	produced := make(map[TensorID]bool)

	flush := func() error {
		if len(run) == 0 {
			return nil
		}
		grp, err := NewGroup(g, run, gt)
		if err != nil {
			return err
		}
		groups = append(groups, grp)
		run = nil
		clear(produced)
		return nil
	}

	for _, op := range g.Ops {
		connected := len(run) == 0
		for _, in := range op.Ins {
			if produced[in] {
				connected = true
				break
			}
		}
		if !connected {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		run = append(run, op.ID)
		for _, out := range op.Outs {
			produced[out] = true
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return groups, nil
}
