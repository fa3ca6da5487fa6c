package graph

import (
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/ardalan-sia/planar-traffic/pkg/geom"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

// diamond builds A-B-C-D-A with no diagonals.
func diamond(t *testing.T) (*Network, [4]NodeID) {
	t.Helper()
	net := New()
	a := net.AddNode(geom.Point{0, 0}).ID
	b := net.AddNode(geom.Point{0.1, 0.1}).ID
	c := net.AddNode(geom.Point{0.2, 0}).ID
	d := net.AddNode(geom.Point{0.1, -0.1}).ID
	net.Link(a, b)
	net.Link(b, c)
	net.Link(c, d)
	net.Link(a, d)
	return net, [4]NodeID{a, b, c, d}
}

type stubOccupant struct {
	id  int
	dir Direction
	pos float64
}

func (s stubOccupant) VehicleID() int        { return s.id }
func (s stubOccupant) Heading() Direction    { return s.dir }
func (s stubOccupant) AxisPosition() float64 { return s.pos }

func TestLinkIsSymmetric(t *testing.T) {
	net, ids := diamond(t)
	a, b := ids[0], ids[1]

	e, ok := net.EdgeBetween(a, b)
	if !ok {
		t.Fatal("expected edge a-b")
	}
	back, ok := net.EdgeBetween(b, a)
	if !ok || back != e {
		t.Fatal("expected the same edge from both endpoints")
	}
	if e.Other(a) != b || e.Other(b) != a {
		t.Errorf("Other mismatch: %d %d", e.Other(a), e.Other(b))
	}
	if e.DirectionFrom(e.A) != Forward || e.DirectionFrom(e.B) != Backward {
		t.Error("expected Forward from A and Backward from B")
	}
	if _, ok := net.EdgeBetween(a, ids[2]); ok {
		t.Error("expected no diagonal a-c")
	}
}

func TestNeighborsSorted(t *testing.T) {
	net, ids := diamond(t)
	got := net.Nodes[ids[0]].Neighbors()
	if len(got) != 2 || got[0] > got[1] {
		t.Errorf("Neighbors = %v, want two ascending IDs", got)
	}
}

func TestEnterLeaveCountsPasses(t *testing.T) {
	net, ids := diamond(t)
	e, _ := net.EdgeBetween(ids[0], ids[1])
	other, _ := net.EdgeBetween(ids[1], ids[2])

	net.Enter(e, stubOccupant{id: 1, dir: Forward})
	net.Enter(e, stubOccupant{id: 2, dir: Forward})
	net.Enter(other, stubOccupant{id: 3, dir: Backward})

	if e.Passes != 2 || other.Passes != 1 {
		t.Errorf("passes = %d/%d, want 2/1", e.Passes, other.Passes)
	}
	if net.MaxPasses != 2 {
		t.Errorf("MaxPasses = %d, want 2", net.MaxPasses)
	}
	if got := net.Intensity(other); got != 0.5 {
		t.Errorf("Intensity = %v, want 0.5", got)
	}

	net.Leave(e, 1)
	if e.Count() != 1 || e.Holds(1) || !e.Holds(2) {
		t.Errorf("unexpected occupants after Leave: %v", e.Occupants())
	}
	if e.Passes != 2 {
		t.Error("Leave must not change the pass count")
	}
}

func TestIntensityWithoutTraffic(t *testing.T) {
	net, _ := diamond(t)
	if got := net.Intensity(net.Edges[0]); got != 0 {
		t.Errorf("Intensity = %v, want 0", got)
	}
}

func TestValidate(t *testing.T) {
	t.Run("diamond is valid", func(t *testing.T) {
		net, _ := diamond(t)
		if err := net.Validate(4, 0.2); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("crossing edges are rejected", func(t *testing.T) {
		net, ids := diamond(t)
		net.Link(ids[0], ids[2])
		net.Link(ids[1], ids[3])
		err := net.Validate(4, 0.3)
		if !errors.Is(err, ErrInvariant) {
			t.Errorf("expected ErrInvariant, got %v", err)
		}
	})

	t.Run("degree cap", func(t *testing.T) {
		net, _ := diamond(t)
		if err := net.Validate(1, 0.2); !errors.Is(err, ErrInvariant) {
			t.Errorf("expected ErrInvariant, got %v", err)
		}
	})

	t.Run("length cap", func(t *testing.T) {
		net, _ := diamond(t)
		if err := net.Validate(4, 0.1); !errors.Is(err, ErrInvariant) {
			t.Errorf("expected ErrInvariant, got %v", err)
		}
	})

	t.Run("broken symmetry", func(t *testing.T) {
		net, ids := diamond(t)
		delete(net.Nodes[ids[1]].Adj, ids[0])
		if err := net.Validate(4, 0.2); !errors.Is(err, ErrInvariant) {
			t.Errorf("expected ErrInvariant, got %v", err)
		}
	})
}

func TestCrossesAny(t *testing.T) {
	net, ids := diamond(t)
	if net.CrossesAny(ids[0], ids[2]) {
		t.Error("a-c only meets the rim at shared endpoints")
	}
	net.Link(ids[0], ids[2])
	if !net.CrossesAny(ids[1], ids[3]) {
		t.Error("expected b-d to cross a-c")
	}
}
