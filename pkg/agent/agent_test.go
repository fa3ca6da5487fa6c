package agent

import (
	"errors"
	"math"
	"testing"

	"github.com/ardalan-sia/planar-traffic/pkg/geom"
	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/traffic"
)

// corner builds A(0,0)-B(1,0)-C(1,0.5) and an unconnected D.
func corner(t *testing.T) (*graph.Network, [4]graph.NodeID) {
	t.Helper()
	net := graph.New()
	a := net.AddNode(geom.Point{0, 0}).ID
	b := net.AddNode(geom.Point{1, 0}).ID
	c := net.AddNode(geom.Point{1, 0.5}).ID
	d := net.AddNode(geom.Point{5, 5}).ID
	net.Link(a, b)
	net.Link(b, c)
	return net, [4]graph.NodeID{a, b, c, d}
}

func spawn(t *testing.T, net *graph.Network, id int, origin, dest graph.NodeID, speed float64) *Vehicle {
	t.Helper()
	v := New(id, dest, speed)
	if err := v.FindPath(net, origin); err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if err := v.Place(net); err != nil {
		t.Fatalf("Place: %v", err)
	}
	return v
}

func mustUpdate(t *testing.T, v *Vehicle, net *graph.Network, c traffic.Checker, dt float64) Status {
	t.Helper()
	st, err := v.Update(net, c, dt)
	if err != nil {
		t.Fatalf("Update vehicle %d: %v", v.ID, err)
	}
	return st
}

func TestPlace(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[0], ids[2], DefaultSpeed)

	ab, _ := net.EdgeBetween(ids[0], ids[1])
	if v.Edge != ab.ID || v.Offset != 0 || v.Dir != graph.Forward {
		t.Fatalf("unexpected placement: edge %d offset %v dir %d", v.Edge, v.Offset, v.Dir)
	}
	if v.Hops != 2 {
		t.Errorf("Hops = %d, want 2", v.Hops)
	}
	if v.Path.Next() != ids[1] || v.Path.Dest() != ids[2] {
		t.Errorf("Path = %v, want [C B]", v.Path)
	}
	if !ab.Holds(v.ID) || ab.Passes != 1 {
		t.Error("expected the vehicle registered on A-B")
	}
}

func TestPlaceBackward(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[1], ids[0], DefaultSpeed)
	if v.Dir != graph.Backward {
		t.Fatalf("Dir = %d, want Backward", v.Dir)
	}
	v.Offset = 0.25
	if got := v.AxisPosition(); got != 0.75 {
		t.Errorf("AxisPosition = %v, want 0.75", got)
	}
	if got := v.Velocity(); got != -DefaultSpeed {
		t.Errorf("Velocity = %v, want %v", got, -DefaultSpeed)
	}
}

func TestFindPathUnreachable(t *testing.T) {
	net, ids := corner(t)
	v := New(1, ids[3], DefaultSpeed)
	if err := v.FindPath(net, ids[0]); !errors.Is(err, graph.ErrNoRoute) {
		t.Errorf("expected ErrNoRoute, got %v", err)
	}
	if v.Placed() {
		t.Error("unrouted vehicle must stay unplaced")
	}
}

// One edge boundary crossed, landing exactly at the start of the next edge.
func TestUpdateCrossesBoundary(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[0], ids[2], 0.5)
	v.Offset = 0.5

	if st := mustUpdate(t, v, net, traffic.New(0.1), 1.0); st != Active {
		t.Fatalf("status = %v, want active", st)
	}
	ab, _ := net.EdgeBetween(ids[0], ids[1])
	bc, _ := net.EdgeBetween(ids[1], ids[2])
	if v.Edge != bc.ID {
		t.Fatalf("expected to be on B-C, got edge %d", v.Edge)
	}
	if v.Offset != 0 {
		t.Errorf("Offset = %v, want 0", v.Offset)
	}
	if ab.Holds(v.ID) || !bc.Holds(v.ID) {
		t.Error("occupancy not moved to B-C")
	}
	if bc.Passes != 1 || net.Nodes[ids[1]].Passes != 1 {
		t.Errorf("passes: edge %d node %d, want 1/1", bc.Passes, net.Nodes[ids[1]].Passes)
	}
	if len(v.Path) != 1 || v.Path.Next() != ids[2] {
		t.Errorf("Path = %v, want [C]", v.Path)
	}
}

func TestUpdateTrailingVehicleJams(t *testing.T) {
	net, ids := corner(t)
	c := traffic.New(0.1)
	trail := spawn(t, net, 1, ids[0], ids[2], 0.05)
	lead := spawn(t, net, 2, ids[0], ids[2], 0.05)
	trail.Offset = 0.4
	lead.Offset = 0.5

	if st := mustUpdate(t, trail, net, c, 1); st != Jammed {
		t.Errorf("trailing status = %v, want jammed", st)
	}
	if !trail.Jammed || trail.Offset != 0.4 {
		t.Errorf("trailing vehicle moved or not flagged: %v %v", trail.Jammed, trail.Offset)
	}
	if st := mustUpdate(t, lead, net, c, 1); st != Active {
		t.Errorf("leading status = %v, want active", st)
	}
	if lead.Jammed || math.Abs(lead.Offset-0.55) > 1e-12 {
		t.Errorf("leading vehicle should advance to 0.55, got %v", lead.Offset)
	}
}

func TestUpdateOncomingDoesNotBlock(t *testing.T) {
	net, ids := corner(t)
	c := traffic.New(0.1)
	east := spawn(t, net, 1, ids[0], ids[1], 0.05)
	west := spawn(t, net, 2, ids[1], ids[0], 0.05)
	east.Offset = 0.4
	west.Offset = 0.55 // axis 0.45

	if st := mustUpdate(t, east, net, c, 1); st != Active {
		t.Errorf("status = %v, want active", st)
	}
	if st := mustUpdate(t, west, net, c, 1); st != Active {
		t.Errorf("status = %v, want active", st)
	}
}

func TestUpdateArrives(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[0], ids[1], 0.5)
	v.Offset = 0.9

	if st := mustUpdate(t, v, net, traffic.New(0.1), 1); st != Arrived {
		t.Fatalf("status = %v, want arrived", st)
	}
	ab, _ := net.EdgeBetween(ids[0], ids[1])
	if ab.Count() != 0 {
		t.Error("arrived vehicle must leave its edge")
	}
	if net.Nodes[ids[1]].Passes != 1 {
		t.Error("destination pass not counted")
	}
	if v.Placed() {
		t.Error("arrived vehicle must not stay placed")
	}
}

func TestUpdateHoldsForNextEdge(t *testing.T) {
	net, ids := corner(t)
	c := traffic.New(0.1)
	ahead := spawn(t, net, 1, ids[1], ids[2], 0.5)
	ahead.Offset = 0.05
	v := spawn(t, net, 2, ids[0], ids[2], 0.5)
	v.Offset = 0.9

	if st := mustUpdate(t, v, net, c, 0.4); st != Active {
		t.Fatalf("status = %v, want active", st)
	}
	ab, _ := net.EdgeBetween(ids[0], ids[1])
	if v.Edge != ab.ID || v.Offset != 0.9 {
		t.Errorf("vehicle should hold at 0.9 on A-B, got edge %d offset %v", v.Edge, v.Offset)
	}
	if v.Jammed {
		t.Error("holding at a boundary is not a jam")
	}

	ahead.Offset = 0.3
	mustUpdate(t, v, net, c, 0.4)
	if v.Edge == ab.ID {
		t.Error("vehicle should enter B-C once the way is clear")
	}
}

func TestUpdateClampsCarryOver(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[0], ids[2], 2)
	v.Offset = 0.9

	mustUpdate(t, v, net, traffic.New(0.1), 1)
	bc, _ := net.EdgeBetween(ids[1], ids[2])
	if v.Edge != bc.ID {
		t.Fatalf("expected B-C, got edge %d", v.Edge)
	}
	if v.Offset >= bc.Length || v.Offset < bc.Length-1e-9 {
		t.Errorf("Offset = %v, want just below %v", v.Offset, bc.Length)
	}
}

func TestUpdateBrokenPath(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[0], ids[2], 0.5)
	v.Path = graph.Path{ids[3], ids[1]}
	v.Offset = 0.9

	if _, err := v.Update(net, traffic.New(0.1), 1); !errors.Is(err, graph.ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestUpdateUnplaced(t *testing.T) {
	net, ids := corner(t)
	v := New(1, ids[2], DefaultSpeed)
	if _, err := v.Update(net, traffic.New(0.1), 1); !errors.Is(err, graph.ErrInvariant) {
		t.Errorf("expected ErrInvariant, got %v", err)
	}
}

func TestPosition(t *testing.T) {
	net, ids := corner(t)
	v := spawn(t, net, 1, ids[1], ids[0], DefaultSpeed)
	v.Offset = 0.25

	p, heading := v.Position(net)
	if math.Abs(p[0]-0.75) > 1e-12 || p[1] != 0 {
		t.Errorf("Position = %v, want (0.75, 0)", p)
	}
	if math.Abs(heading-math.Pi) > 1e-12 {
		t.Errorf("heading = %v, want pi", heading)
	}
}
