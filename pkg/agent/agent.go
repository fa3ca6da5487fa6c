// Package agent holds the per-vehicle motion state machine.
package agent

import (
	"fmt"
	"math"

	"github.com/ardalan-sia/planar-traffic/pkg/geom"
	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/traffic"
)

// Status is what a single Update did to the vehicle.
type Status int

const (
	Active Status = iota
	Jammed
	Arrived
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Jammed:
		return "jammed"
	case Arrived:
		return "arrived"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// DefaultSpeed is the cruising speed in network units per second.
const DefaultSpeed = 0.1

// Vehicle models one car on a fixed minimum-hop route.
type Vehicle struct {
	ID   int
	Dest graph.NodeID

	Edge   graph.EdgeID
	Offset float64 // progress from the entry endpoint, in [0, length)
	Speed  float64
	Dir    graph.Direction

	// Path holds the nodes still ahead, destination first. Once placed
	// its last element is the node at the end of Edge.
	Path   graph.Path
	Jammed bool
	Hops   int

	length float64
	placed bool
}

// New returns an unplaced vehicle heading for dest.
func New(id int, dest graph.NodeID, speed float64) *Vehicle {
	return &Vehicle{ID: id, Dest: dest, Edge: -1, Speed: speed}
}

func (v *Vehicle) VehicleID() int           { return v.ID }
func (v *Vehicle) Heading() graph.Direction { return v.Dir }
func (v *Vehicle) Velocity() float64        { return float64(v.Dir) * v.Speed }
func (v *Vehicle) Placed() bool             { return v.placed }

// AxisPosition maps the vehicle's progress onto its edge's A→B axis.
func (v *Vehicle) AxisPosition() float64 {
	if v.Dir == graph.Forward {
		return v.Offset
	}
	return v.length - v.Offset
}

// FindPath routes the vehicle from origin to its destination.
func (v *Vehicle) FindPath(net *graph.Network, origin graph.NodeID) error {
	path, err := graph.FindPath(net, origin, v.Dest)
	if err != nil {
		return err
	}
	v.Path = path
	v.Hops = path.Hops()
	return nil
}

// FirstEdge returns the edge a routed vehicle will be placed on and the
// direction it will travel it.
func (v *Vehicle) FirstEdge(net *graph.Network) (*graph.Edge, graph.Direction, error) {
	if len(v.Path) < 2 {
		return nil, 0, fmt.Errorf("%w: vehicle %d has no route to place", graph.ErrInvariant, v.ID)
	}
	return v.edgeAhead(net)
}

// Place attaches a routed vehicle to the first edge of its path.
func (v *Vehicle) Place(net *graph.Network) error {
	e, _, err := v.FirstEdge(net)
	if err != nil {
		return err
	}
	from := v.Path.Next()
	v.Path = v.Path[:len(v.Path)-1]
	v.enter(net, e, from, 0)
	return nil
}

// Update advances the vehicle by dt. Congestion on the current edge jams
// it in place; congestion at the landing point on the next edge holds it
// at the boundary without jamming.
func (v *Vehicle) Update(net *graph.Network, c traffic.Checker, dt float64) (Status, error) {
	e, ok := net.Edge(v.Edge)
	if !v.placed || !ok || !e.Holds(v.ID) {
		return Active, fmt.Errorf("%w: vehicle %d is not on edge %d", graph.ErrInvariant, v.ID, v.Edge)
	}

	travel := v.Speed * dt
	if c.IsBlockedAhead(e, v.AxisPosition(), v.Dir, travel, v.ID) {
		v.Jammed = true
		return Jammed, nil
	}
	v.Jammed = false

	landing := v.Offset + travel
	if landing >= e.Length && len(v.Path) > 1 {
		next, dir, err := v.edgeAhead(net)
		if err != nil {
			return Active, err
		}
		if c.EntryBlocked(next, dir, landing-e.Length, v.ID) {
			return Active, nil
		}
	}

	v.Offset = landing
	if v.Offset < e.Length {
		return Active, nil
	}
	return v.cross(net, e)
}

// cross moves the vehicle past the node at the end of e.
func (v *Vehicle) cross(net *graph.Network, e *graph.Edge) (Status, error) {
	reached := v.Path.Next()
	carry := v.Offset - e.Length
	net.Leave(e, v.ID)
	net.Reach(reached)

	if len(v.Path) == 1 {
		v.Path = v.Path[:0]
		v.placed = false
		return Arrived, nil
	}

	v.Path = v.Path[:len(v.Path)-1]
	next, ok := net.EdgeBetween(reached, v.Path.Next())
	if !ok {
		return Active, fmt.Errorf("%w: vehicle %d has no edge %d-%d", graph.ErrInvariant, v.ID, reached, v.Path.Next())
	}
	v.enter(net, next, reached, carry)
	return Active, nil
}

// edgeAhead returns the edge from the path's last node to the one before.
func (v *Vehicle) edgeAhead(net *graph.Network) (*graph.Edge, graph.Direction, error) {
	from, to := v.Path[len(v.Path)-1], v.Path[len(v.Path)-2]
	e, ok := net.EdgeBetween(from, to)
	if !ok {
		return nil, 0, fmt.Errorf("%w: vehicle %d has no edge %d-%d", graph.ErrInvariant, v.ID, from, to)
	}
	return e, e.DirectionFrom(from), nil
}

func (v *Vehicle) enter(net *graph.Network, e *graph.Edge, from graph.NodeID, offset float64) {
	if offset >= e.Length {
		offset = math.Nextafter(e.Length, 0)
	}
	v.Edge = e.ID
	v.length = e.Length
	v.Dir = e.DirectionFrom(from)
	v.Offset = offset
	v.placed = true
	net.Enter(e, v)
}

// Position returns the vehicle's point in the plane and the angle of its
// direction of travel.
func (v *Vehicle) Position(net *graph.Network) (geom.Point, float64) {
	e, ok := net.Edge(v.Edge)
	if !ok || e.Length == 0 {
		return geom.Point{}, 0
	}
	from, to := net.Nodes[e.A].Pos, net.Nodes[e.B].Pos
	if v.Dir == graph.Backward {
		from, to = to, from
	}
	return geom.Lerp(from, to, v.Offset/e.Length), geom.Heading(from, to)
}
