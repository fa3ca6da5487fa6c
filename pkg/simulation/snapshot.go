package simulation

import (
	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/traffic"
)

// NodeView is a read-only copy of an intersection.
type NodeView struct {
	ID     graph.NodeID   `json:"id"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Passes int            `json:"passes"`
	Edges  []graph.EdgeID `json:"edges"` // ordered by neighbor ID
}

// EdgeView is a read-only copy of a road.
type EdgeView struct {
	ID        graph.EdgeID `json:"id"`
	A         graph.NodeID `json:"a"`
	B         graph.NodeID `json:"b"`
	Length    float64      `json:"length"`
	Passes    int          `json:"passes"`
	Intensity float64      `json:"intensity"`
	Density   float64      `json:"density"`
	Vehicles  int          `json:"vehicles"`
}

// VehicleView is a read-only copy of a live vehicle.
type VehicleView struct {
	ID       int          `json:"id"`
	Edge     graph.EdgeID `json:"edge"`
	Dest     graph.NodeID `json:"dest"`
	Offset   float64      `json:"offset"`
	Velocity float64      `json:"velocity"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
	Heading  float64      `json:"heading"` // radians
	Jammed   bool         `json:"jammed"`
	Hops     int          `json:"hops"`
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	Time      float64       `json:"time"`
	MaxPasses int           `json:"max_passes"`
	Nodes     []NodeView    `json:"nodes"`
	Edges     []EdgeView    `json:"edges"`
	Vehicles  []VehicleView `json:"vehicles"`
	Stats     Stats         `json:"stats"`
	AvgHops   float64       `json:"avg_hops"`
}

// Snapshot copies the current state. Nothing in the result aliases the
// simulator.
func (s *Simulator) Snapshot() Snapshot {
	snap := Snapshot{
		Time:      s.Time,
		MaxPasses: s.Net.MaxPasses,
		Nodes:     make([]NodeView, 0, len(s.Net.Nodes)),
		Edges:     make([]EdgeView, 0, len(s.Net.Edges)),
		Vehicles:  make([]VehicleView, 0, len(s.Vehicles)),
		Stats:     s.stats,
		AvgHops:   s.stats.AvgHops(),
	}

	for _, n := range s.Net.Nodes {
		nv := NodeView{ID: n.ID, X: n.Pos[0], Y: n.Pos[1], Passes: n.Passes}
		for _, nb := range n.Neighbors() {
			nv.Edges = append(nv.Edges, n.Adj[nb])
		}
		snap.Nodes = append(snap.Nodes, nv)
	}
	for _, e := range s.Net.Edges {
		snap.Edges = append(snap.Edges, EdgeView{
			ID:        e.ID,
			A:         e.A,
			B:         e.B,
			Length:    e.Length,
			Passes:    e.Passes,
			Intensity: s.Net.Intensity(e),
			Density:   traffic.Density(e),
			Vehicles:  e.Count(),
		})
	}
	for _, v := range s.Vehicles {
		p, heading := v.Position(s.Net)
		snap.Vehicles = append(snap.Vehicles, VehicleView{
			ID:       v.ID,
			Edge:     v.Edge,
			Dest:     v.Dest,
			Offset:   v.Offset,
			Velocity: v.Velocity(),
			X:        p[0],
			Y:        p[1],
			Heading:  heading,
			Jammed:   v.Jammed,
			Hops:     v.Hops,
		})
	}
	return snap
}
