package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ardalan-sia/planar-traffic/pkg/geom"
)

// ErrInvariant marks a corrupt model: a missing edge on a path, a broken
// adjacency, a crossing. Callers must not continue after seeing it.
var ErrInvariant = errors.New("network invariant violated")

// NodeID addresses a node in the network arena.
type NodeID int

// EdgeID addresses an edge in the network arena.
type EdgeID int

// Direction is the travel direction along an edge's A→B axis.
type Direction int

const (
	Forward  Direction = 1  // A → B
	Backward Direction = -1 // B → A
)

// Occupant is anything registered on an edge. Positions are measured on
// the edge's A→B axis.
type Occupant interface {
	VehicleID() int
	Heading() Direction
	AxisPosition() float64
}

// Node is an intersection.
type Node struct {
	ID     NodeID
	Pos    geom.Point
	Adj    map[NodeID]EdgeID
	Passes int // vehicles that have reached this node
}

// Degree returns the number of incident edges.
func (n *Node) Degree() int { return len(n.Adj) }

// Neighbors returns adjacent node IDs in ascending order.
func (n *Node) Neighbors() []NodeID {
	ids := make([]NodeID, 0, len(n.Adj))
	for id := range n.Adj {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Edge is an undirected road between A and B.
type Edge struct {
	ID     EdgeID
	A, B   NodeID
	Length float64
	Passes int // vehicles that have ever entered

	occupants map[int]Occupant
}

// Other returns the endpoint opposite n.
func (e *Edge) Other(n NodeID) NodeID {
	if n == e.A {
		return e.B
	}
	return e.A
}

// DirectionFrom returns the travel direction of a vehicle entering at n.
func (e *Edge) DirectionFrom(n NodeID) Direction {
	if n == e.A {
		return Forward
	}
	return Backward
}

// Has reports whether n is one of the endpoints.
func (e *Edge) Has(n NodeID) bool { return n == e.A || n == e.B }

// Occupants returns the current occupants ordered by vehicle ID.
func (e *Edge) Occupants() []Occupant {
	out := make([]Occupant, 0, len(e.occupants))
	for _, o := range e.occupants {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID() < out[j].VehicleID() })
	return out
}

// Count returns the number of occupants.
func (e *Edge) Count() int { return len(e.occupants) }

// Holds reports whether vehicle id is registered on the edge.
func (e *Edge) Holds(id int) bool {
	_, ok := e.occupants[id]
	return ok
}

// Network owns every node and edge of a run.
type Network struct {
	Nodes     []*Node
	Edges     []*Edge
	MaxPasses int
}

// New returns an empty network.
func New() *Network {
	return &Network{}
}

// AddNode appends a node at p.
func (n *Network) AddNode(p geom.Point) *Node {
	node := &Node{
		ID:  NodeID(len(n.Nodes)),
		Pos: p,
		Adj: make(map[NodeID]EdgeID),
	}
	n.Nodes = append(n.Nodes, node)
	return node
}

// Link creates the edge a-b and registers it on both endpoints. It does
// not check the builder constraints.
func (n *Network) Link(a, b NodeID) *Edge {
	na, nb := n.Nodes[a], n.Nodes[b]
	e := &Edge{
		ID:        EdgeID(len(n.Edges)),
		A:         a,
		B:         b,
		Length:    geom.Distance(na.Pos, nb.Pos),
		occupants: make(map[int]Occupant),
	}
	n.Edges = append(n.Edges, e)
	na.Adj[b] = e.ID
	nb.Adj[a] = e.ID
	return e
}

// Node returns the node with the given ID.
func (n *Network) Node(id NodeID) (*Node, bool) {
	if id < 0 || int(id) >= len(n.Nodes) {
		return nil, false
	}
	return n.Nodes[id], true
}

// Edge returns the edge with the given ID.
func (n *Network) Edge(id EdgeID) (*Edge, bool) {
	if id < 0 || int(id) >= len(n.Edges) {
		return nil, false
	}
	return n.Edges[id], true
}

// EdgeBetween returns the edge connecting a and b.
func (n *Network) EdgeBetween(a, b NodeID) (*Edge, bool) {
	na, ok := n.Node(a)
	if !ok {
		return nil, false
	}
	id, ok := na.Adj[b]
	if !ok {
		return nil, false
	}
	return n.Edge(id)
}

// Enter registers o on e and counts the pass.
func (n *Network) Enter(e *Edge, o Occupant) {
	e.occupants[o.VehicleID()] = o
	e.Passes++
	if n.MaxPasses < e.Passes {
		n.MaxPasses = e.Passes
	}
}

// Leave deregisters vehicle id from e.
func (n *Network) Leave(e *Edge, id int) {
	delete(e.occupants, id)
}

// Reach counts a vehicle arriving at node id.
func (n *Network) Reach(id NodeID) {
	if node, ok := n.Node(id); ok {
		node.Passes++
	}
}

// Intensity returns e's pass count normalised by the busiest edge.
func (n *Network) Intensity(e *Edge) float64 {
	if n.MaxPasses == 0 {
		return 0
	}
	return float64(e.Passes) / float64(n.MaxPasses)
}

// Validate checks adjacency symmetry, the degree cap, the length cap and
// that no two edges cross.
func (n *Network) Validate(maxDegree int, maxLength float64) error {
	for _, node := range n.Nodes {
		if maxDegree > 0 && node.Degree() > maxDegree {
			return fmt.Errorf("%w: node %d has degree %d > %d", ErrInvariant, node.ID, node.Degree(), maxDegree)
		}
		for nb, eid := range node.Adj {
			e, ok := n.Edge(eid)
			if !ok || !e.Has(node.ID) || !e.Has(nb) {
				return fmt.Errorf("%w: node %d lists edge %d to %d", ErrInvariant, node.ID, eid, nb)
			}
			back, ok := n.Nodes[nb].Adj[node.ID]
			if !ok || back != eid {
				return fmt.Errorf("%w: adjacency %d-%d is not symmetric", ErrInvariant, node.ID, nb)
			}
		}
	}
	for i, e := range n.Edges {
		if maxLength > 0 && e.Length > maxLength {
			return fmt.Errorf("%w: edge %d length %.4f > %.4f", ErrInvariant, e.ID, e.Length, maxLength)
		}
		for _, earlier := range n.Edges[:i] {
			if n.segmentCrosses(e.A, e.B, earlier) {
				return fmt.Errorf("%w: edges %d and %d cross", ErrInvariant, e.ID, earlier.ID)
			}
		}
	}
	return nil
}

// CrossesAny reports whether the segment a-b would cross an existing edge.
func (n *Network) CrossesAny(a, b NodeID) bool {
	for _, e := range n.Edges {
		if n.segmentCrosses(a, b, e) {
			return true
		}
	}
	return false
}

// segmentCrosses tests a-b against e. Edges sharing an endpoint with a-b
// only meet at that endpoint and never count.
func (n *Network) segmentCrosses(a, b NodeID, e *Edge) bool {
	if e.Has(a) || e.Has(b) {
		return false
	}
	return geom.Crosses(n.Nodes[a].Pos, n.Nodes[b].Pos, n.Nodes[e.A].Pos, n.Nodes[e.B].Pos)
}
