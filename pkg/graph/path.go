package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRoute covers every way a route request can come back empty.
	ErrNoRoute = errors.New("no route")

	ErrSameNode    = fmt.Errorf("%w: origin is the destination", ErrNoRoute)
	ErrUnreachable = fmt.Errorf("%w: destination unreachable", ErrNoRoute)
	ErrUnknownNode = fmt.Errorf("%w: unknown node", ErrNoRoute)
)

// Path lists the nodes still to visit, destination first. The last
// element is the next node to reach.
type Path []NodeID

// Hops returns the number of edges on the path.
func (p Path) Hops() int {
	if len(p) == 0 {
		return 0
	}
	return len(p) - 1
}

// Next returns the node at the end of the current edge.
func (p Path) Next() NodeID { return p[len(p)-1] }

// Dest returns the final node.
func (p Path) Dest() NodeID { return p[0] }

// FindPath returns a minimum-hop path from origin to dest, ordered
// destination first and ending at origin.
func FindPath(net *Network, origin, dest NodeID) (Path, error) {
	if _, ok := net.Node(origin); !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownNode, origin)
	}
	if _, ok := net.Node(dest); !ok {
		return nil, fmt.Errorf("%w %d", ErrUnknownNode, dest)
	}
	if origin == dest {
		return nil, ErrSameNode
	}

	visited := map[NodeID]bool{origin: true}
	prev := make(map[NodeID]NodeID)
	frontier := []NodeID{origin}

	for len(frontier) > 0 {
		var next []NodeID
		for _, id := range frontier {
			for _, nb := range net.Nodes[id].Neighbors() {
				if visited[nb] {
					continue
				}
				visited[nb] = true
				prev[nb] = id
				if nb == dest {
					return backtrack(net, prev, origin, dest)
				}
				next = append(next, nb)
			}
		}
		frontier = next
	}
	return nil, ErrUnreachable
}

func backtrack(net *Network, prev map[NodeID]NodeID, origin, dest NodeID) (Path, error) {
	path := Path{dest}
	for cur := dest; cur != origin; {
		cur = prev[cur]
		path = append(path, cur)
	}
	if len(path) < 2 {
		return nil, ErrSameNode
	}
	if err := path.Check(net); err != nil {
		return nil, err
	}
	return path, nil
}

// Check verifies that every consecutive pair on the path is connected.
func (p Path) Check(net *Network) error {
	for i := 0; i+1 < len(p); i++ {
		if _, ok := net.EdgeBetween(p[i+1], p[i]); !ok {
			return fmt.Errorf("%w: path has no edge %d-%d", ErrInvariant, p[i+1], p[i])
		}
	}
	return nil
}
