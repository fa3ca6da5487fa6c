// Package traffic decides when a vehicle must hold back for the one ahead.
package traffic

import "github.com/ardalan-sia/planar-traffic/pkg/graph"

// DefaultGap is the minimum following distance in network units.
const DefaultGap = 0.07

// Checker answers congestion queries against an edge's occupant set.
// Occupants travelling the other way never block.
type Checker struct {
	Gap float64
}

// New returns a checker with the given following gap.
func New(gap float64) Checker { return Checker{Gap: gap} }

// IsBlocked reports whether a vehicle at axisPos heading dir has a
// same-direction occupant strictly ahead of it and within the gap.
func (c Checker) IsBlocked(e *graph.Edge, axisPos float64, dir graph.Direction, self int) bool {
	return c.IsBlockedAhead(e, axisPos, dir, 0, self)
}

// IsBlockedAhead is IsBlocked with the window stretched by travel, the
// distance the vehicle is about to cover.
func (c Checker) IsBlockedAhead(e *graph.Edge, axisPos float64, dir graph.Direction, travel float64, self int) bool {
	reach := travel + c.Gap
	for _, o := range e.Occupants() {
		if o.VehicleID() == self || o.Heading() != dir {
			continue
		}
		p := o.AxisPosition()
		if dir == graph.Forward {
			if axisPos < p && p < axisPos+reach {
				return true
			}
		} else if axisPos-reach < p && p < axisPos {
			return true
		}
	}
	return false
}

// EntryBlocked reports whether a vehicle entering e heading dir and
// landing at progress landing would come within the gap of a
// same-direction occupant. Everything between the entry node and the
// landing point counts as ahead.
func (c Checker) EntryBlocked(e *graph.Edge, dir graph.Direction, landing float64, self int) bool {
	limit := landing + c.Gap
	for _, o := range e.Occupants() {
		if o.VehicleID() == self || o.Heading() != dir {
			continue
		}
		if Progress(e, dir, o.AxisPosition()) < limit {
			return true
		}
	}
	return false
}

// Progress converts an axis position into distance travelled from the
// entry endpoint for direction dir.
func Progress(e *graph.Edge, dir graph.Direction, axisPos float64) float64 {
	if dir == graph.Forward {
		return axisPos
	}
	return e.Length - axisPos
}

// Density = vehicles / length.
func Density(e *graph.Edge) float64 {
	if e.Length == 0 {
		return 0
	}
	return float64(e.Count()) / e.Length
}
