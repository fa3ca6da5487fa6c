package graph

import (
	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/ardalan-sia/planar-traffic/pkg/geom"
	"github.com/ardalan-sia/planar-traffic/pkg/rng"
)

// BuildConfig fixes the shape of a generated network.
type BuildConfig struct {
	Nodes             int       // target node count
	MinSpacing        float64   // minimum distance between nodes
	MaxEdgeLength     float64   // longest road allowed
	MaxDegree         int       // roads per intersection
	EdgeTrials        int       // random connection attempts; 0 means Nodes*10
	PlacementAttempts int       // samples per node before placement gives up
	Bounds            orb.Bound // placement area
}

// DefaultBuildConfig returns the reference network parameters.
func DefaultBuildConfig() BuildConfig {
	return BuildConfig{
		Nodes:             50,
		MinSpacing:        0.05,
		MaxEdgeLength:     0.2,
		MaxDegree:         4,
		PlacementAttempts: 1000,
		Bounds:            geom.Square,
	}
}

func (c BuildConfig) trials() int {
	if c.EdgeTrials > 0 {
		return c.EdgeTrials
	}
	return c.Nodes * 10
}

// Build places nodes and roads drawing from src. The same config and seed
// always yield the same network.
func Build(cfg BuildConfig, src rng.Source, logger *log.Logger) *Network {
	net := New()
	placeNodes(net, cfg, src, logger)

	linked := 0
	n := len(net.Nodes)
	for i := 0; i < cfg.trials() && n > 1; i++ {
		s, e := NodeID(src.IntN(n)), NodeID(src.IntN(n))
		if s == e {
			continue
		}
		if canLink(net, cfg, s, e) {
			net.Link(s, e)
			linked++
		}
	}

	logger.Debug("network built",
		"nodes", len(net.Nodes), "edges", linked, "trials", cfg.trials())
	return net
}

func placeNodes(net *Network, cfg BuildConfig, src rng.Source, logger *log.Logger) {
	w := cfg.Bounds.Max[0] - cfg.Bounds.Min[0]
	h := cfg.Bounds.Max[1] - cfg.Bounds.Min[1]

	for len(net.Nodes) < cfg.Nodes {
		placed := false
		for attempt := 0; attempt < cfg.PlacementAttempts; attempt++ {
			p := geom.Point{
				cfg.Bounds.Min[0] + src.Float64()*w,
				cfg.Bounds.Min[1] + src.Float64()*h,
			}
			if spaced(net, p, cfg.MinSpacing) {
				net.AddNode(p)
				placed = true
				break
			}
		}
		if !placed {
			logger.Warn("placement budget exhausted",
				"placed", len(net.Nodes), "wanted", cfg.Nodes)
			return
		}
	}
}

func spaced(net *Network, p geom.Point, spacing float64) bool {
	for _, node := range net.Nodes {
		if geom.Distance(node.Pos, p) < spacing {
			return false
		}
	}
	return true
}

func canLink(net *Network, cfg BuildConfig, a, b NodeID) bool {
	na, nb := net.Nodes[a], net.Nodes[b]
	if _, ok := na.Adj[b]; ok {
		return false
	}
	if na.Degree() >= cfg.MaxDegree || nb.Degree() >= cfg.MaxDegree {
		return false
	}
	if geom.Distance(na.Pos, nb.Pos) > cfg.MaxEdgeLength {
		return false
	}
	return !net.CrossesAny(a, b)
}
