// Package simulation owns the network and the live vehicles and advances
// them tick by tick.
package simulation

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/ardalan-sia/planar-traffic/pkg/agent"
	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/rng"
	"github.com/ardalan-sia/planar-traffic/pkg/traffic"
)

// ErrNegativeTick is returned by Tick for dt < 0.
var ErrNegativeTick = errors.New("tick duration must not be negative")

// Config holds the traffic constants fixed for a run.
type Config struct {
	SpawnInterval float64 // simulated seconds between spawn attempts
	Speed         float64
	Gap           float64
}

// DefaultConfig returns the reference traffic constants.
func DefaultConfig() Config {
	return Config{
		SpawnInterval: 0.1,
		Speed:         agent.DefaultSpeed,
		Gap:           traffic.DefaultGap,
	}
}

// Simulator drives every live vehicle over a fixed network.
type Simulator struct {
	Net      *graph.Network
	Vehicles []*agent.Vehicle // ascending ID
	Time     float64

	cfg     Config
	checker traffic.Checker
	spawner rng.Source
	logger  *log.Logger
	stats   Stats
	nextID  int
}

// NewSimulator returns a simulator over net. Spawn origins and
// destinations are drawn from spawner.
func NewSimulator(net *graph.Network, cfg Config, spawner rng.Source, logger *log.Logger) *Simulator {
	return &Simulator{
		Net:     net,
		cfg:     cfg,
		checker: traffic.New(cfg.Gap),
		spawner: spawner,
		logger:  logger,
		nextID:  1,
	}
}

// Stats returns a copy of the accumulated counters.
func (s *Simulator) Stats() Stats { return s.stats }

// Tick advances simulated time by dt: maybe spawn one vehicle, then
// update every live vehicle once, retiring those that arrive. An error
// wrapping graph.ErrInvariant means the model is corrupt.
func (s *Simulator) Tick(dt float64) error {
	if dt < 0 || math.IsNaN(dt) {
		return fmt.Errorf("%w: %v", ErrNegativeTick, dt)
	}

	if s.spawnDue(dt) {
		if err := s.spawn(); err != nil {
			return err
		}
	}

	live := make([]*agent.Vehicle, len(s.Vehicles))
	copy(live, s.Vehicles)
	kept := make([]*agent.Vehicle, 0, len(live))
	for i, v := range live {
		st, err := v.Update(s.Net, s.checker, dt)
		if err != nil {
			s.Vehicles = append(kept, live[i:]...)
			return fmt.Errorf("failed to update vehicle %d: %w", v.ID, err)
		}
		switch st {
		case agent.Jammed:
			s.stats.JammedSteps++
		case agent.Arrived:
			s.stats.arrive(v.Hops)
			s.logger.Debug("vehicle arrived", "id", v.ID, "dest", v.Dest, "hops", v.Hops)
			continue
		default:
			s.stats.MovingSteps++
		}
		kept = append(kept, v)
	}
	s.Vehicles = kept
	s.Time += dt
	return nil
}

// spawnDue reports whether T+dt crosses a multiple of the spawn interval.
func (s *Simulator) spawnDue(dt float64) bool {
	iv := s.cfg.SpawnInterval
	if iv <= 0 {
		return false
	}
	return math.Mod(s.Time+dt, iv) < math.Mod(s.Time, iv)
}

// spawn tries to add one vehicle between two random nodes. Unroutable
// and crowded attempts are dropped without error.
func (s *Simulator) spawn() error {
	n := len(s.Net.Nodes)
	if n == 0 {
		return nil
	}
	origin := graph.NodeID(s.spawner.IntN(n))
	dest := graph.NodeID(s.spawner.IntN(n))

	v := agent.New(s.nextID, dest, s.cfg.Speed)
	if err := v.FindPath(s.Net, origin); err != nil {
		if errors.Is(err, graph.ErrNoRoute) {
			s.stats.Discarded++
			return nil
		}
		return err
	}

	e, dir, err := v.FirstEdge(s.Net)
	if err != nil {
		return err
	}
	if s.checker.EntryBlocked(e, dir, 0, v.ID) {
		s.stats.Crowded++
		return nil
	}
	if err := v.Place(s.Net); err != nil {
		return err
	}

	s.nextID++
	s.stats.Spawned++
	s.Vehicles = append(s.Vehicles, v)
	s.logger.Debug("vehicle spawned", "id", v.ID, "origin", origin, "dest", dest, "hops", v.Hops)
	return nil
}
