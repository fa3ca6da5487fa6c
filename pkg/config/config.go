// Package config loads the simulator's YAML configuration.
//
// Config file locations (priority order):
//  1. $TRAFFICSIM_CONFIG
//  2. ./trafficsim.yaml
//  3. $XDG_CONFIG_HOME/trafficsim/config.yaml
//  4. ~/.config/trafficsim/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/ardalan-sia/planar-traffic/pkg/geom"
	"github.com/ardalan-sia/planar-traffic/pkg/graph"
	"github.com/ardalan-sia/planar-traffic/pkg/simulation"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Load finds and loads the config file, or returns defaults if none found.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}
	return &cfg, path, nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	n := &c.Network
	if n.Seed == 0 {
		n.Seed = 342125
	}
	if n.Nodes == 0 {
		n.Nodes = 50
	}
	if n.MinSpacing == 0 {
		n.MinSpacing = 0.05
	}
	if n.MaxEdgeLength == 0 {
		n.MaxEdgeLength = 0.2
	}
	if n.MaxDegree == 0 {
		n.MaxDegree = 4
	}
	if n.PlacementAttempts == 0 {
		n.PlacementAttempts = 1000
	}

	t := &c.Traffic
	if t.SpawnSeed == 0 {
		t.SpawnSeed = 1
	}
	if t.SpawnInterval == 0 {
		t.SpawnInterval = 0.1
	}
	if t.VehicleSpeed == 0 {
		t.VehicleSpeed = 0.1
	}
	if t.MinGap == 0 {
		t.MinGap = 0.07
	}

	if c.Run.Tick == 0 {
		c.Run.Tick = Duration(time.Second / 60)
	}

	if c.Feed.Addr == "" {
		c.Feed.Addr = ":8080"
	}
	if c.Feed.PushInterval == 0 {
		c.Feed.PushInterval = Duration(100 * time.Millisecond)
	}

	if c.Report.Path == "" {
		c.Report.Path = "./trafficsim.db"
	}
	if c.Report.EveryTicks == 0 {
		c.Report.EveryTicks = 60
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects values no run could use.
func (c *Config) Validate() error {
	switch {
	case c.Network.Nodes < 0:
		return fmt.Errorf("%w: network.nodes must not be negative", ErrInvalid)
	case c.Network.MinSpacing < 0:
		return fmt.Errorf("%w: network.min_spacing must not be negative", ErrInvalid)
	case c.Network.MaxEdgeLength < 0:
		return fmt.Errorf("%w: network.max_edge_length must not be negative", ErrInvalid)
	case c.Network.MaxDegree < 0:
		return fmt.Errorf("%w: network.max_degree must not be negative", ErrInvalid)
	case c.Traffic.SpawnInterval < 0:
		return fmt.Errorf("%w: traffic.spawn_interval must not be negative", ErrInvalid)
	case c.Traffic.VehicleSpeed < 0:
		return fmt.Errorf("%w: traffic.vehicle_speed must not be negative", ErrInvalid)
	case c.Traffic.MinGap < 0:
		return fmt.Errorf("%w: traffic.min_gap must not be negative", ErrInvalid)
	case c.Run.Tick < 0:
		return fmt.Errorf("%w: run.tick must be positive", ErrInvalid)
	case c.Run.Duration < 0:
		return fmt.Errorf("%w: run.duration must not be negative", ErrInvalid)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// BuildConfig maps the network section onto the builder's parameters.
func (c *Config) BuildConfig() graph.BuildConfig {
	return graph.BuildConfig{
		Nodes:             c.Network.Nodes,
		MinSpacing:        c.Network.MinSpacing,
		MaxEdgeLength:     c.Network.MaxEdgeLength,
		MaxDegree:         c.Network.MaxDegree,
		EdgeTrials:        c.Network.EdgeTrials,
		PlacementAttempts: c.Network.PlacementAttempts,
		Bounds:            geom.Square,
	}
}

// SimConfig maps the traffic section onto the simulator's constants.
func (c *Config) SimConfig() simulation.Config {
	return simulation.Config{
		SpawnInterval: c.Traffic.SpawnInterval,
		Speed:         c.Traffic.VehicleSpeed,
		Gap:           c.Traffic.MinGap,
	}
}
