package config

import "time"

// Config is the full run configuration.
type Config struct {
	Network NetworkConfig `yaml:"network"`
	Traffic TrafficConfig `yaml:"traffic"`
	Run     RunConfig     `yaml:"run"`
	Feed    FeedConfig    `yaml:"feed"`
	Report  ReportConfig  `yaml:"report"`
	Log     LogConfig     `yaml:"log"`
}

// NetworkConfig controls network generation.
type NetworkConfig struct {
	Seed              uint64  `yaml:"seed"`
	Nodes             int     `yaml:"nodes"`
	MinSpacing        float64 `yaml:"min_spacing"`
	MaxEdgeLength     float64 `yaml:"max_edge_length"`
	MaxDegree         int     `yaml:"max_degree"`
	EdgeTrials        int     `yaml:"edge_trials,omitempty"` // 0 means nodes*10
	PlacementAttempts int     `yaml:"placement_attempts"`
}

// TrafficConfig holds the vehicle constants.
type TrafficConfig struct {
	SpawnSeed     uint64  `yaml:"spawn_seed"`
	SpawnInterval float64 `yaml:"spawn_interval"` // simulated seconds
	VehicleSpeed  float64 `yaml:"vehicle_speed"`
	MinGap        float64 `yaml:"min_gap"`
}

// RunConfig controls the clock.
type RunConfig struct {
	Tick     Duration `yaml:"tick"`
	Duration Duration `yaml:"duration,omitempty"` // 0 runs until interrupted
}

// FeedConfig controls the snapshot HTTP feed.
type FeedConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Addr         string   `yaml:"addr"`
	PushInterval Duration `yaml:"push_interval"`
}

// ReportConfig controls the statistics database.
type ReportConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	EveryTicks int    `yaml:"every_ticks"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration is a time.Duration written as a string in YAML ("50ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
