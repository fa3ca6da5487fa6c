package config

import (
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath names an explicit config file.
	EnvConfigPath = "TRAFFICSIM_CONFIG"
	// ConfigFileName is looked up in the working directory.
	ConfigFileName = "trafficsim.yaml"
	// ConfigDirName is the directory under the XDG config home.
	ConfigDirName = "trafficsim"
)

// FindConfigPath searches, in order:
//  1. $TRAFFICSIM_CONFIG
//  2. ./trafficsim.yaml
//  3. $XDG_CONFIG_HOME/trafficsim/config.yaml
//  4. ~/.config/trafficsim/config.yaml
//
// Returns "" if none exists.
func FindConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" && fileExists(path) {
		return path
	}

	if fileExists(ConfigFileName) {
		if abs, err := filepath.Abs(ConfigFileName); err == nil {
			return abs
		}
		return ConfigFileName
	}

	if xdgHome := os.Getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		path := filepath.Join(xdgHome, ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}

	if home := os.Getenv("HOME"); home != "" {
		path := filepath.Join(home, ".config", ConfigDirName, "config.yaml")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
