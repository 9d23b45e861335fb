// Package config loads engine settings from a YAML file with flag-friendly
// defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the server configuration.
type Settings struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port"`
	// DBPath is the SQLite database file, ":memory:" for ephemeral.
	DBPath string `yaml:"db_path"`
	// CORSOrigins are the allowed browser origins; "*" by default.
	CORSOrigins []string `yaml:"cors_origins"`
}

// Default returns the settings used when no file or flags override them.
func Default() Settings {
	return Settings{
		Port:        8080,
		DBPath:      "license-engine.db",
		CORSOrigins: []string{"*"},
	}
}

// Load reads settings from path. Returns the defaults (not an error) if the
// file does not exist; a present-but-invalid file is an error.
func Load(path string) (Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return s, fmt.Errorf("invalid port %d in %s", s.Port, path)
	}
	if s.DBPath == "" {
		s.DBPath = Default().DBPath
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = Default().CORSOrigins
	}
	return s, nil
}
