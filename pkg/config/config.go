// Package config loads the agent's ambient, site-wide settings: the
// network read timeout, the snmpbulkwalk binary location, and default
// ports per protocol. None of this travels over the boss protocol; it is
// entirely local to the machine the agent runs on.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmeubank/switchtool/pkg/snmpwalk"
	"github.com/jmeubank/switchtool/pkg/terminal"
	"github.com/jmeubank/switchtool/pkg/transport"
)

// DefaultPath is where the agent looks for a config file when none is
// given with --config.
const DefaultPath = "/etc/switchtool-agent/config.yaml"

// Config holds the agent's site-wide settings.
type Config struct {
	ReadTimeout      time.Duration
	SNMPBulkwalkPath string
	DefaultPorts     map[string]int
}

// raw mirrors the YAML file's shape; fields are pointers/strings so an
// absent key can be told apart from an explicit zero value.
type raw struct {
	ReadTimeout      string         `yaml:"read_timeout"`
	SNMPBulkwalkPath string         `yaml:"snmpbulkwalk_path"`
	DefaultPorts     map[string]int `yaml:"default_ports"`
}

// Default returns the settings the agent uses when no config file exists.
func Default() *Config {
	return &Config{
		ReadTimeout:      30 * time.Second,
		SNMPBulkwalkPath: "snmpbulkwalk",
	}
}

// Load reads path and overlays it on Default(). A missing file is not an
// error: the agent runs fine with no config file present at all.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if r.ReadTimeout != "" {
		d, err := time.ParseDuration(r.ReadTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing read_timeout: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if r.SNMPBulkwalkPath != "" {
		cfg.SNMPBulkwalkPath = r.SNMPBulkwalkPath
	}
	if len(r.DefaultPorts) > 0 {
		cfg.DefaultPorts = r.DefaultPorts
	}

	return cfg, nil
}

// Apply pushes the loaded settings into the packages that consult them.
// Separate from Load so tests can parse a config without mutating global
// package state.
func (c *Config) Apply() {
	terminal.NetworkTimeout = c.ReadTimeout
	snmpwalk.Binary = c.SNMPBulkwalkPath
	for proto, port := range c.DefaultPorts {
		transport.SetDefaultPort(proto, port)
	}
}
