// Package config loads the exporter's YAML configuration and applies
// defaults. The defaults mirror the FSP Twins setup: two PSU modules at
// 0x58/0x59, PEC enabled, listen port 9986.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Exporter ExporterConfig `yaml:"exporter"`
	Bus      BusConfig      `yaml:"bus"`
	Poll     PollConfig     `yaml:"poll"`
	Modules  []ModuleConfig `yaml:"modules"`
}

type ExporterConfig struct {
	Listen    string `yaml:"listen"`
	Namespace string `yaml:"namespace"`
}

type BusConfig struct {
	Device string `yaml:"device"` // e.g. /dev/i2c-1
	PEC    *bool  `yaml:"pec"`    // SMBus packet error checking; default on
}

type PollConfig struct {
	Interval     Duration `yaml:"interval"`
	Retries      *int     `yaml:"retries"` // extra attempts per metric per cycle
	RetryBackoff Duration `yaml:"retry_backoff"`
}

type ModuleConfig struct {
	Name    string `yaml:"name"`
	Address uint16 `yaml:"address"` // 7-bit PMBus slave address

	// VOutExponent pins the linear16 exponent for READ_VOUT. When absent
	// the exponent is queried from VOUT_MODE on every cycle.
	VOutExponent *int `yaml:"vout_exponent"`
}

// Duration parses YAML strings like "5s" or "250ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given.
func Default() Config {
	pec := true
	retries := 3
	return Config{
		Exporter: ExporterConfig{
			Listen:    ":9986",
			Namespace: "pmbus",
		},
		Bus: BusConfig{
			Device: "/dev/i2c-1",
			PEC:    &pec,
		},
		Poll: PollConfig{
			Interval:     Duration(5 * time.Second),
			Retries:      &retries,
			RetryBackoff: Duration(100 * time.Millisecond),
		},
		Modules: []ModuleConfig{
			{Name: "1", Address: 0x58},
			{Name: "2", Address: 0x59},
		},
	}
}

// Load reads the YAML file at path on top of the defaults and validates the
// result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills fields the file left empty. Unmarshalling replaces the
// whole modules slice when present, so per-field gaps are patched here.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Exporter.Listen == "" {
		cfg.Exporter.Listen = def.Exporter.Listen
	}
	if cfg.Exporter.Namespace == "" {
		cfg.Exporter.Namespace = def.Exporter.Namespace
	}
	if cfg.Bus.Device == "" {
		cfg.Bus.Device = def.Bus.Device
	}
	if cfg.Bus.PEC == nil {
		cfg.Bus.PEC = def.Bus.PEC
	}
	if cfg.Poll.Interval <= 0 {
		cfg.Poll.Interval = def.Poll.Interval
	}
	if cfg.Poll.Retries == nil {
		cfg.Poll.Retries = def.Poll.Retries
	}
	if cfg.Poll.RetryBackoff <= 0 {
		cfg.Poll.RetryBackoff = def.Poll.RetryBackoff
	}
	if len(cfg.Modules) == 0 {
		cfg.Modules = def.Modules
	}
}

// Validate rejects configurations the poller cannot run with.
func Validate(cfg Config) error {
	if cfg.Bus.Device == "" {
		return fmt.Errorf("bus.device is required")
	}
	if cfg.Exporter.Listen == "" {
		return fmt.Errorf("exporter.listen is required")
	}
	if cfg.Poll.Retries != nil && *cfg.Poll.Retries < 0 {
		return fmt.Errorf("poll.retries must be >= 0")
	}
	if len(cfg.Modules) == 0 {
		return fmt.Errorf("at least one module is required")
	}
	names := map[string]bool{}
	addrs := map[uint16]bool{}
	for _, m := range cfg.Modules {
		if m.Name == "" {
			return fmt.Errorf("module name is required")
		}
		if names[m.Name] {
			return fmt.Errorf("duplicate module name %q", m.Name)
		}
		names[m.Name] = true
		if m.Address == 0 || m.Address > 0x7F {
			return fmt.Errorf("module %q: address 0x%02X outside 7-bit range", m.Name, m.Address)
		}
		if addrs[m.Address] {
			return fmt.Errorf("duplicate module address 0x%02X", m.Address)
		}
		addrs[m.Address] = true
	}
	return nil
}
