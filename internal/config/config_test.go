package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
exporter:
  listen: ":9100"
  namespace: fsp
bus:
  device: /dev/i2c-7
  pec: false
poll:
  interval: 2s
  retries: 1
  retry_backoff: 50ms
modules:
  - name: "a"
    address: 0x58
    vout_exponent: -6
  - name: "b"
    address: 0x59
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Exporter.Listen != ":9100" || cfg.Exporter.Namespace != "fsp" {
		t.Errorf("exporter config = %+v", cfg.Exporter)
	}
	if cfg.Bus.Device != "/dev/i2c-7" || *cfg.Bus.PEC {
		t.Errorf("bus config = %+v", cfg.Bus)
	}
	if cfg.Poll.Interval.Std() != 2*time.Second || *cfg.Poll.Retries != 1 ||
		cfg.Poll.RetryBackoff.Std() != 50*time.Millisecond {
		t.Errorf("poll config = %+v", cfg.Poll)
	}
	if len(cfg.Modules) != 2 {
		t.Fatalf("modules = %+v", cfg.Modules)
	}
	if cfg.Modules[0].VOutExponent == nil || *cfg.Modules[0].VOutExponent != -6 {
		t.Errorf("module a vout_exponent = %v", cfg.Modules[0].VOutExponent)
	}
	if cfg.Modules[1].VOutExponent != nil {
		t.Errorf("module b should query VOUT_MODE, got fixed exponent %d", *cfg.Modules[1].VOutExponent)
	}
	if cfg.Modules[1].Address != 0x59 {
		t.Errorf("module b address = 0x%02X", cfg.Modules[1].Address)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "bus:\n  device: /dev/i2c-3\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()

	if cfg.Exporter.Listen != def.Exporter.Listen {
		t.Errorf("listen = %q, want default %q", cfg.Exporter.Listen, def.Exporter.Listen)
	}
	if !*cfg.Bus.PEC {
		t.Errorf("PEC should default to enabled")
	}
	if cfg.Poll.Interval.Std() != 5*time.Second || *cfg.Poll.Retries != 3 {
		t.Errorf("poll defaults not applied: %+v", cfg.Poll)
	}
	if len(cfg.Modules) != 2 || cfg.Modules[0].Address != 0x58 || cfg.Modules[1].Address != 0x59 {
		t.Errorf("default modules not applied: %+v", cfg.Modules)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "poll:\n  interval: soon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("invalid duration accepted")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config { return Default() }

	cfg := base()
	cfg.Modules = append(cfg.Modules, ModuleConfig{Name: "1", Address: 0x25})
	if err := Validate(cfg); err == nil {
		t.Error("duplicate module name accepted")
	}

	cfg = base()
	cfg.Modules = append(cfg.Modules, ModuleConfig{Name: "3", Address: 0x58})
	if err := Validate(cfg); err == nil {
		t.Error("duplicate module address accepted")
	}

	cfg = base()
	cfg.Modules[0].Address = 0x90
	if err := Validate(cfg); err == nil {
		t.Error("address beyond 7-bit range accepted")
	}

	cfg = base()
	cfg.Bus.Device = ""
	if err := Validate(cfg); err == nil {
		t.Error("empty device accepted")
	}

	if err := Validate(base()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}
