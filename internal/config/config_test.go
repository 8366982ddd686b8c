package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"github.com/signalsfoundry/ospf-animator/kb"
	"github.com/signalsfoundry/ospf-animator/timectrl"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("default http addr = %q, want %q", cfg.Server.HTTPAddr, ":8080")
	}
	if cfg.Playback.FrameInterval != 16*time.Millisecond {
		t.Errorf("default frame interval = %v, want 16ms", cfg.Playback.FrameInterval)
	}
	if cfg.Playback.SpeedPercent != 50 || cfg.Playback.Mode != timectrl.RealTime {
		t.Errorf("default playback = %+v", cfg.Playback)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero frame interval", func(c *Config) { c.Playback.FrameInterval = 0 }},
		{"slow speed", func(c *Config) { c.Playback.SpeedPercent = 5 }},
		{"fast speed", func(c *Config) { c.Playback.SpeedPercent = 150 }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"tracing exporter", func(c *Config) { c.Tracing.Exporter = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tt.name)
			}
		})
	}
}

func TestLoadFileMergesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  grpc_addr: ""
playback:
  frame_interval: 10ms
  mode: accelerated
logging:
  format: json
tracing:
  enabled: true
  sample_ratio: 0.5
`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q, want default", cfg.Server.HTTPAddr)
	}
	if cfg.Server.GRPCAddr != "" {
		t.Errorf("grpc addr = %q, want disabled", cfg.Server.GRPCAddr)
	}
	if cfg.Playback.FrameInterval != 10*time.Millisecond || cfg.Playback.Mode != timectrl.Accelerated {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if cfg.Playback.SpeedPercent != 50 {
		t.Errorf("speed = %d, want default 50", cfg.Playback.SpeedPercent)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 0.5 || cfg.Tracing.Exporter != "stdout" {
		t.Errorf("tracing = %+v", cfg.Tracing)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := LoadFile(writeFile(t, "bad.yaml", "playback:\n  frame_interval: often\n")); err == nil {
		t.Error("bad duration should fail")
	}
	if _, err := LoadFile(writeFile(t, "mode.yaml", "playback:\n  mode: turbo\n")); err == nil {
		t.Error("unknown mode should fail")
	}
	if _, err := LoadFile(writeFile(t, "yaml.yaml", "server: [")); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestWriteExampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animator.yaml")
	if err := WriteExample(path); err != nil {
		t.Fatalf("WriteExample() error = %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(example) error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("example config invalid: %v", err)
	}
}

func TestOverridesLoadScheduleFiles(t *testing.T) {
	dir := t.TempDir()
	routing := filepath.Join(dir, "routing.yaml")
	routes := kb.RoutingTable().Routes()[:2]
	if err := core.WriteSchedule(routing, views.RoutingSchedule(routes)); err != nil {
		t.Fatalf("WriteSchedule() error = %v", err)
	}

	cfg := Default()
	cfg.Schedules.Routing = routing
	o, err := cfg.Overrides()
	if err != nil {
		t.Fatalf("Overrides() error = %v", err)
	}
	if o.Packet != nil || o.Topology != nil {
		t.Fatalf("unset schedules should stay nil, got %+v", o)
	}
	if o.Routing == nil || len(o.Routing.Steps[0].Events) != 2 {
		t.Fatalf("routing override = %+v, want 2 events", o.Routing)
	}

	cfg.Schedules.Packet = filepath.Join(dir, "missing.yaml")
	if _, err := cfg.Overrides(); err == nil {
		t.Fatal("Overrides() with missing file should fail")
	}
}
