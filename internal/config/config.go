// Package config loads animator settings from YAML files.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/observability"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"github.com/signalsfoundry/ospf-animator/timectrl"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for an animator process.
type Config struct {
	Server    ServerConfig
	Playback  PlaybackConfig
	Logging   logging.Config
	Tracing   observability.TracingConfig
	Schedules ScheduleFiles
}

// ServerConfig holds listener addresses. An empty address disables that
// listener.
type ServerConfig struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string
}

// PlaybackConfig controls how the ticker drives the views.
type PlaybackConfig struct {
	FrameInterval time.Duration
	SpeedPercent  int
	Mode          timectrl.Mode
	Autoplay      bool
}

// ScheduleFiles optionally replace the built-in schedules with YAML files.
type ScheduleFiles struct {
	Packet   string
	Topology string
	Routing  string
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:    ":8080",
			GRPCAddr:    ":50051",
			MetricsAddr: ":9090",
		},
		Playback: PlaybackConfig{
			FrameInterval: 16 * time.Millisecond,
			SpeedPercent:  timectrl.DefaultSpeedPercent,
			Mode:          timectrl.RealTime,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Tracing: observability.TracingConfig{
			ServiceName: observability.DefaultServiceName,
			Exporter:    observability.ExporterStdout,
			SampleRatio: 1,
		},
	}
}

// Validate checks that the config is valid.
func (c Config) Validate() error {
	if c.Playback.FrameInterval <= 0 {
		return fmt.Errorf("playback.frame_interval must be positive, got %s", c.Playback.FrameInterval)
	}
	if c.Playback.SpeedPercent < timectrl.MinSpeedPercent || c.Playback.SpeedPercent > timectrl.MaxSpeedPercent {
		return fmt.Errorf("playback.speed must be in [%d, %d], got %d",
			timectrl.MinSpeedPercent, timectrl.MaxSpeedPercent, c.Playback.SpeedPercent)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Overrides loads the configured schedule files.
func (c Config) Overrides() (views.Overrides, error) {
	var o views.Overrides
	for _, f := range []struct {
		path string
		dst  **core.Schedule
	}{
		{c.Schedules.Packet, &o.Packet},
		{c.Schedules.Topology, &o.Topology},
		{c.Schedules.Routing, &o.Routing},
	} {
		if f.path == "" {
			continue
		}
		s, err := core.LoadSchedule(f.path)
		if err != nil {
			return views.Overrides{}, err
		}
		*f.dst = &s
	}
	return o, nil
}

// LoadFile reads a YAML config file and merges it with defaults.
// Fields not specified in the file retain their default values.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	// Use a raw intermediate struct to handle duration parsing.
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if raw.Server.HTTPAddr != nil {
		cfg.Server.HTTPAddr = *raw.Server.HTTPAddr
	}
	if raw.Server.GRPCAddr != nil {
		cfg.Server.GRPCAddr = *raw.Server.GRPCAddr
	}
	if raw.Server.MetricsAddr != nil {
		cfg.Server.MetricsAddr = *raw.Server.MetricsAddr
	}

	if raw.Playback.FrameInterval != "" {
		d, err := time.ParseDuration(raw.Playback.FrameInterval)
		if err != nil {
			return cfg, fmt.Errorf("parsing playback.frame_interval: %w", err)
		}
		cfg.Playback.FrameInterval = d
	}
	if raw.Playback.Speed != 0 {
		cfg.Playback.SpeedPercent = raw.Playback.Speed
	}
	switch strings.ToLower(raw.Playback.Mode) {
	case "":
	case "realtime", "accelerated":
		cfg.Playback.Mode = timectrl.ParseMode(strings.ToLower(raw.Playback.Mode))
	default:
		return cfg, fmt.Errorf("playback.mode must be realtime or accelerated, got %q", raw.Playback.Mode)
	}
	cfg.Playback.Autoplay = raw.Playback.Autoplay

	if raw.Logging.Level != "" {
		cfg.Logging.Level = raw.Logging.Level
	}
	if raw.Logging.Format != "" {
		cfg.Logging.Format = raw.Logging.Format
	}

	cfg.Tracing.Enabled = raw.Tracing.Enabled
	if raw.Tracing.Exporter != "" {
		cfg.Tracing.Exporter = raw.Tracing.Exporter
	}
	if raw.Tracing.Endpoint != "" {
		cfg.Tracing.Endpoint = raw.Tracing.Endpoint
	}
	if raw.Tracing.ServiceName != "" {
		cfg.Tracing.ServiceName = raw.Tracing.ServiceName
	}
	if raw.Tracing.SampleRatio != nil {
		cfg.Tracing.SampleRatio = *raw.Tracing.SampleRatio
	}

	cfg.Schedules = ScheduleFiles{
		Packet:   raw.Schedules.Packet,
		Topology: raw.Schedules.Topology,
		Routing:  raw.Schedules.Routing,
	}

	return cfg, nil
}

// rawConfig is the YAML-friendly representation with string durations.
// Pointers distinguish "unset" from an explicit empty value.
type rawConfig struct {
	Server struct {
		HTTPAddr    *string `yaml:"http_addr"`
		GRPCAddr    *string `yaml:"grpc_addr"`
		MetricsAddr *string `yaml:"metrics_addr"`
	} `yaml:"server"`
	Playback struct {
		FrameInterval string `yaml:"frame_interval"`
		Speed         int    `yaml:"speed"`
		Mode          string `yaml:"mode"`
		Autoplay      bool   `yaml:"autoplay"`
	} `yaml:"playback"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Tracing struct {
		Enabled     bool     `yaml:"enabled"`
		Exporter    string   `yaml:"exporter"`
		Endpoint    string   `yaml:"endpoint"`
		ServiceName string   `yaml:"service_name"`
		SampleRatio *float64 `yaml:"sample_ratio"`
	} `yaml:"tracing"`
	Schedules struct {
		Packet   string `yaml:"packet"`
		Topology string `yaml:"topology"`
		Routing  string `yaml:"routing"`
	} `yaml:"schedules"`
}

// WriteExample writes an example config file to the given path.
func WriteExample(path string) error {
	example := `server:
  http_addr: ":8080"
  grpc_addr: ":50051"
  metrics_addr: ":9090"

playback:
  frame_interval: 16ms
  speed: 50            # slider percent, 10-100; 50 plays at 1x
  mode: realtime       # realtime | accelerated
  autoplay: false

logging:
  level: info
  format: text

tracing:
  enabled: false
  exporter: stdout     # stdout | otlp
  endpoint: localhost:4317
  sample_ratio: 1.0

# schedules:
#   packet: schedules/packet.yaml
#   topology: schedules/topology.yaml
#   routing: schedules/routing.yaml
`
	return os.WriteFile(path, []byte(example), 0o644)
}
