package core

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type rawSchedule struct {
	Name   string    `yaml:"name"`
	Settle string    `yaml:"settle,omitempty"`
	Steps  []rawStep `yaml:"steps"`
}

type rawStep struct {
	Description string     `yaml:"description"`
	Events      []rawEvent `yaml:"events"`
}

type rawEvent struct {
	ID       string `yaml:"id,omitempty"`
	From     int    `yaml:"from"`
	To       int    `yaml:"to"`
	Kind     string `yaml:"kind"`
	Delay    string `yaml:"delay,omitempty"`
	Duration string `yaml:"duration,omitempty"`
}

// LoadSchedule reads and validates a YAML schedule file.
func LoadSchedule(path string) (Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("read schedule %s: %w", path, err)
	}
	s, err := ParseSchedule(data)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule %s: %w", path, err)
	}
	return s, nil
}

// ParseSchedule decodes a YAML schedule. Missing durations default to
// DefaultEventDuration, a missing settle to zero, and missing event IDs to
// "<kind>-<step>-<index>". The result is validated.
func ParseSchedule(data []byte) (Schedule, error) {
	var raw rawSchedule
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Schedule{}, fmt.Errorf("decode yaml: %w", err)
	}

	settle, err := parseOptionalDuration(raw.Settle, 0)
	if err != nil {
		return Schedule{}, fmt.Errorf("settle: %w", err)
	}
	s := Schedule{Name: raw.Name, Settle: settle}
	for i, rs := range raw.Steps {
		st := Step{Description: rs.Description}
		for j, re := range rs.Events {
			start, err := parseOptionalDuration(re.Delay, 0)
			if err != nil {
				return Schedule{}, fmt.Errorf("step %d event %d delay: %w", i, j, err)
			}
			dur, err := parseOptionalDuration(re.Duration, DefaultEventDuration)
			if err != nil {
				return Schedule{}, fmt.Errorf("step %d event %d duration: %w", i, j, err)
			}
			id := re.ID
			if id == "" {
				id = fmt.Sprintf("%s-%d-%d", re.Kind, i, j)
			}
			st.Events = append(st.Events, TimedEvent{
				ID:       id,
				Source:   re.From,
				Target:   re.To,
				Kind:     re.Kind,
				Start:    start,
				Duration: dur,
			})
		}
		s.Steps = append(s.Steps, st)
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// MarshalSchedule encodes s in the format ParseSchedule reads.
func MarshalSchedule(s Schedule) ([]byte, error) {
	raw := rawSchedule{Name: s.Name}
	if s.Settle > 0 {
		raw.Settle = s.Settle.String()
	}
	for _, st := range s.Steps {
		rs := rawStep{Description: st.Description}
		for _, ev := range st.Events {
			rs.Events = append(rs.Events, rawEvent{
				ID:       ev.ID,
				From:     ev.Source,
				To:       ev.Target,
				Kind:     ev.Kind,
				Delay:    ev.Start.String(),
				Duration: ev.Duration.String(),
			})
		}
		raw.Steps = append(raw.Steps, rs)
	}
	return yaml.Marshal(raw)
}

// WriteSchedule writes s to path as YAML.
func WriteSchedule(path string, s Schedule) error {
	data, err := MarshalSchedule(s)
	if err != nil {
		return fmt.Errorf("encode schedule %q: %w", s.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schedule %s: %w", path, err)
	}
	return nil
}

// parseOptionalDuration accepts a Go duration string or a bare integer
// number of milliseconds.
func parseOptionalDuration(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return d, nil
}
