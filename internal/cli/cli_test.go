package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/views"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCmd_TextSummary(t *testing.T) {
	out, err := execute(t, "run", "--view", "routing", "--speed", "100", "--log-level", "error")
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "--- Replay Summary ---") {
		t.Fatalf("output missing summary:\n%s", out)
	}
	if !strings.Contains(out, "finished") {
		t.Fatalf("routing view never finished:\n%s", out)
	}
}

func TestRunCmd_JSONFrames(t *testing.T) {
	out, err := execute(t, "run", "--view", "packet", "--format", "json", "--speed", "100", "--log-level", "error")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var last struct {
		View  string           `json:"view"`
		State core.RenderState `json:"state"`
	}
	lines := 0
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if err := json.Unmarshal(sc.Bytes(), &last); err != nil {
			t.Fatalf("line %d is not a snapshot: %v", lines+1, err)
		}
		if last.View != views.ViewPacket {
			t.Fatalf("line %d view = %q, want packet", lines+1, last.View)
		}
		lines++
	}
	if lines < 5 {
		t.Fatalf("got %d frames, want at least one per step", lines)
	}
	if !last.State.Finished || last.State.StepCount != 5 {
		t.Fatalf("final state = %+v, want finished after 5 steps", last.State)
	}
}

func TestRunCmd_DurationStopsEarly(t *testing.T) {
	out, err := execute(t, "run", "--view", "topology", "--duration", "160ms", "--log-level", "error")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(out, "Frames:        10") {
		t.Fatalf("expected 10 frames of 16ms:\n%s", out)
	}
	if strings.Contains(out, "finished") {
		t.Fatalf("topology should not finish in 160ms:\n%s", out)
	}
}

func TestRunCmd_Errors(t *testing.T) {
	if _, err := execute(t, "run", "--view", "quiz"); err == nil {
		t.Error("unknown view should fail")
	}
	if _, err := execute(t, "run", "--format", "xml"); err == nil {
		t.Error("unknown format should fail")
	}
	if _, err := execute(t, "run", "--speed", "500"); err == nil {
		t.Error("out-of-range speed should fail")
	}
	if _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing config file should fail")
	}
}

func TestSelectViews(t *testing.T) {
	known := []string{"packet", "topology", "routing"}
	got, err := selectViews(known, []string{"Routing", "packet", "routing"})
	if err != nil {
		t.Fatalf("selectViews() error = %v", err)
	}
	if strings.Join(got, ",") != "routing,packet" {
		t.Fatalf("selectViews() = %v, want [routing packet]", got)
	}
	got, _ = selectViews(known, []string{"all"})
	if len(got) != 3 {
		t.Fatalf("selectViews(all) = %v, want every view", got)
	}
}

func TestScheduleExportAndValidate(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "schedule", "export", "--dir", dir)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.Count(out, "Wrote") != 3 {
		t.Fatalf("expected three schedules written:\n%s", out)
	}

	for _, name := range []string{views.ViewPacket, views.ViewTopology, views.ViewRouting} {
		path := filepath.Join(dir, name+".yaml")
		s, err := core.LoadSchedule(path)
		if err != nil {
			t.Fatalf("LoadSchedule(%s) error = %v", name, err)
		}
		if s.Name != name {
			t.Fatalf("schedule name = %q, want %q", s.Name, name)
		}
	}

	out, err = execute(t, "schedule", "validate", filepath.Join(dir, "packet.yaml"))
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(out, "5 steps, 32 events") {
		t.Fatalf("validate summary = %q", out)
	}
}

func TestScheduleExportUnknownView(t *testing.T) {
	if _, err := execute(t, "schedule", "export", "--dir", t.TempDir(), "--view", "quiz"); err == nil {
		t.Fatal("exporting an unknown view should fail")
	}
}

func TestRunCmd_UsesScheduleOverride(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, "schedule", "export", "--dir", dir, "--view", "routing"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	cfgPath := filepath.Join(dir, "animator.yaml")
	cfg := "schedules:\n  routing: " + filepath.Join(dir, "routing.yaml") + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	out, err := execute(t, "run", "--config", cfgPath, "--view", "routing", "--speed", "100", "--log-level", "error")
	if err != nil {
		t.Fatalf("run with override failed: %v", err)
	}
	if !strings.Contains(out, "finished") {
		t.Fatalf("override run never finished:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animator.yaml")
	if _, err := execute(t, "config", "init", "--output", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := execute(t, "config", "init", "--output", path); err == nil {
		t.Fatal("config init should refuse to overwrite")
	}
	if _, err := execute(t, "config", "init", "--output", path, "--force"); err != nil {
		t.Fatalf("config init --force failed: %v", err)
	}
	if _, err := execute(t, "run", "--config", path, "--view", "routing", "--duration", "16ms", "--log-level", "error"); err != nil {
		t.Fatalf("generated config rejected: %v", err)
	}
}

func TestServeCmd_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{
		"serve",
		"--http-addr", "127.0.0.1:0",
		"--grpc-addr", "127.0.0.1:0",
		"--metrics-addr", "127.0.0.1:0",
		"--autoplay",
		"--log-level", "error",
	})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop after context cancellation")
	}
}
