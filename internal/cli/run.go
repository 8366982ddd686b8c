package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/config"
	"github.com/signalsfoundry/ospf-animator/internal/logging"
	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"github.com/signalsfoundry/ospf-animator/timectrl"
)

// maxRunDuration bounds a headless replay when no --duration is given.
const maxRunDuration = 10 * time.Minute

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		viewNames []string
		format    string
		speed     int
		duration  time.Duration
		frame     time.Duration
		allFrames bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay animations headless and print their frames",
		Long: `Plays one or more views on an accelerated virtual clock and prints a line
whenever a view's step, state or event counts change.

Views: packet, topology, routing (or "all").
Speed: slider percent 10-100; 50 plays at 1x.`,
		Example: `  ospf-animator run
  ospf-animator run --view routing --speed 100
  ospf-animator run --view all --format json --all-frames
  ospf-animator run --view topology --duration 6s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("speed") {
				speed = cfg.Playback.SpeedPercent
			}
			if !cmd.Flags().Changed("frame") {
				frame = cfg.Playback.FrameInterval
			}
			switch format {
			case "text", "json":
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			log := newLogger(cfg)
			state, err := buildState(cfg, log, nil)
			if err != nil {
				return err
			}
			selected, err := selectViews(state.Views(), viewNames)
			if err != nil {
				return err
			}

			r := &replayRun{
				out:       cmd.OutOrStdout(),
				json:      format == "json",
				allFrames: allFrames,
				selected:  selected,
				last:      make(map[string]frameKey),
			}
			summary, err := r.run(cmd.Context(), state, speed, frame, duration)
			if err != nil {
				return err
			}
			if r.json {
				return nil
			}
			fmt.Fprintln(r.out)
			fmt.Fprintln(r.out, "--- Replay Summary ---")
			fmt.Fprintf(r.out, "  Frames:        %d\n", summary.Frames)
			fmt.Fprintf(r.out, "  Virtual time:  %s\n", summary.Virtual)
			for _, snap := range summary.Final {
				fmt.Fprintf(r.out, "  %-9s      %s %s\n", snap.View+":", snap.Badge, snap.State.State)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&viewNames, "view", []string{views.ViewPacket}, "views to play (packet, topology, routing, all)")
	cmd.Flags().StringVar(&format, "format", "text", "output format (text, json)")
	cmd.Flags().IntVar(&speed, "speed", timectrl.DefaultSpeedPercent, "speed slider percent (10-100)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this much frame time (0 = until every view finishes)")
	cmd.Flags().DurationVar(&frame, "frame", 16*time.Millisecond, "virtual time per frame")
	cmd.Flags().BoolVar(&allFrames, "all-frames", false, "print every frame instead of only changes")

	return cmd
}

// buildState constructs the playback state with config schedule overrides.
func buildState(cfg config.Config, log logging.Logger, rec sim.MetricsRecorder) (*sim.PlaybackState, error) {
	overrides, err := cfg.Overrides()
	if err != nil {
		return nil, err
	}
	engineOpts := []core.EngineOption{core.WithLogger(log)}
	stateOpts := []sim.PlaybackStateOption{}
	if rec != nil {
		engineOpts = append(engineOpts, core.WithMetricsRecorder(rec))
		stateOpts = append(stateOpts, sim.WithMetricsRecorder(rec))
	}
	vs, err := views.Builtin(overrides, engineOpts...)
	if err != nil {
		return nil, err
	}
	stateOpts = append(stateOpts, sim.WithViews(vs...))
	return sim.NewPlaybackState(log, stateOpts...)
}

func selectViews(known, requested []string) ([]string, error) {
	if len(requested) == 0 {
		return known, nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, name := range requested {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "all" {
			return known, nil
		}
		found := false
		for _, k := range known {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", sim.ErrUnknownView, name)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// frameKey is what has to change for a frame to be printed.
type frameKey struct {
	state     core.SequencerState
	step      int
	active    int
	completed int
}

func keyOf(snap views.Snapshot) frameKey {
	return frameKey{
		state:     snap.State.State,
		step:      snap.State.StepIndex,
		active:    len(snap.State.Active),
		completed: len(snap.State.Completed),
	}
}

type runSummary struct {
	Frames  int
	Virtual time.Duration
	Final   []views.Snapshot
}

// replayRun prints frames of the selected views as a ticker drives them.
type replayRun struct {
	out       io.Writer
	json      bool
	allFrames bool
	selected  []string

	mu     sync.Mutex
	last   map[string]frameKey
	frames int
	final  []views.Snapshot
	err    error
}

func (r *replayRun) run(ctx context.Context, state *sim.PlaybackState, speed int, frame, limit time.Duration) (runSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	for _, name := range r.selected {
		if _, err := state.SetSpeed(ctx, name, speed); err != nil {
			return runSummary{}, err
		}
		if _, err := state.Play(ctx, name); err != nil {
			return runSummary{}, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := timectrl.NewTicker(frame, timectrl.Accelerated)
	state.AttachTicker(ticker)
	state.OnFrame(func(snaps []views.Snapshot) {
		if r.frame(snaps) {
			cancel()
		}
	})

	if limit <= 0 {
		limit = maxRunDuration
	}
	<-ticker.Start(ctx, limit)

	r.mu.Lock()
	defer r.mu.Unlock()
	return runSummary{Frames: r.frames, Virtual: ticker.Fed(), Final: r.final}, r.err
}

// frame prints the changed snapshots and reports whether every selected
// view has finished.
func (r *replayRun) frame(snaps []views.Snapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.final = r.final[:0]

	done := true
	for _, snap := range snaps {
		if !r.isSelected(snap.View) {
			continue
		}
		r.final = append(r.final, snap)
		if !snap.State.Finished {
			done = false
		}
		key := keyOf(snap)
		if prev, ok := r.last[snap.View]; ok && prev == key && !r.allFrames {
			continue
		}
		r.last[snap.View] = key
		if err := r.print(snap); err != nil && r.err == nil {
			r.err = err
		}
	}
	return done || r.err != nil
}

func (r *replayRun) isSelected(name string) bool {
	for _, s := range r.selected {
		if s == name {
			return true
		}
	}
	return false
}

func (r *replayRun) print(snap views.Snapshot) error {
	if r.json {
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.out, "%s\n", data)
		return err
	}
	rs := snap.State
	ids := make([]string, 0, len(rs.Active))
	for _, a := range rs.Active {
		ids = append(ids, fmt.Sprintf("%s@%.0f%%", a.Event.ID, a.Progress*100))
	}
	_, err := fmt.Fprintf(r.out, "%-9s %-9s %-11s t=%7.0fms done=%-3d active=[%s]\n",
		snap.View, snap.Badge, rs.State, rs.ElapsedMs, len(rs.Completed), strings.Join(ids, " "))
	return err
}
