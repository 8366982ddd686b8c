package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ospf-animator/core"
	"github.com/signalsfoundry/ospf-animator/internal/views"
	"github.com/signalsfoundry/ospf-animator/kb"
)

func newScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Export and check animation schedules",
		Long: `Schedules script when each packet, discovery or calculation happens.
Export the built-ins as YAML, edit them, and point the config's
schedules section at the edited files.`,
	}
	cmd.AddCommand(newScheduleExportCmd(), newScheduleValidateCmd())
	return cmd
}

// builtinSchedules returns the default schedule of every view.
func builtinSchedules() []core.Schedule {
	return []core.Schedule{
		views.PacketExchangeSchedule(),
		views.TopologySchedule(kb.OSPFTopology().Links()),
		views.RoutingSchedule(kb.RoutingTable().Routes()),
	}
}

func newScheduleExportCmd() *cobra.Command {
	var (
		dir      string
		viewName string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in schedules as YAML files",
		Example: `  ospf-animator schedule export --dir schedules
  ospf-animator schedule export --view routing`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			written := 0
			for _, s := range builtinSchedules() {
				if viewName != "" && s.Name != viewName {
					continue
				}
				path := filepath.Join(dir, s.Name+".yaml")
				if err := core.WriteSchedule(path, s); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s schedule to %s\n", s.Name, path)
				written++
			}
			if written == 0 {
				return fmt.Errorf("no built-in schedule named %q", viewName)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&viewName, "view", "", "export only this view's schedule")

	return cmd
}

func newScheduleValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "validate FILE...",
		Short:   "Check schedule files and print a summary",
		Example: `  ospf-animator schedule validate schedules/packet.yaml`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, path := range args {
				s, err := core.LoadSchedule(path)
				if err != nil {
					return err
				}
				var total time.Duration
				for i := range s.Steps {
					total += s.HoldEnd(i)
				}
				fmt.Fprintf(out, "%s: %q %d steps, %d events, settle %s, total %s\n",
					path, s.Name, len(s.Steps), s.EventCount(), s.Settle, total)
			}
			return nil
		},
	}
}
