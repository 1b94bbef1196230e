package cmd

import (
	"fmt"
	"log"

	"github.com/NadavTAshkenazi/smash/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the shell event log.",
}

// reportUpdater is implemented by every report over the event log.
type reportUpdater interface {
	Update(le *logger.LogEntry)
}

func eventReportCommand(use, short string, newReport func() reportUpdater) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			config, err := loadConfig(log.New(cmd.ErrOrStderr(), "", 0))
			if err != nil {
				return err
			}

			fd, err := config.ReadEventLog()
			if err != nil {
				return err
			}
			defer fd.Close()

			report := newReport()
			if err := logger.ReadJSONLinesLog(fd, report.Update); err != nil {
				return err
			}

			out, err := yaml.Marshal(report)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(out))

			return nil
		},
	}
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(
		eventReportCommand("report", "Show a report of events.", func() reportUpdater {
			return &logger.Report{}
		}),
		eventReportCommand("bugs", "Show failed commands grouped by error.", func() reportUpdater {
			return logger.NewBugReport()
		}),
		eventReportCommand("sessions", "Show the commands run in each session.", func() reportUpdater {
			return &logger.InteractionReport{}
		}),
	)
}
