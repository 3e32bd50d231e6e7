package commands

import (
	"context"
	"estateguru-notifier/internal/components/chrono"
	"estateguru-notifier/internal/components/telemetry"
	"log/slog"

	"github.com/spf13/cobra"
)

var watchNow bool

func init() {
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "Also run once immediately instead of waiting for the first tick.")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch [--now]",
	Short: "Runs the scan on the configured cron schedule until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := setup(ctx, true)
		if err != nil {
			return err
		}
		defer a.shutdown()

		clock, err := chrono.NewStandardImpl(a.cfg.Schedule.Timezone)
		if err != nil {
			return err
		}
		telemetry.InstrumentPerfStats(ctx, a.tel)

		job := func() {
			err := runOnce(ctx, a)
			if err != nil {
				a.tel.ReportBroken("watch.run", err)
			}
		}

		cron := chrono.NewStandardCron(clock, a.tel)
		slog.Info("watching estateguru", "schedule", a.cfg.Schedule.Cron, "timezone", clock.Location().String())
		return schedule(ctx, cron, a.cfg.Schedule.Cron, watchNow, job)
	},
}

// schedule runs job on spec until ctx is done. With `now` the job also runs once before the
// schedule is registered, so the first run can never overlap a tick.
func schedule(ctx context.Context, cron chrono.StandardCron, spec string, now bool, job func()) error {
	if now {
		job()
	}

	err := cron.Cron(spec, job)
	if err != nil {
		<-cron.Stop().Done()
		return err
	}

	<-ctx.Done()
	slog.Info("stopping, waiting for the current run to finish")
	<-cron.Stop().Done()
	return nil
}
