package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfwatch/shelfwatch/internal/utils"
	"github.com/shelfwatch/shelfwatch/pkg/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the price watcher daemon",
	Long: `Runs the recurring jobs until interrupted: batch price checks,
alert evaluation and retention cleanup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		checkMinutes, _ := cmd.Flags().GetInt("check-interval")
		alertMinutes, _ := cmd.Flags().GetInt("alert-interval")

		db, dbPath, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runner := scheduler.NewRunner(2, 64)
		defer runner.Close()

		s := scheduler.New(db, newOrchestrator(db), newEvaluator(db), runner, scheduler.Config{
			CheckInterval: time.Duration(checkMinutes) * time.Minute,
			AlertInterval: time.Duration(alertMinutes) * time.Minute,
			Freshness:     freshnessWindow(),
			BatchLimit:    viper.GetInt("check.batch_limit"),
			RetentionDays: viper.GetInt("retention.days"),
			LockPath:      dbPath,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s.Start(ctx)
		utils.Log.Info("Watcher running, press Ctrl+C to stop")
		<-ctx.Done()
		utils.Log.Info("Shutting down")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Int("check-interval", 10, "Minutes between batch price checks")
	watchCmd.Flags().Int("alert-interval", 30, "Minutes between alert evaluations")
}
