package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete observations older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		if days <= 0 {
			days = viper.GetInt("retention.days")
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		deleted, err := db.CleanupObservationsOlderThan(context.Background(), days)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d observations older than %d days\n", deleted, days)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().Int("days", 0, "Retention in days (default from config)")
}
