package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func alertUserID(cmd *cobra.Command) (int64, error) {
	userID, _ := cmd.Flags().GetInt64("user")
	if userID <= 0 {
		return 0, errors.New("--user is required")
	}
	return userID, nil
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List price alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := alertUserID(cmd)
		if err != nil {
			return err
		}
		unread, _ := cmd.Flags().GetBool("unread")

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		alerts, err := db.ListAlerts(context.Background(), userID, unread)
		if err != nil {
			return err
		}
		for _, a := range alerts {
			status := "read"
			if !a.IsRead {
				status = "unread"
			}
			fmt.Printf("%d\t%s\titem %d\t%s <= %s\tsave %s (%.1f%%)\t%s\n",
				a.ID, a.TriggeredAt.Format("2006-01-02 15:04"), a.ItemID,
				a.TriggeredPrice, a.TargetPrice, a.Savings(), a.SavingsPercentage(), status)
		}
		return nil
	},
}

var alertsReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Mark an alert as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := alertUserID(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetInt64("id")
		if id <= 0 {
			return errors.New("--id is required")
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return db.MarkAlertRead(context.Background(), id, userID)
	},
}

var alertsDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete an alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := alertUserID(cmd)
		if err != nil {
			return err
		}
		id, _ := cmd.Flags().GetInt64("id")
		if id <= 0 {
			return errors.New("--id is required")
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		return db.DeleteAlert(context.Background(), id, userID)
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.PersistentFlags().Int64("user", 0, "User ID")
	alertsCmd.Flags().Bool("unread", false, "Only unread alerts")

	alertsCmd.AddCommand(alertsReadCmd)
	alertsReadCmd.Flags().Int64("id", 0, "Alert ID")

	alertsCmd.AddCommand(alertsDeleteCmd)
	alertsDeleteCmd.Flags().Int64("id", 0, "Alert ID")
}
