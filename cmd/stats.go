package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show price statistics for an item",
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, _ := cmd.Flags().GetInt64("item")
		days, _ := cmd.Flags().GetInt("days")
		if itemID <= 0 {
			return errors.New("--item is required")
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		item, err := db.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		stats, err := db.ItemStats(ctx, itemID, days)
		if err != nil {
			return err
		}
		if stats.OfferCount == 0 {
			fmt.Printf("No observations for %q in the last %d days\n", item.Title, days)
			return nil
		}

		fmt.Printf("%s (last %d days)\n", item.Title, days)
		fmt.Printf("  offers:   %d from %d sources\n", stats.OfferCount, stats.SourceCount)
		fmt.Printf("  lowest:   %s EUR\n", stats.Lowest)
		fmt.Printf("  median:   %s EUR\n", stats.Median)
		fmt.Printf("  average:  %s EUR\n", stats.Average)
		fmt.Printf("  highest:  %s EUR\n", stats.Highest)
		fmt.Printf("  last check: %s\n", stats.LastChecked.Format("2006-01-02 15:04"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int64("item", 0, "Item ID")
	statsCmd.Flags().Int("days", 30, "Trailing window in days")
}
