package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Set a price target for an item",
	Long: `Sets the price at or below which an item's total cost (price plus
shipping) should raise an alert. Setting a target again replaces it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, _ := cmd.Flags().GetInt64("item")
		userID, _ := cmd.Flags().GetInt64("user")
		priceStr, _ := cmd.Flags().GetString("price")
		priority, _ := cmd.Flags().GetInt("priority")

		if itemID <= 0 || userID <= 0 {
			return errors.New("--item and --user are required")
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil || !price.IsPositive() {
			return fmt.Errorf("invalid --price %q", priceStr)
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
		if err := db.SetTarget(ctx, market.Target{
			UserID:      userID,
			ItemID:      itemID,
			TargetPrice: price,
			Priority:    priority,
		}); err != nil {
			return err
		}
		fmt.Printf("Watching %q for offers at or below %s EUR\n", item.Title, price)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(targetCmd)
	targetCmd.Flags().Int64("item", 0, "Item ID")
	targetCmd.Flags().Int64("user", 0, "User ID the target belongs to")
	targetCmd.Flags().String("price", "", "Target price, e.g. 14.00")
	targetCmd.Flags().Int("priority", 0, "Evaluation priority (higher first)")
}
