package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a price check for one item",
	Long: `Queries every configured source for the given item and stores the
offers as observations. Items checked within the freshness window are
skipped unless --force is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		itemID, _ := cmd.Flags().GetInt64("item")
		force, _ := cmd.Flags().GetBool("force")
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
		if item.Identifier() == "" {
			return fmt.Errorf("item %d has no ISBN, barcode or catalog number to search by", itemID)
		}

		if !force {
			fresh, err := db.LatestObservations(ctx, itemID, freshnessWindow())
			if err != nil {
				return err
			}
			if len(fresh) > 0 {
				fmt.Printf("Item %d was checked recently (%d fresh offers); use --force to check anyway\n", itemID, len(fresh))
				return nil
			}
		}

		saved, err := newOrchestrator(db).CheckAndSavePrices(ctx, item)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %d offers for %q\n", saved, item.Title)

		offers, err := db.LatestObservations(ctx, itemID, freshnessWindow())
		if err != nil {
			return err
		}
		for _, o := range offers {
			fmt.Printf("%s\t%s %s\t(%s + %s shipping)\t%s\n",
				o.Source, o.TotalCost, o.Currency, o.Price, o.ShippingCost, o.Condition)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Int64("item", 0, "Item ID")
	checkCmd.Flags().BoolP("force", "f", false, "Check even when fresh observations exist")
}
