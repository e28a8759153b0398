package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an item to the collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		kind, _ := cmd.Flags().GetString("kind")
		isbn, _ := cmd.Flags().GetString("isbn")
		barcode, _ := cmd.Flags().GetString("barcode")
		catalog, _ := cmd.Flags().GetString("catalog-number")
		owned, _ := cmd.Flags().GetBool("owned")

		if title == "" {
			return errors.New("--title is required")
		}
		mediaKind := market.MediaKind(kind)
		if mediaKind != market.MediaBook && mediaKind != market.MediaMusic {
			return fmt.Errorf("invalid kind %q, use book or music", kind)
		}

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := db.CreateItem(context.Background(), market.Item{
			MediaKind:     mediaKind,
			Title:         title,
			ISBN:          isbn,
			Barcode:       barcode,
			CatalogNumber: catalog,
			Owned:         owned,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Added item %d: %s\n", id, title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().String("title", "", "Item title")
	addCmd.Flags().String("kind", "book", "Item kind: book or music")
	addCmd.Flags().String("isbn", "", "ISBN (books)")
	addCmd.Flags().String("barcode", "", "Barcode / EAN (music)")
	addCmd.Flags().String("catalog-number", "", "Label catalog number (music)")
	addCmd.Flags().Bool("owned", false, "Mark the item as already owned")
}
