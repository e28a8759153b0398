package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "List collection items",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListItems(context.Background())
		if err != nil {
			return err
		}
		for _, it := range items {
			id := it.Identifier()
			if id == "" {
				id = "-"
			}
			fmt.Printf("%d\t%s\t%s\t%s\n", it.ID, it.MediaKind, id, it.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(itemsCmd)
}
