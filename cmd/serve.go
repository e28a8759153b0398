package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shelfwatch/shelfwatch/internal/server"
	"github.com/shelfwatch/shelfwatch/pkg/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")

		db, _, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runner := scheduler.NewRunner(2, 32)
		defer runner.Close()

		srv := server.New(db, newOrchestrator(db), runner,
			viper.GetString("server.username"), viper.GetString("server.password"),
			freshnessWindow())
		return srv.Start(listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
}
