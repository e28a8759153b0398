package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shelfwatch/shelfwatch/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shelfwatch",
	Short: "A price watcher for book and music collections.",
	Long: `shelfwatch tracks what your wanted books and records cost across
AbeBooks, ZVAB, Rebuy, Medimops, Thalia and eBay, keeps a price history,
and alerts you when an offer drops below your target price.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.shelfwatch.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("dbpath", "", "", "Database path (default is ~/.config/shelfwatch/shelfwatch.sqlite)")
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".shelfwatch")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.shelfwatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default empty values for all keys
	viper.SetDefault("ebay.appid", "")
	viper.SetDefault("notify.webhook", "")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
	viper.SetDefault("check.freshness_hours", 6)
	viper.SetDefault("check.batch_limit", 20)
	viper.SetDefault("check.concurrency", 5)
	viper.SetDefault("http.cache_minutes", 60)
	viper.SetDefault("retention.days", 30)

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
