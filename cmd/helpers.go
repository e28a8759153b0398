package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/shelfwatch/shelfwatch/internal/utils"
	"github.com/shelfwatch/shelfwatch/pkg/aggregator"
	"github.com/shelfwatch/shelfwatch/pkg/alerting"
	"github.com/shelfwatch/shelfwatch/pkg/notify"
	"github.com/shelfwatch/shelfwatch/pkg/sources"
	"github.com/shelfwatch/shelfwatch/pkg/sources/abebooks"
	"github.com/shelfwatch/shelfwatch/pkg/sources/amazon"
	"github.com/shelfwatch/shelfwatch/pkg/sources/ebay"
	"github.com/shelfwatch/shelfwatch/pkg/sources/hugendubel"
	"github.com/shelfwatch/shelfwatch/pkg/sources/medimops"
	"github.com/shelfwatch/shelfwatch/pkg/sources/rebuy"
	"github.com/shelfwatch/shelfwatch/pkg/sources/thalia"
	"github.com/shelfwatch/shelfwatch/pkg/sources/waterstones"
	"github.com/shelfwatch/shelfwatch/pkg/sources/zvab"
	"github.com/shelfwatch/shelfwatch/pkg/storage"
	"github.com/shelfwatch/shelfwatch/pkg/whttp"
)

func resolvedDBPath() (string, error) {
	flagPath, _ := rootCmd.PersistentFlags().GetString("dbpath")
	path, err := utils.GetAbsDBPath(flagPath)
	if err != nil {
		return "", fmt.Errorf("could not resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("could not create database directory: %w", err)
	}
	return path, nil
}

func openDB() (*storage.DB, string, error) {
	path, err := resolvedDBPath()
	if err != nil {
		return nil, "", err
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not open database %s: %w", path, err)
	}
	return db, path, nil
}

func newHTTPClient() *whttp.Client {
	proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
	return whttp.NewClient(whttp.Options{
		Proxy:    proxy,
		CacheTTL: time.Duration(viper.GetInt("http.cache_minutes")) * time.Minute,
	})
}

// buildAdapters wires every configured price source in a fixed order.
// eBay needs an API key and is skipped without one.
func buildAdapters(client *whttp.Client) []sources.Adapter {
	adapters := []sources.Adapter{
		abebooks.New(client),
		zvab.New(client),
		rebuy.New(client),
		medimops.New(client),
		thalia.New(client),
		amazon.New(client),
		hugendubel.New(client),
		waterstones.New(client),
	}
	if appID := viper.GetString("ebay.appid"); appID != "" {
		adapters = append(adapters, ebay.New(client, appID))
	} else {
		utils.Log.Debug("Skipping eBay (ebay.appid not set)")
	}
	return adapters
}

func newOrchestrator(db *storage.DB) *aggregator.Orchestrator {
	return aggregator.New(db, buildAdapters(newHTTPClient()), viper.GetInt("check.concurrency"))
}

func newDispatcher() notify.Dispatcher {
	if url := viper.GetString("notify.webhook"); url != "" {
		return notify.NewWebhookDispatcher(url)
	}
	return notify.LogDispatcher{}
}

func freshnessWindow() time.Duration {
	hours := viper.GetInt("check.freshness_hours")
	if hours <= 0 {
		hours = 6
	}
	return time.Duration(hours) * time.Hour
}

func newEvaluator(db *storage.DB) *alerting.Evaluator {
	return alerting.NewEvaluator(db, newDispatcher(), freshnessWindow())
}
