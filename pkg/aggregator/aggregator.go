// Package aggregator fans a price check out across every registered
// source and folds the results back together. A failing source never
// fails the check; it just contributes zero offers.
package aggregator

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/shelfwatch/shelfwatch/internal/utils"
	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/sources"
)

// ObservationStore is the slice of storage the orchestrator needs.
type ObservationStore interface {
	InsertObservation(ctx context.Context, itemID int64, offer market.Offer) (int64, error)
}

type Orchestrator struct {
	store       ObservationStore
	adapters    []sources.Adapter
	concurrency int
}

// New builds an orchestrator over a fixed adapter list. Results are
// always concatenated in registration order regardless of which source
// answers first.
func New(store ObservationStore, adapters []sources.Adapter, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Orchestrator{store: store, adapters: adapters, concurrency: concurrency}
}

// CheckAllPrices queries every source that can handle the item, at most
// `concurrency` at a time, and returns whatever offers came back.
func (o *Orchestrator) CheckAllPrices(ctx context.Context, item market.Item) []market.Offer {
	results := make([][]market.Offer, len(o.adapters))
	sem := make(chan struct{}, o.concurrency)
	processGroup := new(sync.WaitGroup)

	for i, adapter := range o.adapters {
		if !adapter.CanHandle(item) {
			utils.Log.WithFields(logrus.Fields{
				"source": adapter.Name(),
				"item":   item.ID,
			}).Debug("Source skipped, cannot handle item")
			continue
		}

		processGroup.Add(1)
		go func(i int, adapter sources.Adapter) {
			defer processGroup.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = o.checkOne(ctx, adapter, item)
		}(i, adapter)
	}
	processGroup.Wait()

	var offers []market.Offer
	for _, r := range results {
		offers = append(offers, r...)
	}
	return offers
}

// checkOne isolates a single source: errors are logged and panics are
// recovered so a broken scraper cannot take the whole check down.
func (o *Orchestrator) checkOne(ctx context.Context, adapter sources.Adapter, item market.Item) (offers []market.Offer) {
	defer func() {
		if r := recover(); r != nil {
			utils.Log.WithFields(logrus.Fields{
				"source": adapter.Name(),
				"item":   item.ID,
				"panic":  r,
			}).Error("Price source panicked")
			offers = nil
		}
	}()

	offers, err := adapter.CheckPrices(ctx, item)
	if err != nil {
		utils.Log.WithFields(logrus.Fields{
			"source": adapter.Name(),
			"item":   item.ID,
		}).WithError(err).Warn("Price source failed")
		return nil
	}

	utils.Log.WithFields(logrus.Fields{
		"source": adapter.Name(),
		"item":   item.ID,
		"offers": len(offers),
	}).Debug("Price source answered")
	return offers
}

// CheckAndSavePrices runs a full check and persists each offer as an
// observation. A failed insert is logged and skipped; the returned
// count is the number of rows actually written.
func (o *Orchestrator) CheckAndSavePrices(ctx context.Context, item market.Item) (int, error) {
	offers := o.CheckAllPrices(ctx, item)

	saved := 0
	for _, offer := range offers {
		if _, err := o.store.InsertObservation(ctx, item.ID, offer); err != nil {
			utils.Log.WithFields(logrus.Fields{
				"source": offer.Source,
				"item":   item.ID,
			}).WithError(err).Warn("Dropping observation, insert failed")
			continue
		}
		saved++
	}

	utils.Log.WithFields(logrus.Fields{
		"item":   item.ID,
		"offers": len(offers),
		"saved":  saved,
	}).Info("Price check finished")
	return saved, nil
}
