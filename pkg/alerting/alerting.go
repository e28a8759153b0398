// Package alerting turns fresh observations into alerts. The storage
// uniqueness constraint on (user, item, observation) is the only dedup
// arbiter, so overlapping runs are safe by construction.
package alerting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shelfwatch/shelfwatch/internal/utils"
	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/notify"
	"github.com/shelfwatch/shelfwatch/pkg/storage"
)

const (
	// DefaultFreshness is how recent an observation must be to alert on.
	DefaultFreshness = 6 * time.Hour

	deliveryAttempts = 3
	deliveryWait     = 2 * time.Second
)

type Evaluator struct {
	db         *storage.DB
	dispatcher notify.Dispatcher
	freshness  time.Duration

	deliveries sync.WaitGroup
}

func NewEvaluator(db *storage.DB, dispatcher notify.Dispatcher, freshness time.Duration) *Evaluator {
	if dispatcher == nil {
		dispatcher = notify.LogDispatcher{}
	}
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	return &Evaluator{db: db, dispatcher: dispatcher, freshness: freshness}
}

// Run evaluates every priced target against the fresh observations of
// its item and returns the number of alerts created. Each qualifying
// observation yields at most one alert per user, ever; duplicates are a
// benign skip.
func (e *Evaluator) Run(ctx context.Context) (int, error) {
	targets, err := e.db.TargetsWithPrice(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, tw := range targets {
		obs, err := e.db.LatestObservations(ctx, tw.Target.ItemID, e.freshness)
		if err != nil {
			utils.Log.WithFields(logrus.Fields{
				"item": tw.Target.ItemID,
			}).WithError(err).Warn("Skipping target, observation read failed")
			continue
		}

		// Observations come back cheapest first, so the first one over
		// target ends the scan.
		for _, o := range obs {
			if o.TotalCost.GreaterThan(tw.Target.TargetPrice) {
				break
			}
			if e.createAndNotify(ctx, tw, o) {
				created++
			}
		}
	}

	utils.Log.WithFields(logrus.Fields{
		"targets": len(targets),
		"created": created,
	}).Info("Alert evaluation finished")
	return created, nil
}

func (e *Evaluator) createAndNotify(ctx context.Context, tw storage.TargetWithItem, o market.Observation) bool {
	alert := market.Alert{
		UserID:         tw.Target.UserID,
		ItemID:         tw.Target.ItemID,
		ObservationID:  o.ID,
		TargetPrice:    tw.Target.TargetPrice,
		TriggeredPrice: o.TotalCost,
		Source:         o.Source,
	}

	id, err := e.db.CreateAlert(ctx, alert)
	if errors.Is(err, storage.ErrDuplicateAlert) {
		return false
	}
	if err != nil {
		utils.Log.WithFields(logrus.Fields{
			"user": alert.UserID,
			"item": alert.ItemID,
		}).WithError(err).Error("Alert insert failed")
		return false
	}
	alert.ID = id

	// Delivery is fire-and-forget; a slow or failing dispatcher must
	// not stall the evaluation loop, and the alert row stays either way.
	e.deliveries.Add(1)
	go e.deliver(notify.Payload{Alert: alert, ItemTitle: tw.Item.Title})
	return true
}

func (e *Evaluator) deliver(payload notify.Payload) {
	defer e.deliveries.Done()

	// Detached from the evaluation context: a cancelled run does not
	// abandon an already-created alert's notification.
	ctx := context.Background()
	if err := notify.SendWithRetry(ctx, e.dispatcher, payload, deliveryAttempts, deliveryWait); err != nil {
		utils.Log.WithFields(logrus.Fields{
			"alert": payload.Alert.ID,
		}).WithError(err).Warn("Alert notification failed")
		return
	}
	if err := e.db.MarkAlertNotified(ctx, payload.Alert.ID); err != nil {
		utils.Log.WithFields(logrus.Fields{
			"alert": payload.Alert.ID,
		}).WithError(err).Warn("Could not record notification time")
	}
}
