// Package notify delivers alert notifications. Dispatchers are
// pluggable; delivery failure is reported to the caller but never
// affects the alert itself.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/shelfwatch/shelfwatch/internal/utils"
	"github.com/shelfwatch/shelfwatch/pkg/market"
)

// Payload is everything a dispatcher needs to render a notification.
type Payload struct {
	Alert     market.Alert `json:"alert"`
	ItemTitle string       `json:"item_title"`
}

type Dispatcher interface {
	Send(ctx context.Context, p Payload) error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a delivery error as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryable reports whether a delivery error may succeed on retry.
func Retryable(err error) bool {
	var p *permanentError
	return err != nil && !errors.As(err, &p)
}

// SendWithRetry attempts delivery up to `attempts` times, waiting
// between tries. Permanent errors abort immediately.
func SendWithRetry(ctx context.Context, d Dispatcher, p Payload, attempts int, wait time.Duration) error {
	if attempts <= 0 {
		attempts = 3
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = d.Send(ctx, p); err == nil {
			return nil
		}
		if !Retryable(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// LogDispatcher writes the notification to the application log. It is
// the default sink and never fails.
type LogDispatcher struct{}

func (LogDispatcher) Send(_ context.Context, p Payload) error {
	utils.Log.WithFields(logrus.Fields{
		"alert":     p.Alert.ID,
		"user":      p.Alert.UserID,
		"item":      p.Alert.ItemID,
		"title":     p.ItemTitle,
		"source":    p.Alert.Source,
		"target":    p.Alert.TargetPrice.String(),
		"triggered": p.Alert.TriggeredPrice.String(),
		"savings":   p.Alert.Savings().String(),
	}).Info("Price alert")
	return nil
}
