package alerting

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/notify"
	"github.com/shelfwatch/shelfwatch/pkg/storage"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []notify.Payload
	err  error
}

func (d *recordingDispatcher) Send(_ context.Context, p notify.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, p)
	return nil
}

func (d *recordingDispatcher) payloads() []notify.Payload {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Payload(nil), d.sent...)
}

// blockingDispatcher holds Send open until released.
type blockingDispatcher struct {
	release chan struct{}
}

func (d *blockingDispatcher) Send(_ context.Context, _ notify.Payload) error {
	<-d.release
	return nil
}

func setup(t *testing.T) (*storage.DB, int64) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "shelfwatch.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	itemID, err := db.CreateItem(context.Background(), market.Item{
		MediaKind: market.MediaBook, Title: "Der Prozess", ISBN: "9783596181148",
	})
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return db, itemID
}

func observe(t *testing.T, db *storage.DB, itemID int64, source, price string) int64 {
	t.Helper()
	id, err := db.InsertObservation(context.Background(), itemID, market.Offer{
		Source:     source,
		Title:      "Der Prozess",
		Price:      decimal.RequireFromString(price),
		Condition:  market.ConditionGood,
		Currency:   "EUR",
		Available:  true,
		ObservedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertObservation: %v", err)
	}
	return id
}

func TestRunCreatesOneAlertPerQualifyingObservation(t *testing.T) {
	db, itemID := setup(t)
	ctx := context.Background()

	if err := db.SetTarget(ctx, market.Target{UserID: 7, ItemID: itemID, TargetPrice: decimal.RequireFromString("14.00")}); err != nil {
		t.Fatal(err)
	}
	observe(t, db, itemID, "zvab", "12.50")
	observe(t, db, itemID, "rebuy", "15.00")

	d := &recordingDispatcher{}
	e := NewEvaluator(db, d, 6*time.Hour)

	created, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 (only the 12.50 offer qualifies)", created)
	}
	e.deliveries.Wait()

	alerts, err := db.ListAlerts(ctx, 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("stored alerts = %d, want 1", len(alerts))
	}
	a := alerts[0]
	if a.TriggeredPrice.String() != "12.5" || a.Source != "zvab" {
		t.Errorf("alert = %s from %s, want 12.5 from zvab", a.TriggeredPrice, a.Source)
	}
	if a.NotifiedAt == nil {
		t.Error("alert should be marked notified after successful delivery")
	}

	if sent := d.payloads(); len(sent) != 1 || sent[0].ItemTitle != "Der Prozess" {
		t.Errorf("dispatched payloads = %+v", sent)
	}
}

// Evaluation must return without waiting on the dispatcher; delivery
// runs in the background.
func TestRunDoesNotWaitForDelivery(t *testing.T) {
	db, itemID := setup(t)
	ctx := context.Background()

	if err := db.SetTarget(ctx, market.Target{UserID: 7, ItemID: itemID, TargetPrice: decimal.RequireFromString("14.00")}); err != nil {
		t.Fatal(err)
	}
	observe(t, db, itemID, "zvab", "12.50")

	d := &blockingDispatcher{release: make(chan struct{})}
	e := NewEvaluator(db, d, 6*time.Hour)

	// The dispatcher blocks until released, so a synchronous delivery
	// would never let Run return here.
	created, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}

	alerts, err := db.ListAlerts(ctx, 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("stored alerts = %d, want 1", len(alerts))
	}
	if alerts[0].NotifiedAt != nil {
		t.Error("alert stamped notified before delivery finished")
	}

	close(d.release)
	e.deliveries.Wait()

	alerts, err = db.ListAlerts(ctx, 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if alerts[0].NotifiedAt == nil {
		t.Error("alert should be marked notified once delivery succeeds")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db, itemID := setup(t)
	ctx := context.Background()

	if err := db.SetTarget(ctx, market.Target{UserID: 7, ItemID: itemID, TargetPrice: decimal.RequireFromString("14.00")}); err != nil {
		t.Fatal(err)
	}
	observe(t, db, itemID, "zvab", "12.50")

	e := NewEvaluator(db, &recordingDispatcher{}, 6*time.Hour)
	if created, _ := e.Run(ctx); created != 1 {
		t.Fatalf("first run created %d, want 1", created)
	}
	if created, _ := e.Run(ctx); created != 0 {
		t.Fatalf("second run created %d, want 0", created)
	}

	// A new qualifying observation triggers again.
	observe(t, db, itemID, "medimops", "11.00")
	if created, _ := e.Run(ctx); created != 1 {
		t.Fatal("a fresh observation should alert once more")
	}
}

func TestRunDeliveryFailureKeepsAlert(t *testing.T) {
	db, itemID := setup(t)
	ctx := context.Background()

	if err := db.SetTarget(ctx, market.Target{UserID: 7, ItemID: itemID, TargetPrice: decimal.RequireFromString("14.00")}); err != nil {
		t.Fatal(err)
	}
	observe(t, db, itemID, "zvab", "12.50")

	d := &recordingDispatcher{err: notify.Permanent(errors.New("endpoint gone"))}
	e := NewEvaluator(db, d, 6*time.Hour)

	created, err := e.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1", created)
	}
	e.deliveries.Wait()

	alerts, err := db.ListAlerts(ctx, 7, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("stored alerts = %d, want 1 despite delivery failure", len(alerts))
	}
	if alerts[0].NotifiedAt != nil {
		t.Error("failed delivery must not be stamped as notified")
	}
}

func TestRunMultipleUsersSameObservation(t *testing.T) {
	db, itemID := setup(t)
	ctx := context.Background()

	for _, user := range []int64{7, 8} {
		if err := db.SetTarget(ctx, market.Target{UserID: user, ItemID: itemID, TargetPrice: decimal.RequireFromString("14.00")}); err != nil {
			t.Fatal(err)
		}
	}
	observe(t, db, itemID, "zvab", "12.50")

	e := NewEvaluator(db, &recordingDispatcher{}, 6*time.Hour)
	created, err := e.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want one alert per user", created)
	}
}
