package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/sources"
)

type fakeAdapter struct {
	name    string
	handles bool
	offers  []market.Offer
	err     error
	panics  bool
	delay   time.Duration
}

func (f *fakeAdapter) Name() string                 { return f.name }
func (f *fakeAdapter) CanHandle(_ market.Item) bool { return f.handles }
func (f *fakeAdapter) CheckPrices(_ context.Context, _ market.Item) ([]market.Offer, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("selector blew up")
	}
	return f.offers, f.err
}

type fakeStore struct {
	mu       sync.Mutex
	inserted []market.Offer
	failOn   string
}

func (s *fakeStore) InsertObservation(_ context.Context, _ int64, offer market.Offer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offer.Source == s.failOn {
		return 0, errors.New("disk full")
	}
	s.inserted = append(s.inserted, offer)
	return int64(len(s.inserted)), nil
}

func offer(source, title string, price string) market.Offer {
	return market.Offer{
		Source:    source,
		Title:     title,
		Price:     decimal.RequireFromString(price),
		Currency:  "EUR",
		Available: true,
	}
}

var testItem = market.Item{ID: 1, MediaKind: market.MediaBook, Title: "Der Prozess", ISBN: "9783596181148"}

func TestCheckAllPricesKeepsRegistrationOrder(t *testing.T) {
	adapters := []sources.Adapter{
		&fakeAdapter{name: "slow", handles: true, delay: 30 * time.Millisecond, offers: []market.Offer{offer("slow", "A", "5")}},
		&fakeAdapter{name: "fast", handles: true, offers: []market.Offer{offer("fast", "B", "3"), offer("fast", "C", "4")}},
	}

	o := New(&fakeStore{}, adapters, 5)
	offers := o.CheckAllPrices(context.Background(), testItem)
	if len(offers) != 3 {
		t.Fatalf("got %d offers, want 3", len(offers))
	}
	if offers[0].Source != "slow" || offers[1].Source != "fast" {
		t.Errorf("offers out of registration order: %s, %s", offers[0].Source, offers[1].Source)
	}
}

func TestCheckAllPricesToleratesFailures(t *testing.T) {
	adapters := []sources.Adapter{
		&fakeAdapter{name: "broken", handles: true, err: errors.New("status 503")},
		&fakeAdapter{name: "crashed", handles: true, panics: true},
		&fakeAdapter{name: "healthy", handles: true, offers: []market.Offer{offer("healthy", "A", "9.99")}},
		&fakeAdapter{name: "music-only", handles: false, offers: []market.Offer{offer("music-only", "B", "1")}},
	}

	o := New(&fakeStore{}, adapters, 5)
	offers := o.CheckAllPrices(context.Background(), testItem)
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}
	if offers[0].Source != "healthy" {
		t.Errorf("surviving offer from %q, want healthy", offers[0].Source)
	}
}

func TestCheckAllPricesAllSourcesDown(t *testing.T) {
	adapters := []sources.Adapter{
		&fakeAdapter{name: "a", handles: true, err: errors.New("timeout")},
		&fakeAdapter{name: "b", handles: true, panics: true},
	}

	o := New(&fakeStore{}, adapters, 2)
	if offers := o.CheckAllPrices(context.Background(), testItem); len(offers) != 0 {
		t.Fatalf("got %d offers, want 0", len(offers))
	}
}

func TestCheckAndSavePricesSkipsFailedInserts(t *testing.T) {
	adapters := []sources.Adapter{
		&fakeAdapter{name: "one", handles: true, offers: []market.Offer{offer("one", "A", "5"), offer("one", "B", "6")}},
		&fakeAdapter{name: "two", handles: true, offers: []market.Offer{offer("two", "C", "7")}},
	}
	store := &fakeStore{failOn: "two"}

	o := New(store, adapters, 5)
	saved, err := o.CheckAndSavePrices(context.Background(), testItem)
	if err != nil {
		t.Fatalf("CheckAndSavePrices: %v", err)
	}
	if saved != 2 {
		t.Fatalf("saved = %d, want 2", saved)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("store has %d rows, want 2", len(store.inserted))
	}
}
