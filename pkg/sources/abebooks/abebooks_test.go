package abebooks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/whttp"
)

func testClient() *whttp.Client {
	return whttp.NewClient(whttp.Options{
		Timeout:      5 * time.Second,
		RetryMax:     1,
		RetryWait:    time.Millisecond,
		HostInterval: time.Millisecond,
	})
}

const searchPage = `<html><body>
<div class="cf result-item">
	<div class="title-author">
		<span class="title"><a href="/servlet/BookDetails?bi=1">Siddhartha</a></span>
		<span class="author">Hermann Hesse</span>
	</div>
	<span class="item-price">EUR 6,40</span>
	<span class="item-shipping">Versand: EUR 2,95</span>
	<span class="condition">Sehr gut</span>
	<div class="seller-info">
		<span class="seller-name">Bücherwurm</span>
		<span class="seller-location">Hamburg, Germany</span>
	</div>
</div>
<div class="cf result-item">
	<div class="title-author">
		<span class="title"><a href="/servlet/BookDetails?bi=2">Siddhartha</a></span>
	</div>
	<span class="item-price">EUR 4,20</span>
	<span class="condition">Gut</span>
</div>
</body></html>`

func TestCheckPricesParsesShipping(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, searchPage)
	}))
	defer srv.Close()

	a := New(testClient())
	a.baseURL = srv.URL

	item := market.Item{MediaKind: market.MediaBook, Title: "Siddhartha", ISBN: "9783518366820"}
	offers, err := a.CheckPrices(context.Background(), item)
	if err != nil {
		t.Fatalf("CheckPrices: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}

	if !strings.Contains(gotQuery, "sortby=17") || !strings.Contains(gotQuery, "isbn=9783518366820") {
		t.Errorf("search query missing expected params: %s", gotQuery)
	}

	first := offers[0]
	if first.Price.String() != "6.4" || first.ShippingCost.String() != "2.95" {
		t.Errorf("price/shipping = %s/%s, want 6.4/2.95", first.Price, first.ShippingCost)
	}
	if first.TotalCost().String() != "9.35" {
		t.Errorf("total cost = %s, want 9.35", first.TotalCost())
	}
	if first.Condition != market.ConditionVeryGood {
		t.Errorf("condition = %q, want very_good", first.Condition)
	}

	// The second listing has no shipping line and ships free.
	if !offers[1].ShippingCost.IsZero() {
		t.Errorf("second shipping = %s, want 0", offers[1].ShippingCost)
	}
	if offers[1].Author != "" {
		t.Errorf("second author = %q, want empty", offers[1].Author)
	}
}

func TestCheckPricesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := New(testClient())
	a.baseURL = srv.URL

	offers, err := a.CheckPrices(context.Background(), market.Item{MediaKind: market.MediaBook, ISBN: "9783518366820"})
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if len(offers) != 0 {
		t.Fatalf("got %d offers, want 0", len(offers))
	}
}
