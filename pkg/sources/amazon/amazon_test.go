package amazon

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

func searchResult(title, author, price string) string {
	return fmt.Sprintf(`<div data-component-type="s-search-result">
		<h2><a href="/dp/%s"><span>%s</span></a></h2>
		<div class="a-color-secondary"><a class="a-link-normal">%s</a></div>
		<span class="a-price"><span class="a-offscreen">%s</span></span>
	</div>`, strings.ReplaceAll(title, " ", "-"), title, author, price)
}

func TestCheckPricesParsesResults(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, "<html><body>")
		fmt.Fprint(w, searchResult("Der Prozess", "Franz Kafka", "12,99 €"))
		fmt.Fprint(w, "</body></html>")
	}))
	defer srv.Close()

	a := New(testClient())
	a.baseURL = srv.URL

	item := market.Item{MediaKind: market.MediaBook, Title: "Der Prozess", ISBN: "9783596181148"}
	offers, err := a.CheckPrices(context.Background(), item)
	if err != nil {
		t.Fatalf("CheckPrices: %v", err)
	}
	if len(offers) != 1 {
		t.Fatalf("got %d offers, want 1", len(offers))
	}

	if !strings.Contains(gotQuery, "i=stripbooks") || !strings.Contains(gotQuery, "s=price-asc-rank") {
		t.Errorf("search query missing expected params: %s", gotQuery)
	}

	o := offers[0]
	if o.Source != "amazon" || o.Title != "Der Prozess" || o.Author != "Franz Kafka" {
		t.Errorf("unexpected offer: %+v", o)
	}
	if o.Price.String() != "12.99" {
		t.Errorf("price = %s, want 12.99", o.Price)
	}
	if !o.ShippingCost.IsZero() {
		t.Errorf("shipping = %s, want 0", o.ShippingCost)
	}
	if o.Condition != market.ConditionMint {
		t.Errorf("condition = %q, want mint", o.Condition)
	}
	if o.SellerName != "Amazon" || o.SellerLocation != "Germany" {
		t.Errorf("unexpected seller: %q / %q", o.SellerName, o.SellerLocation)
	}
	if !strings.HasPrefix(o.URL, srv.URL+"/dp/") {
		t.Errorf("unexpected URL: %q", o.URL)
	}
}

func TestCheckPricesLimitsToFive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>")
		for i := 0; i < 8; i++ {
			fmt.Fprint(w, searchResult(fmt.Sprintf("Band %d", i), "Autor", "5,00 €"))
		}
		fmt.Fprint(w, "</body></html>")
	}))
	defer srv.Close()

	a := New(testClient())
	a.baseURL = srv.URL

	offers, err := a.CheckPrices(context.Background(), market.Item{MediaKind: market.MediaBook, ISBN: "9781234567897"})
	if err != nil {
		t.Fatalf("CheckPrices: %v", err)
	}
	if len(offers) != maxResults {
		t.Fatalf("got %d offers, want cap of %d", len(offers), maxResults)
	}
}

func TestCheckPricesSkipsUnpricedResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>")
		fmt.Fprint(w, searchResult("Ohne Preis", "Autor", "Derzeit nicht verfügbar"))
		fmt.Fprint(w, searchResult("Mit Preis", "Autor", "3,99 €"))
		fmt.Fprint(w, "</body></html>")
	}))
	defer srv.Close()

	a := New(testClient())
	a.baseURL = srv.URL

	offers, err := a.CheckPrices(context.Background(), market.Item{MediaKind: market.MediaBook, ISBN: "9781234567897"})
	if err != nil {
		t.Fatalf("CheckPrices: %v", err)
	}
	if len(offers) != 1 || offers[0].Title != "Mit Preis" {
		t.Fatalf("expected only the priced row, got %+v", offers)
	}
}

func TestCanHandle(t *testing.T) {
	a := New(testClient())
	if !a.CanHandle(market.Item{MediaKind: market.MediaBook, ISBN: "9781234567897"}) {
		t.Error("book with ISBN should be handled")
	}
	if a.CanHandle(market.Item{MediaKind: market.MediaBook}) {
		t.Error("book without ISBN should not be handled")
	}
	if a.CanHandle(market.Item{MediaKind: market.MediaMusic, Barcode: "0724384260958"}) {
		t.Error("music items should not be handled")
	}
}
