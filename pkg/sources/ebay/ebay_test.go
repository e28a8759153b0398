package ebay

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
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

const findingResponse = `{
	"findItemsByKeywordsResponse": [{
		"ack": ["Success"],
		"searchResult": [{
			"@count": "3",
			"item": [
				{
					"title": ["Faust I gebundene Ausgabe"],
					"viewItemURL": ["https://www.ebay.de/itm/1001"],
					"location": ["München,Deutschland"],
					"sellerInfo": [{"sellerUserName": ["buchladen-m"]}],
					"condition": [{"conditionDisplayName": ["Sehr gut"]}],
					"sellingStatus": [{
						"currentPrice": [{"@currencyId": "EUR", "__value__": "5.5"}],
						"sellingState": ["Active"]
					}],
					"shippingInfo": [{"shippingServiceCost": [{"@currencyId": "EUR", "__value__": "2.5"}]}]
				},
				{
					"title": ["Faust I Taschenbuch"],
					"viewItemURL": ["https://www.ebay.de/itm/1002"],
					"sellingStatus": [{
						"currentPrice": [{"@currencyId": "EUR", "__value__": "3.0"}],
						"sellingState": ["Active"]
					}],
					"shippingInfo": [{}]
				},
				{
					"title": ["Faust I beendet"],
					"viewItemURL": ["https://www.ebay.de/itm/1003"],
					"sellingStatus": [{
						"currentPrice": [{"@currencyId": "EUR", "__value__": "1.0"}],
						"sellingState": ["EndedWithoutSales"]
					}]
				}
			]
		}]
	}]
}`

func TestCheckPricesParsesListings(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, findingResponse)
	}))
	defer srv.Close()

	a := New(testClient(), "test-app-id")
	a.baseURL = srv.URL

	item := market.Item{MediaKind: market.MediaBook, Title: "Faust I", ISBN: "9783150000014"}
	offers, err := a.CheckPrices(context.Background(), item)
	if err != nil {
		t.Fatalf("CheckPrices: %v", err)
	}

	// The ended listing is dropped.
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}

	if gotQuery.Get("keywords") != "9783150000014" {
		t.Errorf("keywords = %q, want the ISBN", gotQuery.Get("keywords"))
	}
	if gotQuery.Get("categoryId") != "267" || gotQuery.Get("GLOBAL-ID") != "EBAY-DE" {
		t.Errorf("unexpected category/global id: %v", gotQuery)
	}
	if gotQuery.Get("itemFilter(0).value") != "FixedPrice" {
		t.Errorf("listing type filter missing: %v", gotQuery)
	}
	if gotQuery.Get("SECURITY-APPNAME") != "test-app-id" {
		t.Errorf("app id not sent: %v", gotQuery)
	}

	first := offers[0]
	if first.Price.String() != "5.5" || first.ShippingCost.String() != "2.5" {
		t.Errorf("price/shipping = %s/%s, want 5.5/2.5", first.Price, first.ShippingCost)
	}
	if first.Condition != market.ConditionVeryGood {
		t.Errorf("condition = %q, want very_good", first.Condition)
	}
	if first.SellerName != "buchladen-m" {
		t.Errorf("seller = %q, want buchladen-m", first.SellerName)
	}
	if first.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", first.Currency)
	}

	// No reported shipping cost falls back to the default.
	if offers[1].ShippingCost.String() != "3.99" {
		t.Errorf("fallback shipping = %s, want 3.99", offers[1].ShippingCost)
	}
}

func TestCheckPricesEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"findItemsByKeywordsResponse":[{"ack":["Success"],"searchResult":[{"@count":"0"}]}]}`)
	}))
	defer srv.Close()

	a := New(testClient(), "test-app-id")
	a.baseURL = srv.URL

	offers, err := a.CheckPrices(context.Background(), market.Item{MediaKind: market.MediaBook, ISBN: "9783150000014"})
	if err != nil {
		t.Fatalf("CheckPrices: %v", err)
	}
	if len(offers) != 0 {
		t.Fatalf("got %d offers, want 0", len(offers))
	}
}
