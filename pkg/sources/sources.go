// Package sources defines the contract every retailer integration
// satisfies and the helpers the concrete adapters share. Adapters live
// in subpackages, one per retailer.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/whttp"
)

// MaxOffers is the per-source cap on offers returned by one check.
const MaxOffers = 10

// Adapter is a single price source. CheckPrices returns whatever offers
// it could extract; the returned error only tags the failure for logs,
// callers must treat it as zero offers and keep going.
type Adapter interface {
	Name() string
	CanHandle(item market.Item) bool
	CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error)
}

// Cap truncates a result set to the per-source limit.
func Cap(offers []market.Offer) []market.Offer {
	if len(offers) > MaxOffers {
		return offers[:MaxOffers]
	}
	return offers
}

// SearchTerm prefers the item's external identifier over its title.
func SearchTerm(item market.Item) string {
	if id := item.Identifier(); id != "" {
		return id
	}
	return item.Title
}

// FetchDocument GETs a page through the shared client and parses it.
func FetchDocument(ctx context.Context, client *whttp.Client, rawURL string) (*goquery.Document, error) {
	res, err := client.Send(ctx, &whttp.WHTTPReq{Method: "GET", URL: rawURL})
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for %s", res.StatusCode, rawURL)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(res.BodyString))
}
