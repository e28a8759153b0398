// Package amazon scrapes amazon.de book search results. Only new
// copies at the listed price, so condition is always mint and shipping
// is free.
package amazon

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/normalize"
	"github.com/shelfwatch/shelfwatch/pkg/sources"
	"github.com/shelfwatch/shelfwatch/pkg/whttp"
)

const sourceName = "amazon"

// maxResults stays well under sources.MaxOffers; Amazon listings for
// one ISBN are near-duplicates and would crowd out other sources.
const maxResults = 5

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.amazon.de"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	params := url.Values{}
	params.Set("k", sources.SearchTerm(item))
	params.Set("i", "stripbooks")
	params.Set("s", "price-asc-rank")
	return a.baseURL + "/s?" + params.Encode()
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find(`[data-component-type="s-search-result"]`).Each(func(_ int, s *goquery.Selection) {
		if len(offers) >= maxResults {
			return
		}
		title := strings.TrimSpace(s.Find("h2 a span").Text())
		price, ok := normalize.ParsePrice(s.Find(".a-price .a-offscreen").First().Text())
		if !ok || title == "" {
			return
		}

		offerURL := ""
		if href, exists := s.Find("h2 a").Attr("href"); exists {
			offerURL = a.baseURL + href
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Author:         strings.TrimSpace(s.Find(".a-color-secondary .a-link-normal").First().Text()),
			Identifier:     item.ISBN,
			Price:          price,
			ShippingCost:   decimal.Zero,
			Condition:      market.ConditionMint,
			SellerName:     "Amazon",
			SellerLocation: "Germany",
			URL:            offerURL,
			Currency:       "EUR",
			Available:      true,
			ObservedAt:     now,
		})
	})

	return sources.Cap(offers), nil
}
