// Package waterstones scrapes Waterstones book search results. Prices
// are listed in GBP and converted to EUR with a fixed rate; shipping is
// the flat international rate to the EU.
package waterstones

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

const sourceName = "waterstones"

var (
	gbpToEUR     = decimal.RequireFromString("1.17")
	flatShipping = decimal.RequireFromString("5.99")
)

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.waterstones.com"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	return a.baseURL + "/books/search/term/" + url.PathEscape(sources.SearchTerm(item))
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find(".book-item").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".title a").Text())
		priceGBP, ok := normalize.ParsePrice(s.Find(".price").First().Text())
		if !ok || title == "" {
			return
		}

		offerURL := ""
		if href, exists := s.Find(".title a").Attr("href"); exists {
			offerURL = a.baseURL + href
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Author:         strings.TrimSpace(s.Find(".author").Text()),
			Identifier:     item.ISBN,
			Price:          priceGBP.Mul(gbpToEUR).Round(2),
			ShippingCost:   flatShipping,
			Condition:      market.ConditionMint,
			SellerName:     "Waterstones",
			SellerLocation: "United Kingdom",
			URL:            offerURL,
			Currency:       "EUR",
			Available:      true,
			ObservedAt:     now,
		})
	})

	return sources.Cap(offers), nil
}
