// Package rebuy scrapes rebuy.de search results. Rebuy sells graded
// used stock itself, so seller identity and shipping are fixed.
package rebuy

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

const sourceName = "rebuy"

// flatShipping is rebuy's fixed shipping fee per order.
var flatShipping = decimal.RequireFromString("1.99")

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.rebuy.de"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	return a.baseURL + "/kaufen/search?q=" + url.QueryEscape(sources.SearchTerm(item))
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find(".product-item").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".product-title").Text())
		price, ok := normalize.ParsePrice(s.Find(".product-price").Text())
		if !ok || title == "" {
			return
		}

		offerURL := ""
		if href, exists := s.Find(".product-title a").Attr("href"); exists {
			offerURL = a.baseURL + href
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Identifier:     item.ISBN,
			Price:          price,
			ShippingCost:   flatShipping,
			Condition:      normalize.ParseCondition(s.Find(".product-condition").Text()),
			SellerName:     "Rebuy",
			SellerLocation: "Germany",
			URL:            offerURL,
			Currency:       "EUR",
			Available:      true,
			ObservedAt:     now,
		})
	})

	return sources.Cap(offers), nil
}
