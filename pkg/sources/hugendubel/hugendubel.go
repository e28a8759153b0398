// Package hugendubel scrapes Hugendubel shop search results. New books
// only, free shipping.
package hugendubel

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

const sourceName = "hugendubel"

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.hugendubel.de"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	return a.baseURL + "/de/shopsearch?searchKeyword=" + url.QueryEscape(sources.SearchTerm(item))
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find(".product-tile").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".product-tile__title a").Text())
		price, ok := normalize.ParsePrice(s.Find(".product-tile__price .price").Text())
		if !ok || title == "" {
			return
		}

		offerURL := ""
		if href, exists := s.Find(".product-tile__title a").Attr("href"); exists {
			offerURL = a.baseURL + href
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Author:         strings.TrimSpace(s.Find(".product-tile__author").Text()),
			Identifier:     item.ISBN,
			Price:          price,
			ShippingCost:   decimal.Zero,
			Condition:      market.ConditionMint,
			SellerName:     "Hugendubel",
			SellerLocation: "Germany",
			URL:            offerURL,
			Currency:       "EUR",
			Available:      true,
			ObservedAt:     now,
		})
	})

	return sources.Cap(offers), nil
}
