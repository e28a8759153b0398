// Package thalia reads thalia.de search results. The storefront renders
// from an embedded __NEXT_DATA__ JSON blob, so listings are pulled from
// that instead of the surrounding markup. Thalia sells new stock only.
package thalia

import (
	"context"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/normalize"
	"github.com/shelfwatch/shelfwatch/pkg/sources"
	"github.com/shelfwatch/shelfwatch/pkg/whttp"
)

const sourceName = "thalia"

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.thalia.de"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	params := url.Values{}
	params.Set("sq", sources.SearchTerm(item))
	params.Set("sswg", "ANY")
	return a.baseURL + "/shop/home/suchartikel/?" + params.Encode()
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find("#__NEXT_DATA__").Each(func(_ int, s *goquery.Selection) {
		raw := s.Contents().Text()
		for _, hit := range gjson.Get(raw, "props.pageProps.searchResult.hits").Array() {
			title := hit.Get("title").String()
			price, ok := normalize.ParsePrice(hit.Get("price.formatted").String())
			if !ok || title == "" {
				continue
			}
			if stock := hit.Get("availability.inStock"); stock.Exists() && !stock.Bool() {
				continue
			}

			offerURL := ""
			if href := hit.Get("url").String(); href != "" {
				offerURL = a.baseURL + href
			}

			offers = append(offers, market.Offer{
				Source:         sourceName,
				Title:          title,
				Author:         hit.Get("contributors.0.name").String(),
				Identifier:     item.ISBN,
				Price:          price,
				ShippingCost:   decimal.Zero,
				Condition:      market.ConditionMint,
				SellerName:     "Thalia",
				SellerLocation: "Germany",
				URL:            offerURL,
				Currency:       "EUR",
				Available:      true,
				ObservedAt:     now,
			})
		}
	})

	return sources.Cap(offers), nil
}
