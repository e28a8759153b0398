// Package abebooks scrapes AbeBooks search results. The markup shares
// its structure with ZVAB, but listings carry an explicit shipping line.
package abebooks

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

const sourceName = "abebooks"

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.abebooks.de"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	params := url.Values{}
	params.Set("kn", sources.SearchTerm(item))
	// sortby=17 is price plus shipping ascending
	params.Set("sortby", "17")
	if item.ISBN != "" {
		params.Set("isbn", item.ISBN)
	}
	return a.baseURL + "/servlet/SearchResults?" + params.Encode()
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find(".cf.result-item").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find(".title-author .title").Text())
		price, ok := normalize.ParsePrice(s.Find(".item-price").Text())
		if !ok || title == "" {
			return
		}

		// Listings without a shipping line ship free.
		shipping := decimal.Zero
		if v, ok := normalize.ParsePrice(s.Find(".item-shipping").Text()); ok {
			shipping = v
		}

		offerURL := ""
		if href, exists := s.Find(".title-author .title a").Attr("href"); exists {
			offerURL = a.baseURL + href
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Author:         strings.TrimSpace(s.Find(".title-author .author").Text()),
			Identifier:     item.ISBN,
			Price:          price,
			ShippingCost:   shipping,
			Condition:      normalize.ParseCondition(s.Find(".condition").Text()),
			SellerName:     strings.TrimSpace(s.Find(".seller-info .seller-name").Text()),
			SellerLocation: strings.TrimSpace(s.Find(".seller-info .seller-location").Text()),
			Description:    strings.TrimSpace(s.Find(".item-note").Text()),
			URL:            offerURL,
			Currency:       "EUR",
			Available:      true,
			ObservedAt:     now,
		})
	})

	return sources.Cap(offers), nil
}
