// Package medimops scrapes medimops.de search results. Medimops lists
// its own graded used stock with free shipping inside Germany.
package medimops

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

const sourceName = "medimops"

type Adapter struct {
	client  *whttp.Client
	baseURL string
}

func New(client *whttp.Client) *Adapter {
	return &Adapter{client: client, baseURL: "https://www.medimops.de"}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	params := url.Values{}
	params.Set("fcIsSearch", "1")
	params.Set("searchparam", sources.SearchTerm(item))
	return a.baseURL + "/search/?" + params.Encode()
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	doc, err := sources.FetchDocument(ctx, a.client, a.searchURL(item))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	doc.Find(".mm-product-item").Each(func(_ int, s *goquery.Selection) {
		titleLink := s.Find(".mm-product-title a")
		title := strings.TrimSpace(titleLink.Text())
		price, ok := normalize.ParsePrice(s.Find(".mm-product-price .price").Text())
		if !ok || title == "" {
			return
		}

		offerURL := ""
		if href, exists := titleLink.Attr("href"); exists {
			offerURL = a.baseURL + href
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Identifier:     item.ISBN,
			Price:          price,
			ShippingCost:   decimal.Zero,
			Condition:      normalize.ParseCondition(s.Find(".mm-product-condition").Text()),
			SellerName:     "Medimops",
			SellerLocation: "Germany",
			URL:            offerURL,
			Currency:       "EUR",
			Available:      true,
			ObservedAt:     now,
		})
	})

	return sources.Cap(offers), nil
}
