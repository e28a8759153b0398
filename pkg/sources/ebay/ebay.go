// Package ebay queries the eBay Finding API (JSON) against the German
// marketplace. Only fixed-price book listings are considered, sorted by
// price plus shipping.
package ebay

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/shelfwatch/shelfwatch/pkg/market"
	"github.com/shelfwatch/shelfwatch/pkg/normalize"
	"github.com/shelfwatch/shelfwatch/pkg/sources"
	"github.com/shelfwatch/shelfwatch/pkg/whttp"
)

const (
	sourceName = "ebay"

	// booksCategory is eBay's top-level books category.
	booksCategory = "267"
)

// defaultShipping applies when a listing does not report a shipping
// cost; eBay hides it for calculated-rate sellers.
var defaultShipping = decimal.RequireFromString("3.99")

type Adapter struct {
	client  *whttp.Client
	appID   string
	baseURL string
}

func New(client *whttp.Client, appID string) *Adapter {
	return &Adapter{
		client:  client,
		appID:   appID,
		baseURL: "https://svcs.ebay.com",
	}
}

func (a *Adapter) Name() string { return sourceName }

func (a *Adapter) CanHandle(item market.Item) bool {
	return item.MediaKind == market.MediaBook && item.ISBN != ""
}

func (a *Adapter) searchURL(item market.Item) string {
	params := url.Values{}
	params.Set("OPERATION-NAME", "findItemsByKeywords")
	params.Set("SERVICE-VERSION", "1.13.0")
	params.Set("SECURITY-APPNAME", a.appID)
	params.Set("RESPONSE-DATA-FORMAT", "JSON")
	params.Set("GLOBAL-ID", "EBAY-DE")
	params.Set("keywords", sources.SearchTerm(item))
	params.Set("categoryId", booksCategory)
	params.Set("itemFilter(0).name", "ListingType")
	params.Set("itemFilter(0).value", "FixedPrice")
	params.Set("sortOrder", "PricePlusShippingLowest")
	return a.baseURL + "/services/search/FindingService/v1?" + params.Encode()
}

func (a *Adapter) CheckPrices(ctx context.Context, item market.Item) ([]market.Offer, error) {
	res, err := a.client.Send(ctx, &whttp.WHTTPReq{Method: "GET", URL: a.searchURL(item)})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var offers []market.Offer
	listings := gjson.Get(res.BodyString, "findItemsByKeywordsResponse.0.searchResult.0.item")
	for _, listing := range listings.Array() {
		title := listing.Get("title.0").String()
		price, ok := normalize.ParsePrice(listing.Get("sellingStatus.0.currentPrice.0.__value__").String())
		if !ok || title == "" {
			continue
		}
		if listing.Get("sellingStatus.0.sellingState.0").String() != "Active" {
			continue
		}

		shipping := defaultShipping
		shippingRaw := listing.Get("shippingInfo.0.shippingServiceCost.0.__value__")
		if shippingRaw.Exists() {
			if v, ok := normalize.ParsePrice(shippingRaw.String()); ok {
				shipping = v
			}
		}

		offers = append(offers, market.Offer{
			Source:         sourceName,
			Title:          title,
			Identifier:     item.ISBN,
			Price:          price,
			ShippingCost:   shipping,
			Condition:      normalize.ParseCondition(listing.Get("condition.0.conditionDisplayName.0").String()),
			SellerName:     listing.Get("sellerInfo.0.sellerUserName.0").String(),
			SellerLocation: listing.Get("location.0").String(),
			URL:            listing.Get("viewItemURL.0").String(),
			Currency:       listing.Get(`sellingStatus.0.currentPrice.0.\@currencyId`).String(),
			Available:      true,
			ObservedAt:     now,
		})
	}

	return sources.Cap(offers), nil
}
