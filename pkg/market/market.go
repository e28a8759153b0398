package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// MediaKind is the kind of collectible an item represents.
type MediaKind string

const (
	MediaBook  MediaKind = "book"
	MediaMusic MediaKind = "music"
)

// Condition is the canonical condition vocabulary shared by all sources.
type Condition string

const (
	ConditionMint      Condition = "mint"
	ConditionNearMint  Condition = "near_mint"
	ConditionExcellent Condition = "excellent"
	ConditionVeryGood  Condition = "very_good"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

// Item is the read model of a collectible owned by the collection
// subsystem. The pricing engine never mutates items.
type Item struct {
	ID            int64
	MediaKind     MediaKind
	Title         string
	ISBN          string
	Barcode       string
	CatalogNumber string
	Owned         bool
	Condition     Condition
}

// Identifier returns the preferred external identifier for queries:
// ISBN for books, barcode or catalog number for music.
func (i Item) Identifier() string {
	switch {
	case i.ISBN != "":
		return i.ISBN
	case i.Barcode != "":
		return i.Barcode
	default:
		return i.CatalogNumber
	}
}

// Offer is one source's unpersisted candidate price for an item. Offers
// only reach the database as Observations.
type Offer struct {
	Source         string
	Title          string
	Author         string
	Identifier     string
	Price          decimal.Decimal
	ShippingCost   decimal.Decimal
	Condition      Condition
	SellerName     string
	SellerLocation string
	Description    string
	URL            string
	Currency       string
	Available      bool
	ObservedAt     time.Time
}

// TotalCost is always price plus shipping, computed the same way at
// write time and read time.
func (o Offer) TotalCost() decimal.Decimal {
	return o.Price.Add(o.ShippingCost)
}

// Observation is a persisted, immutable snapshot of one offer at check
// time. Rows are only ever inserted or bulk-deleted by retention cleanup.
type Observation struct {
	ID             int64
	ItemID         int64
	Source         string
	Title          string
	Author         string
	Identifier     string
	Price          decimal.Decimal
	ShippingCost   decimal.Decimal
	TotalCost      decimal.Decimal
	Condition      Condition
	SellerName     string
	SellerLocation string
	Description    string
	URL            string
	Currency       string
	Available      bool
	ObservedAt     time.Time
}

// Target is a user's desired maximum price for an item, owned by the
// wishlist subsystem and read-only here.
type Target struct {
	UserID      int64
	ItemID      int64
	TargetPrice decimal.Decimal
	Priority    int
}

// Alert records one qualifying (user, item, observation) event. At most
// one alert exists per that tuple.
type Alert struct {
	ID             int64
	UserID         int64
	ItemID         int64
	ObservationID  int64
	TargetPrice    decimal.Decimal
	TriggeredPrice decimal.Decimal
	Source         string
	TriggeredAt    time.Time
	NotifiedAt     *time.Time
	IsRead         bool
}

// Savings is the difference between the target and the triggered price.
func (a Alert) Savings() decimal.Decimal {
	return a.TargetPrice.Sub(a.TriggeredPrice)
}

// SavingsPercentage is savings relative to the target price, 0 when the
// target price is not positive.
func (a Alert) SavingsPercentage() float64 {
	if !a.TargetPrice.IsPositive() {
		return 0
	}
	pct, _ := a.Savings().Div(a.TargetPrice).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}

// Stats aggregates total costs over a trailing window of observations.
type Stats struct {
	Lowest      decimal.Decimal
	Highest     decimal.Decimal
	Average     decimal.Decimal
	Median      decimal.Decimal
	OfferCount  int
	SourceCount int
	LastChecked time.Time
}
