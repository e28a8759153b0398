package storage

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

// InsertObservation persists one offer. total_cost is computed here so
// the stored value always equals price plus shipping.
func (d *DB) InsertObservation(ctx context.Context, itemID int64, offer market.Offer) (int64, error) {
	observedAt := offer.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now()
	}
	res, err := d.sql.ExecContext(ctx, `
		INSERT INTO observations (item_id, source, title, author, identifier, price, shipping_cost,
			total_cost, condition, seller_name, seller_location, description, url, currency,
			is_available, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		itemID, offer.Source, offer.Title, nullIfEmpty(offer.Author), nullIfEmpty(offer.Identifier),
		offer.Price.String(), offer.ShippingCost.String(), offer.TotalCost().String(),
		string(offer.Condition), nullIfEmpty(offer.SellerName), nullIfEmpty(offer.SellerLocation),
		nullIfEmpty(offer.Description), nullIfEmpty(offer.URL), offer.Currency,
		boolToInt(offer.Available), formatTime(observedAt))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const observationColumns = `id, item_id, source, title, COALESCE(author,''), COALESCE(identifier,''),
	CAST(price AS TEXT), CAST(shipping_cost AS TEXT), CAST(total_cost AS TEXT), condition,
	COALESCE(seller_name,''), COALESCE(seller_location,''), COALESCE(description,''),
	COALESCE(url,''), currency, is_available, checked_at`

func scanObservation(row interface{ Scan(...interface{}) error }) (market.Observation, error) {
	var o market.Observation
	var price, shipping, total, cond, checkedAt string
	var available int
	err := row.Scan(&o.ID, &o.ItemID, &o.Source, &o.Title, &o.Author, &o.Identifier,
		&price, &shipping, &total, &cond, &o.SellerName, &o.SellerLocation,
		&o.Description, &o.URL, &o.Currency, &available, &checkedAt)
	if err != nil {
		return market.Observation{}, err
	}
	o.Price = parseAmount(price)
	o.ShippingCost = parseAmount(shipping)
	o.TotalCost = parseAmount(total)
	o.Condition = market.Condition(cond)
	o.Available = available == 1
	o.ObservedAt = parseTime(checkedAt)
	return o, nil
}

func (d *DB) queryObservations(ctx context.Context, q string, args ...interface{}) ([]market.Observation, error) {
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LatestObservations returns the available observations inside the
// freshness window, cheapest total cost first.
func (d *DB) LatestObservations(ctx context.Context, itemID int64, window time.Duration) ([]market.Observation, error) {
	return d.queryObservations(ctx,
		"SELECT "+observationColumns+` FROM observations
		WHERE item_id = ? AND is_available = 1 AND checked_at >= ?
		ORDER BY total_cost ASC, id ASC`,
		itemID, formatTime(time.Now().Add(-window)))
}

// ObservationHistory returns every observation of an item over the
// trailing number of days, newest first.
func (d *DB) ObservationHistory(ctx context.Context, itemID int64, days int) ([]market.Observation, error) {
	return d.queryObservations(ctx,
		"SELECT "+observationColumns+` FROM observations
		WHERE item_id = ? AND checked_at >= ?
		ORDER BY checked_at DESC, id DESC`,
		itemID, formatTime(time.Now().AddDate(0, 0, -days)))
}

// CleanupObservationsOlderThan deletes aged rows and reports how many
// went away. Safe to run repeatedly.
func (d *DB) CleanupObservationsOlderThan(ctx context.Context, days int) (int64, error) {
	res, err := d.sql.ExecContext(ctx,
		"DELETE FROM observations WHERE checked_at < ?",
		formatTime(time.Now().AddDate(0, 0, -days)))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ItemStats aggregates total costs of available observations over the
// trailing number of days. The median is the true middle value, the
// mean of the two middle values for even sample sizes.
func (d *DB) ItemStats(ctx context.Context, itemID int64, days int) (market.Stats, error) {
	obs, err := d.queryObservations(ctx,
		"SELECT "+observationColumns+` FROM observations
		WHERE item_id = ? AND is_available = 1 AND checked_at >= ?
		ORDER BY total_cost ASC, id ASC`,
		itemID, formatTime(time.Now().AddDate(0, 0, -days)))
	if err != nil {
		return market.Stats{}, err
	}
	if len(obs) == 0 {
		return market.Stats{}, nil
	}

	var stats market.Stats
	stats.OfferCount = len(obs)

	sum := decimal.Zero
	seen := map[string]struct{}{}
	for _, o := range obs {
		sum = sum.Add(o.TotalCost)
		seen[o.Source] = struct{}{}
		if o.ObservedAt.After(stats.LastChecked) {
			stats.LastChecked = o.ObservedAt
		}
	}
	stats.SourceCount = len(seen)

	costs := make([]decimal.Decimal, len(obs))
	for i, o := range obs {
		costs[i] = o.TotalCost
	}
	sort.Slice(costs, func(i, j int) bool { return costs[i].LessThan(costs[j]) })

	stats.Lowest = costs[0]
	stats.Highest = costs[len(costs)-1]
	stats.Average = sum.Div(decimal.NewFromInt(int64(len(costs)))).Round(2)

	mid := len(costs) / 2
	if len(costs)%2 == 1 {
		stats.Median = costs[mid]
	} else {
		stats.Median = costs[mid-1].Add(costs[mid]).Div(decimal.NewFromInt(2))
	}
	return stats, nil
}
