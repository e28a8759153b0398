package storage

import (
	"context"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

// SetTarget creates or replaces a user's price target for an item.
func (d *DB) SetTarget(ctx context.Context, t market.Target) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO targets (user_id, item_id, target_price, priority)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, item_id) DO UPDATE SET
			target_price = excluded.target_price,
			priority = excluded.priority`,
		t.UserID, t.ItemID, t.TargetPrice.String(), t.Priority)
	return err
}

// TargetWithItem pairs a price target with the item it watches.
type TargetWithItem struct {
	Target market.Target
	Item   market.Item
}

// TargetsWithPrice returns every target that has a positive price set,
// joined with its item. Targets without a price are wishlist-only and
// never alert.
func (d *DB) TargetsWithPrice(ctx context.Context) ([]TargetWithItem, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT t.user_id, t.item_id, CAST(t.target_price AS TEXT), t.priority,
			i.id, i.media_kind, i.title, COALESCE(i.isbn,''), COALESCE(i.barcode,''),
			COALESCE(i.catalog_number,''), i.owned, COALESCE(i.condition,'')
		FROM targets t
		JOIN items i ON i.id = t.item_id
		WHERE t.target_price IS NOT NULL AND t.target_price > 0
		ORDER BY t.priority DESC, t.item_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TargetWithItem
	for rows.Next() {
		var tw TargetWithItem
		var price, kind, cond string
		var owned int
		err := rows.Scan(&tw.Target.UserID, &tw.Target.ItemID, &price, &tw.Target.Priority,
			&tw.Item.ID, &kind, &tw.Item.Title, &tw.Item.ISBN, &tw.Item.Barcode,
			&tw.Item.CatalogNumber, &owned, &cond)
		if err != nil {
			return nil, err
		}
		tw.Target.TargetPrice = parseAmount(price)
		tw.Item.MediaKind = market.MediaKind(kind)
		tw.Item.Owned = owned == 1
		tw.Item.Condition = market.Condition(cond)
		out = append(out, tw)
	}
	return out, rows.Err()
}
