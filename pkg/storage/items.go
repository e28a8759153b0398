package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

func (d *DB) CreateItem(ctx context.Context, item market.Item) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `
		INSERT INTO items (media_kind, title, isbn, barcode, catalog_number, owned, condition)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(item.MediaKind), item.Title, nullIfEmpty(item.ISBN), nullIfEmpty(item.Barcode),
		nullIfEmpty(item.CatalogNumber), boolToInt(item.Owned), nullIfEmpty(string(item.Condition)))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const itemColumns = "id, media_kind, title, COALESCE(isbn,''), COALESCE(barcode,''), COALESCE(catalog_number,''), owned, COALESCE(condition,'')"

func scanItem(row interface{ Scan(...interface{}) error }) (market.Item, error) {
	var it market.Item
	var kind, cond string
	var owned int
	if err := row.Scan(&it.ID, &kind, &it.Title, &it.ISBN, &it.Barcode, &it.CatalogNumber, &owned, &cond); err != nil {
		return market.Item{}, err
	}
	it.MediaKind = market.MediaKind(kind)
	it.Owned = owned == 1
	it.Condition = market.Condition(cond)
	return it, nil
}

func (d *DB) GetItem(ctx context.Context, id int64) (market.Item, error) {
	row := d.sql.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return market.Item{}, ErrNotFound
	}
	return it, err
}

func (d *DB) ListItems(ctx context.Context) ([]market.Item, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT "+itemColumns+" FROM items ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// ItemsNeedingCheck selects items eligible for a batch price check: a
// usable identifier and no available observation inside the freshness
// window. force bypasses the freshness gate.
func (d *DB) ItemsNeedingCheck(ctx context.Context, freshness time.Duration, limit int, force bool) ([]market.Item, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT " + itemColumns + ` FROM items i
		WHERE (COALESCE(i.isbn,'') != '' OR COALESCE(i.barcode,'') != '' OR COALESCE(i.catalog_number,'') != '')`
	args := []interface{}{}
	if !force {
		q += ` AND NOT EXISTS (
			SELECT 1 FROM observations o
			WHERE o.item_id = i.id AND o.is_available = 1 AND o.checked_at >= ?
		)`
		args = append(args, formatTime(time.Now().Add(-freshness)))
	}
	q += " ORDER BY i.id LIMIT ?"
	args = append(args, limit)

	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
