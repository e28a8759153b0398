package storage

import (
	"context"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/market"
)

// CreateAlert inserts one alert row. The UNIQUE(user_id, item_id,
// observation_id) constraint is the dedup arbiter: a second insert for
// the same tuple returns ErrDuplicateAlert no matter which process or
// run races it in.
func (d *DB) CreateAlert(ctx context.Context, a market.Alert) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `
		INSERT INTO alerts (user_id, item_id, observation_id, target_price, triggered_price, source, triggered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.ItemID, a.ObservationID, a.TargetPrice.String(), a.TriggeredPrice.String(),
		a.Source, formatTime(time.Now()))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateAlert
		}
		return 0, err
	}
	return res.LastInsertId()
}

const alertColumns = `id, user_id, item_id, observation_id, CAST(target_price AS TEXT),
	CAST(triggered_price AS TEXT), source, triggered_at, notified_at, is_read`

func scanAlert(row interface{ Scan(...interface{}) error }) (market.Alert, error) {
	var a market.Alert
	var target, triggered, triggeredAt string
	var notifiedAt *string
	var isRead int
	err := row.Scan(&a.ID, &a.UserID, &a.ItemID, &a.ObservationID, &target, &triggered,
		&a.Source, &triggeredAt, &notifiedAt, &isRead)
	if err != nil {
		return market.Alert{}, err
	}
	a.TargetPrice = parseAmount(target)
	a.TriggeredPrice = parseAmount(triggered)
	a.TriggeredAt = parseTime(triggeredAt)
	if notifiedAt != nil {
		t := parseTime(*notifiedAt)
		a.NotifiedAt = &t
	}
	a.IsRead = isRead == 1
	return a, nil
}

// ListAlerts returns a user's alerts, newest first.
func (d *DB) ListAlerts(ctx context.Context, userID int64, unreadOnly bool) ([]market.Alert, error) {
	q := "SELECT " + alertColumns + " FROM alerts WHERE user_id = ?"
	if unreadOnly {
		q += " AND is_read = 0"
	}
	q += " ORDER BY triggered_at DESC, id DESC"

	rows, err := d.sql.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UnnotifiedAlerts returns alerts that have not been delivered yet.
func (d *DB) UnnotifiedAlerts(ctx context.Context) ([]market.Alert, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+alertColumns+" FROM alerts WHERE notified_at IS NULL ORDER BY triggered_at, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkAlertNotified stamps the delivery time.
func (d *DB) MarkAlertNotified(ctx context.Context, id int64) error {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE alerts SET notified_at = ? WHERE id = ? AND notified_at IS NULL",
		formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	return errNotFoundOnZero(res.RowsAffected())
}

// MarkAlertRead flips the read flag; only the owning user may do so.
func (d *DB) MarkAlertRead(ctx context.Context, id, userID int64) error {
	res, err := d.sql.ExecContext(ctx,
		"UPDATE alerts SET is_read = 1 WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return errNotFoundOnZero(res.RowsAffected())
}

// DeleteAlert removes an alert; only the owning user may do so.
func (d *DB) DeleteAlert(ctx context.Context, id, userID int64) error {
	res, err := d.sql.ExecContext(ctx,
		"DELETE FROM alerts WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return err
	}
	return errNotFoundOnZero(res.RowsAffected())
}

func errNotFoundOnZero(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
