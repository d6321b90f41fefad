package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Millstreamu/StockTrak/rules"
)

// UpsertActionables writes an evaluation's full actionable set, inserting new
// records and refreshing existing ones by id.
func (s *Store) UpsertActionables(ctx context.Context, actionables []*rules.Actionable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning actionable upsert: %w", err)
	}
	defer tx.Rollback()

	for _, a := range actionables {
		var snoozed interface{}
		if a.SnoozedUntil != nil {
			snoozed = a.SnoozedUntil.Format(timeFormat)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO actionables
			 (id, type, symbol, message, status, context, created_at, updated_at, snoozed_until)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   message = excluded.message, status = excluded.status,
			   context = excluded.context, updated_at = excluded.updated_at,
			   snoozed_until = excluded.snoozed_until`,
			a.ID.String(), a.Type, a.Symbol, a.Message, string(a.Status),
			a.Context, a.CreatedAt.Format(timeFormat), a.UpdatedAt.Format(timeFormat),
			snoozed)
		if err != nil {
			return fmt.Errorf("upserting actionable %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// ListActionables returns persisted actionables, optionally filtered by
// status ("" for all), newest first.
func (s *Store) ListActionables(ctx context.Context, status rules.Status) ([]*rules.Actionable, error) {
	query := `SELECT id, type, symbol, message, status, context, created_at,
	          updated_at, snoozed_until FROM actionables`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing actionables: %w", err)
	}
	defer rows.Close()

	var out []*rules.Actionable
	for rows.Next() {
		var a rules.Actionable
		var id, status, created, updated string
		var snoozed sql.NullString
		err := rows.Scan(&id, &a.Type, &a.Symbol, &a.Message, &status,
			&a.Context, &created, &updated, &snoozed)
		if err != nil {
			return nil, err
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("actionable has bad id %q: %w", id, err)
		}
		a.Status = rules.Status(status)
		if a.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, err
		}
		if a.UpdatedAt, err = time.Parse(timeFormat, updated); err != nil {
			return nil, err
		}
		if snoozed.Valid {
			t, err := time.Parse(timeFormat, snoozed.String)
			if err != nil {
				return nil, err
			}
			a.SnoozedUntil = &t
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// SetActionableStatus updates one actionable's status. until applies only to
// snoozes.
func (s *Store) SetActionableStatus(ctx context.Context, id uuid.UUID, status rules.Status, until *time.Time) error {
	var snoozed interface{}
	if until != nil {
		snoozed = until.Format(timeFormat)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE actionables SET status = ?, snoozed_until = ?, updated_at = ? WHERE id = ?`,
		string(status), snoozed, time.Now().Format(timeFormat), id.String())
	if err != nil {
		return fmt.Errorf("updating actionable %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("actionable %s does not exist", id)
	}
	return nil
}
