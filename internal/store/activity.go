package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"math"
	"strings"
	"time"

	"github.com/erazemk/reclaim/internal/model"
)

// AuditLog is the append-only activity log.
type AuditLog struct {
	db  *sql.DB
	now func() time.Time
}

// NewAuditLog creates an audit log backed by db.
func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db, now: time.Now}
}

// ActivityFilter narrows a listing. Zero fields match everything.
type ActivityFilter struct {
	Action model.Action
	ItemID string
}

// Append writes one entry and returns it with its ID and timestamp set.
// Timestamps never go backwards: an entry is stamped no earlier than the one
// before it.
func (l *AuditLog) Append(ctx context.Context, e model.ActivityLogEntry) (*model.ActivityLogEntry, error) {
	if !e.Action.Valid() {
		return nil, &model.ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", e.Action)}
	}
	if strings.TrimSpace(e.ActorID) == "" {
		return nil, &model.ValidationError{Field: "actor_id", Reason: "is required"}
	}

	err := WithTx(ctx, l.db, func(ctx context.Context) error {
		q := conn(ctx, l.db)

		var last int64
		err := q.QueryRowContext(ctx,
			`SELECT occurred_at FROM activity_log ORDER BY id DESC LIMIT 1`,
		).Scan(&last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("reading last activity: %w", err)
		}

		ts := max(l.now().UnixNano(), last)

		result, err := q.ExecContext(ctx,
			`INSERT INTO activity_log (occurred_at, actor_id, actor_name, action, item_id, item_type, details)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ts, e.ActorID, e.ActorName, e.Action,
			sql.NullString{String: e.ItemID, Valid: e.ItemID != ""},
			e.ItemType, e.Details,
		)
		if err != nil {
			return fmt.Errorf("appending activity: %w", err)
		}

		e.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting activity id: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// List returns a lazy sequence of entries matching f, newest first. Entries
// with equal timestamps come in reverse insertion order.
func (l *AuditLog) List(ctx context.Context, f ActivityFilter) iter.Seq2[model.ActivityLogEntry, error] {
	return func(yield func(model.ActivityLogEntry, error) bool) {
		before := int64(math.MaxInt64)
		for {
			batch, err := l.listBatch(ctx, f, before)
			if err != nil {
				yield(model.ActivityLogEntry{}, err)
				return
			}
			for _, e := range batch {
				if !yield(e, nil) {
					return
				}
			}
			if len(batch) < listBatchSize {
				return
			}
			before = batch[len(batch)-1].ID
		}
	}
}

func (l *AuditLog) listBatch(ctx context.Context, f ActivityFilter, before int64) ([]model.ActivityLogEntry, error) {
	query := `SELECT id, occurred_at, actor_id, actor_name, action, item_id, item_type, details
	          FROM activity_log WHERE id < ?`
	args := []any{before}
	if f.Action != "" {
		query += ` AND action = ?`
		args = append(args, f.Action)
	}
	if f.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, f.ItemID)
	}
	// IDs grow with insertion and timestamps never decrease with it, so this
	// is newest first with ties in reverse insertion order.
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, listBatchSize)

	rows, err := conn(ctx, l.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	defer rows.Close()

	var entries []model.ActivityLogEntry
	for rows.Next() {
		var e model.ActivityLogEntry
		var ts int64
		var itemID sql.NullString
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.ActorName, &e.Action, &itemID, &e.ItemType, &e.Details); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		e.ItemID = itemID.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
