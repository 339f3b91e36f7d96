package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/erazemk/reclaim/internal/ids"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/sealing"
)

const itemColumns = `id, reporter_id, item_type, location, date_found, time_found, photo_ref, status, created_at, updated_at`

// ItemReportStore owns item reports and their status transitions.
type ItemReportStore struct {
	db  *sql.DB
	box *sealing.Box
}

// NewItemReportStore creates an item report store. Security answers are
// sealed with box before they reach the database.
func NewItemReportStore(db *sql.DB, box *sealing.Box) *ItemReportStore {
	return &ItemReportStore{db: db, box: box}
}

// ItemFilter narrows a listing. Zero fields match everything.
type ItemFilter struct {
	Status     model.ItemStatus
	ReporterID string
}

// Create stores a new pending item report.
func (s *ItemReportStore) Create(ctx context.Context, reporterID string, in model.ItemReportInput) (*model.ItemReport, error) {
	reporterID = strings.TrimSpace(reporterID)
	if reporterID == "" {
		return nil, &model.ValidationError{Field: "reporter_id", Reason: "is required"}
	}
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	sealed := make([]string, len(in.SecurityQuestions))
	for i, q := range in.SecurityQuestions {
		v, err := s.box.Seal(q.Answer)
		if err != nil {
			return nil, fmt.Errorf("sealing answer: %w", err)
		}
		sealed[i] = v
	}

	id := ids.New()
	err := WithTx(ctx, s.db, func(ctx context.Context) error {
		q := conn(ctx, s.db)
		_, err := q.ExecContext(ctx,
			`INSERT INTO item_reports (id, reporter_id, item_type, location, date_found, time_found, photo_ref)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, reporterID, in.ItemType, in.Location, in.DateFound, in.TimeFound, in.PhotoRef,
		)
		if err != nil {
			return fmt.Errorf("creating item report: %w", err)
		}

		for i, sq := range in.SecurityQuestions {
			_, err := q.ExecContext(ctx,
				`INSERT INTO security_questions (item_id, position, question, answer_sealed) VALUES (?, ?, ?, ?)`,
				id, i, sq.Question, sealed[i],
			)
			if err != nil {
				return fmt.Errorf("creating security question: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Get returns an item report by ID.
func (s *ItemReportStore) Get(ctx context.Context, id string) (*model.ItemReport, error) {
	q := conn(ctx, s.db)

	item := &model.ItemReport{}
	err := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM item_reports WHERE id = ?`, id,
	).Scan(itemDest(item)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "item report", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting item report: %w", err)
	}

	questions, err := s.questions(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	item.SecurityQuestions = questions[id]
	return item, nil
}

// SetStatus moves an item report to a new status if the lifecycle allows it.
// The update only applies if the status is still the one that was checked.
func (s *ItemReportStore) SetStatus(ctx context.Context, id string, to model.ItemStatus) error {
	q := conn(ctx, s.db)

	var from model.ItemStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM item_reports WHERE id = ?`, id).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.NotFoundError{Entity: "item report", ID: id}
	}
	if err != nil {
		return fmt.Errorf("reading item report status: %w", err)
	}

	if !model.CanTransitionItem(from, to) {
		return &model.TransitionError{
			Entity: "item report", ID: id,
			From: string(from), To: string(to),
			Kind: model.ErrIllegalTransition,
		}
	}

	result, err := q.ExecContext(ctx,
		`UPDATE item_reports SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("updating item report status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item report status: %w", err)
	}
	if n == 0 {
		return &model.TransitionError{
			Entity: "item report", ID: id,
			From: string(from), To: string(to),
			Kind: model.ErrConflict,
		}
	}
	return nil
}

// List returns a lazy sequence of item reports matching f, in creation
// order. Each call starts a fresh listing of the current state.
func (s *ItemReportStore) List(ctx context.Context, f ItemFilter) iter.Seq2[model.ItemReport, error] {
	return func(yield func(model.ItemReport, error) bool) {
		var after int64
		for {
			batch, last, err := s.listBatch(ctx, f, after)
			if err != nil {
				yield(model.ItemReport{}, err)
				return
			}
			for _, item := range batch {
				if !yield(item, nil) {
					return
				}
			}
			if len(batch) < listBatchSize {
				return
			}
			after = last
		}
	}
}

func (s *ItemReportStore) listBatch(ctx context.Context, f ItemFilter, after int64) ([]model.ItemReport, int64, error) {
	q := conn(ctx, s.db)

	query := `SELECT rowid, ` + itemColumns + ` FROM item_reports WHERE rowid > ?`
	args := []any{after}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ReporterID != "" {
		query += ` AND reporter_id = ?`
		args = append(args, f.ReporterID)
	}
	query += ` ORDER BY rowid LIMIT ?`
	args = append(args, listBatchSize)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing item reports: %w", err)
	}

	var (
		items []model.ItemReport
		keys  []string
		last  int64
	)
	for rows.Next() {
		var item model.ItemReport
		if err := rows.Scan(append([]any{&last}, itemDest(&item)...)...); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scanning item report: %w", err)
		}
		items = append(items, item)
		keys = append(keys, item.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("listing item reports: %w", err)
	}
	rows.Close()

	if len(items) == 0 {
		return nil, last, nil
	}

	questions, err := s.questions(ctx, q, keys)
	if err != nil {
		return nil, 0, err
	}
	for i := range items {
		items[i].SecurityQuestions = questions[items[i].ID]
	}
	return items, last, nil
}

// CountByStatus returns how many item reports are in each status.
func (s *ItemReportStore) CountByStatus(ctx context.Context) (map[model.ItemStatus]int, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM item_reports GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting item reports: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ItemStatus]int)
	for rows.Next() {
		var status model.ItemStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning item report count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// questions loads and unseals the security questions of the given items.
func (s *ItemReportStore) questions(ctx context.Context, q querier, itemIDs []string) (map[string][]model.SecurityQuestion, error) {
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT item_id, question, answer_sealed FROM security_questions
		 WHERE item_id IN (`+placeholders(len(itemIDs))+`)
		 ORDER BY item_id, position`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("getting security questions: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.SecurityQuestion, len(itemIDs))
	for rows.Next() {
		var itemID, sealed string
		var sq model.SecurityQuestion
		if err := rows.Scan(&itemID, &sq.Question, &sealed); err != nil {
			return nil, fmt.Errorf("scanning security question: %w", err)
		}
		sq.Answer, err = s.box.Open(sealed)
		if err != nil {
			return nil, fmt.Errorf("opening answer for item %s: %w", itemID, err)
		}
		out[itemID] = append(out[itemID], sq)
	}
	return out, rows.Err()
}

func itemDest(item *model.ItemReport) []any {
	return []any{
		&item.ID, &item.ReporterID, &item.ItemType, &item.Location, &item.DateFound,
		&item.TimeFound, &item.PhotoRef, &item.Status, &item.CreatedAt, &item.UpdatedAt,
	}
}
