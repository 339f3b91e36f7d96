package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"math/big"
	"strings"
	"time"

	"github.com/erazemk/reclaim/internal/ids"
	"github.com/erazemk/reclaim/internal/model"
)

const claimColumns = `id, item_id, claimant_id, claim_code, status, created_at, decided_at, decided_by`

// maxClaimCodeAttempts bounds retries when a generated claim code is taken.
const maxClaimCodeAttempts = 16

// newClaimCode is swapped in tests to force collisions.
var newClaimCode = generateClaimCode

// ClaimStore owns claims and their status transitions.
type ClaimStore struct {
	db    *sql.DB
	items *ItemReportStore
}

// NewClaimStore creates a claim store reading targets from items.
func NewClaimStore(db *sql.DB, items *ItemReportStore) *ClaimStore {
	return &ClaimStore{db: db, items: items}
}

// ClaimFilter narrows a listing. Zero fields match everything.
type ClaimFilter struct {
	Status     model.ClaimStatus
	ClaimantID string
	ItemID     string
}

// Create stores a new pending claim against a verified item. The number of
// answers must match the item's security questions; their content is not
// compared here.
func (s *ClaimStore) Create(ctx context.Context, claimantID, itemID string, answers []string) (*model.Claim, error) {
	claimantID = strings.TrimSpace(claimantID)
	if claimantID == "" {
		return nil, &model.ValidationError{Field: "claimant_id", Reason: "is required"}
	}

	id := ids.New()
	err := WithTx(ctx, s.db, func(ctx context.Context) error {
		item, err := s.items.Get(ctx, itemID)
		if errors.Is(err, model.ErrNotFound) {
			return &model.TargetError{ItemID: itemID}
		}
		if err != nil {
			return err
		}
		if item.Status != model.ItemStatusVerified {
			return &model.TargetError{ItemID: itemID, Status: item.Status}
		}
		if len(answers) != len(item.SecurityQuestions) {
			return &model.ValidationError{
				Field:  "answers",
				Reason: fmt.Sprintf("expected %d answers, got %d", len(item.SecurityQuestions), len(answers)),
			}
		}

		q := conn(ctx, s.db)
		if err := s.insertWithCode(ctx, q, id, itemID, claimantID); err != nil {
			return err
		}

		for i, a := range answers {
			_, err := q.ExecContext(ctx,
				`INSERT INTO claim_answers (claim_id, position, answer) VALUES (?, ?, ?)`,
				id, i, strings.TrimSpace(a),
			)
			if err != nil {
				return fmt.Errorf("creating claim answer: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// insertWithCode inserts the claim row under a fresh claim code. The unique
// index makes checking and reserving a code a single statement; a collision
// is retried with a new code.
func (s *ClaimStore) insertWithCode(ctx context.Context, q querier, id, itemID, claimantID string) error {
	for range maxClaimCodeAttempts {
		code, err := newClaimCode()
		if err != nil {
			return fmt.Errorf("generating claim code: %w", err)
		}

		_, err = q.ExecContext(ctx,
			`INSERT INTO claims (id, item_id, claimant_id, claim_code) VALUES (?, ?, ?, ?)`,
			id, itemID, claimantID, code,
		)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err, "claims.claim_code") {
			return fmt.Errorf("creating claim: %w", err)
		}
	}
	return fmt.Errorf("creating claim: no free claim code after %d attempts", maxClaimCodeAttempts)
}

// Get returns a claim by ID.
func (s *ClaimStore) Get(ctx context.Context, id string) (*model.Claim, error) {
	return s.getBy(ctx, "id", id)
}

// GetByCode returns a claim by its claim code.
func (s *ClaimStore) GetByCode(ctx context.Context, code string) (*model.Claim, error) {
	return s.getBy(ctx, "claim_code", strings.ToUpper(strings.TrimSpace(code)))
}

func (s *ClaimStore) getBy(ctx context.Context, column, value string) (*model.Claim, error) {
	q := conn(ctx, s.db)

	c := &model.Claim{}
	var decidedBy sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE `+column+` = ?`, value,
	).Scan(claimDest(c, &decidedBy)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &model.NotFoundError{Entity: "claim", ID: value}
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	c.DecidedBy = decidedBy.String

	answers, err := s.answers(ctx, q, []string{c.ID})
	if err != nil {
		return nil, err
	}
	c.Answers = answers[c.ID]
	return c, nil
}

// SetStatus records the decision on a pending claim. Decided claims are
// final.
func (s *ClaimStore) SetStatus(ctx context.Context, id string, to model.ClaimStatus, decidedBy string) error {
	q := conn(ctx, s.db)

	var from model.ClaimStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM claims WHERE id = ?`, id).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.NotFoundError{Entity: "claim", ID: id}
	}
	if err != nil {
		return fmt.Errorf("reading claim status: %w", err)
	}

	if !model.CanTransitionClaim(from, to) {
		return &model.TransitionError{
			Entity: "claim", ID: id,
			From: string(from), To: string(to),
			Kind: model.ErrIllegalTransition,
		}
	}

	conflict := &model.TransitionError{
		Entity: "claim", ID: id,
		From: string(from), To: string(to),
		Kind: model.ErrConflict,
	}

	result, err := q.ExecContext(ctx,
		`UPDATE claims SET status = ?, decided_at = ?, decided_by = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), decidedBy, id, from,
	)
	if isUniqueViolation(err, "claims.item_id") {
		// Another claim on the same item is already approved.
		return conflict
	}
	if err != nil {
		return fmt.Errorf("updating claim status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating claim status: %w", err)
	}
	if n == 0 {
		return conflict
	}
	return nil
}

// List returns a lazy sequence of claims matching f, in creation order.
func (s *ClaimStore) List(ctx context.Context, f ClaimFilter) iter.Seq2[model.Claim, error] {
	return func(yield func(model.Claim, error) bool) {
		var after int64
		for {
			batch, last, err := s.listBatch(ctx, f, after)
			if err != nil {
				yield(model.Claim{}, err)
				return
			}
			for _, c := range batch {
				if !yield(c, nil) {
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

func (s *ClaimStore) listBatch(ctx context.Context, f ClaimFilter, after int64) ([]model.Claim, int64, error) {
	q := conn(ctx, s.db)

	query := `SELECT rowid, ` + claimColumns + ` FROM claims WHERE rowid > ?`
	args := []any{after}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.ClaimantID != "" {
		query += ` AND claimant_id = ?`
		args = append(args, f.ClaimantID)
	}
	if f.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, f.ItemID)
	}
	query += ` ORDER BY rowid LIMIT ?`
	args = append(args, listBatchSize)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing claims: %w", err)
	}

	var (
		claims []model.Claim
		keys   []string
		last   int64
	)
	for rows.Next() {
		var c model.Claim
		var decidedBy sql.NullString
		if err := rows.Scan(append([]any{&last}, claimDest(&c, &decidedBy)...)...); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scanning claim: %w", err)
		}
		c.DecidedBy = decidedBy.String
		claims = append(claims, c)
		keys = append(keys, c.ID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("listing claims: %w", err)
	}
	rows.Close()

	if len(claims) == 0 {
		return nil, last, nil
	}

	answers, err := s.answers(ctx, q, keys)
	if err != nil {
		return nil, 0, err
	}
	for i := range claims {
		claims[i].Answers = answers[claims[i].ID]
	}
	return claims, last, nil
}

// CountByStatus returns how many claims are in each status.
func (s *ClaimStore) CountByStatus(ctx context.Context) (map[model.ClaimStatus]int, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT status, COUNT(*) FROM claims GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting claims: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ClaimStatus]int)
	for rows.Next() {
		var status model.ClaimStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning claim count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *ClaimStore) answers(ctx context.Context, q querier, claimIDs []string) (map[string][]string, error) {
	args := make([]any, len(claimIDs))
	for i, id := range claimIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT claim_id, answer FROM claim_answers
		 WHERE claim_id IN (`+placeholders(len(claimIDs))+`)
		 ORDER BY claim_id, position`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("getting claim answers: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(claimIDs))
	for rows.Next() {
		var claimID, answer string
		if err := rows.Scan(&claimID, &answer); err != nil {
			return nil, fmt.Errorf("scanning claim answer: %w", err)
		}
		out[claimID] = append(out[claimID], answer)
	}
	return out, rows.Err()
}

func claimDest(c *model.Claim, decidedBy *sql.NullString) []any {
	return []any{
		&c.ID, &c.ItemID, &c.ClaimantID, &c.ClaimCode, &c.Status,
		&c.CreatedAt, &c.DecidedAt, decidedBy,
	}
}

// generateClaimCode creates a code like "RC-7KQ2X9PA" from an alphabet
// without easily confused characters.
func generateClaimCode() (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	result := make([]byte, 8)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return "RC-" + string(result), nil
}
