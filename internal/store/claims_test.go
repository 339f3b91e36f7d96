package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/erazemk/reclaim/internal/model"
)

var claimCodePattern = regexp.MustCompile(`^RC-[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{8}$`)

func TestCreateClaim(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)

	c, err := s.claims.Create(ctx, "claimer-1", item.ID, []string{" brown ", "bus pass"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != model.ClaimStatusPending {
		t.Errorf("expected pending, got %q", c.Status)
	}
	if !claimCodePattern.MatchString(c.ClaimCode) {
		t.Errorf("unexpected claim code %q", c.ClaimCode)
	}
	if len(c.Answers) != 2 || c.Answers[0] != "brown" {
		t.Errorf("expected trimmed answers in order, got %q", c.Answers)
	}
	if c.DecidedAt != nil || c.DecidedBy != "" {
		t.Error("expected undecided claim")
	}

	byCode, err := s.claims.GetByCode(ctx, " "+c.ClaimCode+" ")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if byCode.ID != c.ID {
		t.Errorf("expected claim %s by code, got %s", c.ID, byCode.ID)
	}
}

func TestCreateClaimInvalidTarget(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	pending, _ := s.items.Create(ctx, "finder-1", walletInput())

	_, err := s.claims.Create(ctx, "claimer-1", pending.ID, []string{"a", "b"})
	var te *model.TargetError
	if !errors.As(err, &te) {
		t.Fatalf("expected TargetError for pending item, got %v", err)
	}
	if te.Status != model.ItemStatusPending {
		t.Errorf("expected status pending in error, got %q", te.Status)
	}

	_, err = s.claims.Create(ctx, "claimer-1", "missing", []string{"a"})
	if !errors.Is(err, model.ErrInvalidTarget) {
		t.Errorf("expected invalid target for missing item, got %v", err)
	}

	all, _ := Collect(s.claims.List(ctx, ClaimFilter{}))
	if len(all) != 0 {
		t.Errorf("expected no claims, got %d", len(all))
	}
}

func TestCreateClaimAnswerCountMismatch(t *testing.T) {
	s := newTestStores(t)
	item := verifiedItem(t, s)

	_, err := s.claims.Create(context.Background(), "claimer-1", item.ID, []string{"only one"})
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "answers" {
		t.Errorf("expected answers field, got %q", ve.Field)
	}
}

func TestCreateClaimBlankAnswersAccepted(t *testing.T) {
	s := newTestStores(t)
	item := verifiedItem(t, s)

	c, err := s.claims.Create(context.Background(), "claimer-1", item.ID, []string{"", ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(c.Answers) != 2 {
		t.Errorf("expected 2 stored answers, got %d", len(c.Answers))
	}
}

func TestCreateClaimCodeCollisionRetried(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)

	codes := []string{"RC-AAAAAAAA", "RC-AAAAAAAA", "RC-AAAAAAAA", "RC-BBBBBBBB"}
	orig := newClaimCode
	t.Cleanup(func() { newClaimCode = orig })
	newClaimCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, err := s.claims.Create(ctx, "claimer-1", item.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	second, err := s.claims.Create(ctx, "claimer-2", item.ID, []string{"a", "b"})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	if first.ClaimCode != "RC-AAAAAAAA" || second.ClaimCode != "RC-BBBBBBBB" {
		t.Errorf("unexpected codes %q and %q", first.ClaimCode, second.ClaimCode)
	}
	if len(codes) != 0 {
		t.Errorf("expected all generated codes to be used, %d left", len(codes))
	}
}

func TestCreateClaimCodeExhausted(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)

	orig := newClaimCode
	t.Cleanup(func() { newClaimCode = orig })
	newClaimCode = func() (string, error) { return "RC-AAAAAAAA", nil }

	if _, err := s.claims.Create(ctx, "claimer-1", item.ID, []string{"a", "b"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	if _, err := s.claims.Create(ctx, "claimer-2", item.ID, []string{"a", "b"}); err == nil {
		t.Fatal("expected error when no free code can be found")
	}

	all, _ := Collect(s.claims.List(ctx, ClaimFilter{}))
	if len(all) != 1 {
		t.Errorf("expected failed create to leave no claim, got %d claims", len(all))
	}
}

func TestClaimTransitions(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)

	c, _ := s.claims.Create(ctx, "claimer-1", item.ID, []string{"a", "b"})

	if err := s.claims.SetStatus(ctx, c.ID, model.ClaimStatusPending, "admin-1"); !errors.Is(err, model.ErrIllegalTransition) {
		t.Errorf("expected illegal transition for pending -> pending, got %v", err)
	}
	if err := s.claims.SetStatus(ctx, c.ID, model.ClaimStatusRejected, "admin-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := s.claims.SetStatus(ctx, c.ID, model.ClaimStatusApproved, "admin-1"); !errors.Is(err, model.ErrIllegalTransition) {
		t.Errorf("expected illegal transition for rejected -> approved, got %v", err)
	}

	got, _ := s.claims.Get(ctx, c.ID)
	if got.Status != model.ClaimStatusRejected {
		t.Errorf("expected rejected, got %q", got.Status)
	}
	if got.DecidedBy != "admin-1" || got.DecidedAt == nil {
		t.Errorf("expected decision recorded, got by=%q at=%v", got.DecidedBy, got.DecidedAt)
	}

	if err := s.claims.SetStatus(ctx, "missing", model.ClaimStatusApproved, "admin-1"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestOneApprovedClaimPerItem(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)

	a, _ := s.claims.Create(ctx, "claimer-1", item.ID, []string{"a", "b"})
	b, _ := s.claims.Create(ctx, "claimer-2", item.ID, []string{"a", "b"})

	if err := s.claims.SetStatus(ctx, a.ID, model.ClaimStatusApproved, "admin-1"); err != nil {
		t.Fatalf("approve a: %v", err)
	}
	err := s.claims.SetStatus(ctx, b.ID, model.ClaimStatusApproved, "admin-1")
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict approving a second claim, got %v", err)
	}

	got, _ := s.claims.Get(ctx, b.ID)
	if got.Status != model.ClaimStatusPending {
		t.Errorf("expected second claim to stay pending, got %q", got.Status)
	}

	// Rejecting is still possible.
	if err := s.claims.SetStatus(ctx, b.ID, model.ClaimStatusRejected, "admin-1"); err != nil {
		t.Errorf("reject b: %v", err)
	}
}

func TestListClaims(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)
	other := verifiedItem(t, s)

	a, _ := s.claims.Create(ctx, "claimer-1", item.ID, []string{"a", "b"})
	s.claims.Create(ctx, "claimer-2", item.ID, []string{"a", "b"})
	s.claims.Create(ctx, "claimer-1", other.ID, []string{"a", "b"})
	s.claims.SetStatus(ctx, a.ID, model.ClaimStatusRejected, "admin-1")

	all, err := Collect(s.claims.List(ctx, ClaimFilter{}))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(all))
	}
	if all[0].ID != a.ID || len(all[0].Answers) != 2 {
		t.Errorf("expected first claim with answers, got %+v", all[0])
	}

	tests := []struct {
		name   string
		filter ClaimFilter
		want   int
	}{
		{"pending", ClaimFilter{Status: model.ClaimStatusPending}, 2},
		{"rejected", ClaimFilter{Status: model.ClaimStatusRejected}, 1},
		{"approved", ClaimFilter{Status: model.ClaimStatusApproved}, 0},
		{"claimant", ClaimFilter{ClaimantID: "claimer-1"}, 2},
		{"item", ClaimFilter{ItemID: item.ID}, 2},
		{"item and status", ClaimFilter{ItemID: item.ID, Status: model.ClaimStatusPending}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Collect(s.claims.List(ctx, tt.filter))
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d claims, got %d", tt.want, len(got))
			}
		})
	}

	counts, err := s.claims.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[model.ClaimStatusPending] != 2 || counts[model.ClaimStatusRejected] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestGetClaimNotFound(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()

	if _, err := s.claims.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := s.claims.GetByCode(ctx, "RC-NOPE2345"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found by code, got %v", err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStores(t)
	ctx := context.Background()
	item := verifiedItem(t, s)

	boom := errors.New("boom")
	err := WithTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.items.SetStatus(ctx, item.ID, model.ItemStatusClaimed); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.items.Get(ctx, item.ID)
	if got.Status != model.ItemStatusVerified {
		t.Errorf("expected rollback to keep verified, got %q", got.Status)
	}
}
