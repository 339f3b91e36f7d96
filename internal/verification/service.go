// Package verification is the only entry point for changing item reports and
// claims. Each mutating operation runs in a single transaction that also
// appends exactly one activity entry, so a change and its audit record are
// committed together or not at all.
package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"

	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/obs"
	"github.com/erazemk/reclaim/internal/sealing"
	"github.com/erazemk/reclaim/internal/store"
)

// Service coordinates the item report and claim lifecycles.
type Service struct {
	db     *sql.DB
	items  *store.ItemReportStore
	claims *store.ClaimStore
	audit  *store.AuditLog

	// Held outside transactions, claim before item.
	locks keyedMutex
}

// New creates a service over db. Security answers are sealed with box.
func New(db *sql.DB, box *sealing.Box) *Service {
	items := store.NewItemReportStore(db, box)
	return &Service{
		db:     db,
		items:  items,
		claims: store.NewClaimStore(db, items),
		audit:  store.NewAuditLog(db),
	}
}

// SubmitItemReport files a new pending report on behalf of a finder.
func (s *Service) SubmitItemReport(ctx context.Context, actor model.Identity, in model.ItemReportInput) (*model.ItemReport, error) {
	var item *model.ItemReport
	err := store.WithTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		item, err = s.items.Create(ctx, actor.UserID, in)
		if err != nil {
			return err
		}
		return s.record(ctx, actor, model.ActionItemReported, item,
			fmt.Sprintf("Reported %s found at %s", item.ItemType, item.Location))
	})
	if err != nil {
		return nil, err
	}

	obs.LifecycleEvent(string(model.ActionItemReported))
	return item, nil
}

// SubmitClaim files a pending claim against a verified item. A claim against
// an item that is missing or not verified fails with ErrInvalidTarget and
// leaves a failed_claim_attempt entry behind.
func (s *Service) SubmitClaim(ctx context.Context, actor model.Identity, itemID string, answers []string) (*model.Claim, error) {
	unlock := s.locks.Lock(itemKey(itemID))
	defer unlock()

	var claim *model.Claim
	err := store.WithTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		claim, err = s.claims.Create(ctx, actor.UserID, itemID, answers)
		if err != nil {
			return err
		}
		item, err := s.items.Get(ctx, itemID)
		if err != nil {
			return err
		}
		return s.record(ctx, actor, model.ActionClaimSubmitted, item,
			fmt.Sprintf("Submitted claim for %s (Code: %s)", item.ItemType, claim.ClaimCode))
	})

	var te *model.TargetError
	if errors.As(err, &te) {
		if logErr := s.recordFailedAttempt(ctx, actor, te); logErr != nil {
			return nil, errors.Join(err, logErr)
		}
		obs.LifecycleEvent(string(model.ActionFailedClaimAttempt))
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	obs.LifecycleEvent(string(model.ActionClaimSubmitted))
	return claim, nil
}

// recordFailedAttempt commits a failed_claim_attempt entry on its own, after
// the refused claim was rolled back.
func (s *Service) recordFailedAttempt(ctx context.Context, actor model.Identity, te *model.TargetError) error {
	e := model.ActivityLogEntry{
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Action:    model.ActionFailedClaimAttempt,
		ItemID:    te.ItemID,
		Details:   fmt.Sprintf("Claim attempt on missing item %s", te.ItemID),
	}
	if te.Status != "" {
		if item, err := s.items.Get(ctx, te.ItemID); err == nil {
			e.ItemType = item.ItemType
			e.Details = fmt.Sprintf("Claim attempt on %s item %s", te.Status, item.ItemType)
		}
	}
	if _, err := s.audit.Append(ctx, e); err != nil {
		return fmt.Errorf("recording failed claim attempt: %w", err)
	}
	return nil
}

// DecideItem verifies or rejects a pending item report. A rejected report
// stays pending so it can be reviewed again.
func (s *Service) DecideItem(ctx context.Context, actor model.Identity, itemID string, approve bool) (*model.ItemReport, error) {
	unlock := s.locks.Lock(itemKey(itemID))
	defer unlock()

	to, action, verb := model.ItemStatusPending, model.ActionItemRejected, "Rejected"
	if approve {
		to, action, verb = model.ItemStatusVerified, model.ActionItemVerified, "Verified"
	}

	var item *model.ItemReport
	err := store.WithTx(ctx, s.db, func(ctx context.Context) error {
		var err error
		item, err = s.items.Get(ctx, itemID)
		if err != nil {
			return err
		}
		// Only pending reports can be decided, including the reject no-op.
		if item.Status != model.ItemStatusPending {
			return &model.TransitionError{
				Entity: "item report", ID: itemID,
				From: string(item.Status), To: string(to),
				Kind: model.ErrIllegalTransition,
			}
		}
		if err := s.items.SetStatus(ctx, itemID, to); err != nil {
			return err
		}
		item.Status = to
		return s.record(ctx, actor, action, item,
			fmt.Sprintf("%s item report for %s", verb, item.ItemType))
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	obs.LifecycleEvent(string(action))
	return item, nil
}

// DecideClaim approves or rejects a pending claim. Approval also moves the
// item to claimed; if the item is no longer verified the decision fails with
// ErrConflict and nothing changes. Answers are not compared here, the
// decision is the reviewer's.
func (s *Service) DecideClaim(ctx context.Context, actor model.Identity, claimID string, approve bool) (*model.Claim, error) {
	unlockClaim := s.locks.Lock(claimKey(claimID))
	defer unlockClaim()

	// A claim's item never changes, so it is safe to read before locking it.
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	unlockItem := s.locks.Lock(itemKey(claim.ItemID))
	defer unlockItem()

	to, action, verb := model.ClaimStatusRejected, model.ActionClaimRejected, "Rejected"
	if approve {
		to, action, verb = model.ClaimStatusApproved, model.ActionClaimApproved, "Approved"
	}

	err = store.WithTx(ctx, s.db, func(ctx context.Context) error {
		item, err := s.items.Get(ctx, claim.ItemID)
		if err != nil {
			return err
		}
		if err := s.claims.SetStatus(ctx, claimID, to, actor.UserID); err != nil {
			return err
		}
		if approve {
			if item.Status != model.ItemStatusVerified {
				return &model.TransitionError{
					Entity: "item report", ID: item.ID,
					From: string(item.Status), To: string(model.ItemStatusClaimed),
					Kind: model.ErrConflict,
				}
			}
			if err := s.items.SetStatus(ctx, item.ID, model.ItemStatusClaimed); err != nil {
				return err
			}
		}
		if err := s.record(ctx, actor, action, item,
			fmt.Sprintf("%s claim for %s (Code: %s)", verb, item.ItemType, claim.ClaimCode)); err != nil {
			return err
		}
		claim, err = s.claims.Get(ctx, claimID)
		return err
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	obs.LifecycleEvent(string(action))
	return claim, nil
}

// record appends the activity entry for a mutation on item within the
// current transaction.
func (s *Service) record(ctx context.Context, actor model.Identity, action model.Action, item *model.ItemReport, details string) error {
	_, err := s.audit.Append(ctx, model.ActivityLogEntry{
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Action:    action,
		ItemID:    item.ID,
		ItemType:  item.ItemType,
		Details:   details,
	})
	if err != nil {
		return fmt.Errorf("recording %s: %w", action, err)
	}
	return nil
}

func (s *Service) countConflict(err error) {
	if errors.Is(err, model.ErrConflict) {
		obs.DecisionConflict()
	}
}

// ReviewClaim returns a claim with its answers next to the item's security
// questions and canonical answers.
func (s *Service) ReviewClaim(ctx context.Context, claimID string) (*model.ClaimReview, error) {
	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.Get(ctx, claim.ItemID)
	if err != nil {
		return nil, err
	}
	review := model.NewClaimReview(*claim, *item)
	return &review, nil
}

// ItemReport returns a report by ID, answers included.
func (s *Service) ItemReport(ctx context.Context, id string) (*model.ItemReport, error) {
	return s.items.Get(ctx, id)
}

// Claim returns a claim by ID.
func (s *Service) Claim(ctx context.Context, id string) (*model.Claim, error) {
	return s.claims.Get(ctx, id)
}

// ClaimByCode returns a claim by its claim code.
func (s *Service) ClaimByCode(ctx context.Context, code string) (*model.Claim, error) {
	return s.claims.GetByCode(ctx, code)
}

// ItemReports lists reports matching f in creation order.
func (s *Service) ItemReports(ctx context.Context, f store.ItemFilter) iter.Seq2[model.ItemReport, error] {
	return s.items.List(ctx, f)
}

// Claims lists claims matching f in creation order.
func (s *Service) Claims(ctx context.Context, f store.ClaimFilter) iter.Seq2[model.Claim, error] {
	return s.claims.List(ctx, f)
}

// Activity lists audit entries matching f, newest first.
func (s *Service) Activity(ctx context.Context, f store.ActivityFilter) iter.Seq2[model.ActivityLogEntry, error] {
	return s.audit.List(ctx, f)
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context) (model.Stats, error) {
	var (
		items  map[model.ItemStatus]int
		claims map[model.ClaimStatus]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = s.items.CountByStatus(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		claims, err = s.claims.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Stats{}, err
	}

	return model.Stats{
		PendingReports: items[model.ItemStatusPending],
		VerifiedItems:  items[model.ItemStatusVerified],
		PendingClaims:  claims[model.ClaimStatusPending],
		ClaimedItems:   items[model.ItemStatusClaimed],
	}, nil
}
