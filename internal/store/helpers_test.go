package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/reclaim/internal/db"
	"github.com/erazemk/reclaim/internal/model"
	"github.com/erazemk/reclaim/internal/sealing"
)

type testStores struct {
	db     *sql.DB
	items  *ItemReportStore
	claims *ClaimStore
	audit  *AuditLog
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	database := db.NewTestDB(t)

	key, err := GetSealingKey(context.Background(), database)
	if err != nil {
		t.Fatalf("GetSealingKey: %v", err)
	}
	box, err := sealing.NewFromHex(key)
	if err != nil {
		t.Fatalf("sealing.NewFromHex: %v", err)
	}

	items := NewItemReportStore(database, box)
	return testStores{
		db:     database,
		items:  items,
		claims: NewClaimStore(database, items),
		audit:  NewAuditLog(database),
	}
}

func walletInput() model.ItemReportInput {
	return model.ItemReportInput{
		ItemType:  "Wallet",
		Location:  "Library",
		DateFound: "2026-03-14",
		TimeFound: "09:30",
		SecurityQuestions: []model.SecurityQuestion{
			{Question: "What color is it?", Answer: "Brown"},
			{Question: "What is inside?", Answer: "A bus pass"},
		},
	}
}

// verifiedItem creates an item report and moves it to verified.
func verifiedItem(t *testing.T, s testStores) *model.ItemReport {
	t.Helper()
	ctx := context.Background()
	item, err := s.items.Create(ctx, "finder-1", walletInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.items.SetStatus(ctx, item.ID, model.ItemStatusVerified); err != nil {
		t.Fatalf("SetStatus verified: %v", err)
	}
	item.Status = model.ItemStatusVerified
	return item
}
