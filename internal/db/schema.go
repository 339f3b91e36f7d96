package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS item_reports (
    id          TEXT PRIMARY KEY,
    reporter_id TEXT NOT NULL,
    item_type   TEXT NOT NULL,
    location    TEXT NOT NULL,
    date_found  TEXT NOT NULL,
    time_found  TEXT NOT NULL DEFAULT '',
    photo_ref   TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'verified', 'claimed')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_item_reports_status ON item_reports(status);
CREATE INDEX IF NOT EXISTS idx_item_reports_reporter ON item_reports(reporter_id);

CREATE TABLE IF NOT EXISTS security_questions (
    item_id       TEXT NOT NULL REFERENCES item_reports(id),
    position      INTEGER NOT NULL CHECK (position >= 0),
    question      TEXT NOT NULL,
    answer_sealed TEXT NOT NULL,
    PRIMARY KEY (item_id, position)
);

CREATE TABLE IF NOT EXISTS claims (
    id          TEXT PRIMARY KEY,
    item_id     TEXT NOT NULL REFERENCES item_reports(id),
    claimant_id TEXT NOT NULL,
    claim_code  TEXT NOT NULL,
    status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    decided_at  DATETIME,
    decided_by  TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_code ON claims(claim_code);
CREATE INDEX IF NOT EXISTS idx_claims_item ON claims(item_id);
CREATE INDEX IF NOT EXISTS idx_claims_claimant ON claims(claimant_id);

-- At most one approved claim per item.
CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_approved
    ON claims(item_id) WHERE status = 'approved';

CREATE TABLE IF NOT EXISTS claim_answers (
    claim_id TEXT NOT NULL REFERENCES claims(id),
    position INTEGER NOT NULL CHECK (position >= 0),
    answer   TEXT NOT NULL,
    PRIMARY KEY (claim_id, position)
);

-- Activity entries keep item ids as plain values so they outlive the items.
CREATE TABLE IF NOT EXISTS activity_log (
    id          INTEGER PRIMARY KEY,
    occurred_at INTEGER NOT NULL,
    actor_id    TEXT NOT NULL,
    actor_name  TEXT NOT NULL,
    action      TEXT NOT NULL CHECK (action IN (
                    'item_reported', 'item_verified', 'item_rejected',
                    'claim_submitted', 'claim_approved', 'claim_rejected',
                    'failed_claim_attempt', 'item_status_changed')),
    item_id     TEXT,
    item_type   TEXT NOT NULL DEFAULT '',
    details     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_activity_log_item ON activity_log(item_id);

CREATE TRIGGER IF NOT EXISTS activity_log_no_update
BEFORE UPDATE ON activity_log
BEGIN
    SELECT RAISE(ABORT, 'activity_log is append-only');
END;

CREATE TRIGGER IF NOT EXISTS activity_log_no_delete
BEFORE DELETE ON activity_log
BEGIN
    SELECT RAISE(ABORT, 'activity_log is append-only');
END;
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
