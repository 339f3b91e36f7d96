package model

import "time"

// Action identifies the kind of a state-changing activity. The string values
// are stable and parsed by log consumers.
type Action string

// Actions.
const (
	ActionItemReported       Action = "item_reported"
	ActionItemVerified       Action = "item_verified"
	ActionItemRejected       Action = "item_rejected"
	ActionClaimSubmitted     Action = "claim_submitted"
	ActionClaimApproved      Action = "claim_approved"
	ActionClaimRejected      Action = "claim_rejected"
	ActionFailedClaimAttempt Action = "failed_claim_attempt"
	// Reserved for direct status edits outside the decision flows.
	ActionItemStatusChanged Action = "item_status_changed"
)

var actionLabels = map[Action]string{
	ActionItemReported:       "Item Reported",
	ActionItemVerified:       "Item Verified",
	ActionItemRejected:       "Item Rejected",
	ActionClaimSubmitted:     "Claim Submitted",
	ActionClaimApproved:      "Claim Approved",
	ActionClaimRejected:      "Claim Rejected",
	ActionFailedClaimAttempt: "Failed Claim Attempt",
	ActionItemStatusChanged:  "Item Status Changed",
}

// Valid reports whether a is part of the action vocabulary.
func (a Action) Valid() bool {
	_, ok := actionLabels[a]
	return ok
}

// Label returns the display label for the action.
func (a Action) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

// ActivityLogEntry is an immutable record of one state-changing action.
type ActivityLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Action    Action    `json:"action"`
	ItemID    string    `json:"item_id,omitempty"`
	ItemType  string    `json:"item_type,omitempty"`
	Details   string    `json:"details"`
}
