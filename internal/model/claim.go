package model

import "time"

// ClaimStatus is the lifecycle state of an ownership claim.
type ClaimStatus string

// Claim statuses.
const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// Valid reports whether s is a known claim status.
func (s ClaimStatus) Valid() bool {
	switch s {
	case ClaimStatusPending, ClaimStatusApproved, ClaimStatusRejected:
		return true
	}
	return false
}

// CanTransitionClaim reports whether a claim may move from one status to
// another. A claim is decided exactly once.
func CanTransitionClaim(from, to ClaimStatus) bool {
	return from == ClaimStatusPending && (to == ClaimStatusApproved || to == ClaimStatusRejected)
}

// Claim is a claimant's assertion of ownership over a verified item.
type Claim struct {
	ID         string      `json:"id"`
	ItemID     string      `json:"item_id"`
	ClaimantID string      `json:"claimant_id"`
	ClaimCode  string      `json:"claim_code"`
	Answers    []string    `json:"answers"`
	Status     ClaimStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	DecidedAt  *time.Time  `json:"decided_at,omitempty"`
	DecidedBy  string      `json:"decided_by,omitempty"`
}

// AnswerPair places the finder's answer next to the claimant's.
type AnswerPair struct {
	Question string `json:"question"`
	Expected string `json:"expected"`
	Given    string `json:"given"`
}

// ClaimReview is what staff see when deciding a claim. Matching is left to
// the reviewer.
type ClaimReview struct {
	Claim Claim        `json:"claim"`
	Item  ItemReport   `json:"item"`
	Pairs []AnswerPair `json:"pairs"`
}

// NewClaimReview pairs a claim's answers with its item's security questions.
func NewClaimReview(c Claim, item ItemReport) ClaimReview {
	pairs := make([]AnswerPair, len(c.Answers))
	for i, given := range c.Answers {
		pairs[i].Given = given
		if i < len(item.SecurityQuestions) {
			pairs[i].Question = item.SecurityQuestions[i].Question
			pairs[i].Expected = item.SecurityQuestions[i].Answer
		}
	}
	return ClaimReview{Claim: c, Item: item, Pairs: pairs}
}
