package model

import (
	"strings"
	"time"
)

// ItemStatus is the lifecycle state of a found-item report.
type ItemStatus string

// Item statuses.
const (
	ItemStatusPending  ItemStatus = "pending"
	ItemStatusVerified ItemStatus = "verified"
	ItemStatusClaimed  ItemStatus = "claimed"
)

// ItemStatuses lists every item status in lifecycle order.
var ItemStatuses = []ItemStatus{ItemStatusPending, ItemStatusVerified, ItemStatusClaimed}

// Valid reports whether s is a known item status.
func (s ItemStatus) Valid() bool {
	switch s {
	case ItemStatusPending, ItemStatusVerified, ItemStatusClaimed:
		return true
	}
	return false
}

// CanTransitionItem reports whether an item report may move from one status
// to another. Rejecting a pending report keeps it pending.
func CanTransitionItem(from, to ItemStatus) bool {
	switch from {
	case ItemStatusPending:
		return to == ItemStatusPending || to == ItemStatusVerified
	case ItemStatusVerified:
		return to == ItemStatusClaimed
	}
	return false
}

// SecurityQuestion is a question set by the finder together with the
// canonical answer a legitimate owner should know.
type SecurityQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// ItemReport is a finder's report of a found item.
type ItemReport struct {
	ID                string             `json:"id"`
	ReporterID        string             `json:"reporter_id"`
	ItemType          string             `json:"item_type"`
	Location          string             `json:"location"`
	DateFound         string             `json:"date_found"`
	TimeFound         string             `json:"time_found,omitempty"`
	PhotoRef          string             `json:"photo_ref,omitempty"`
	SecurityQuestions []SecurityQuestion `json:"security_questions"`
	Status            ItemStatus         `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// Redacted returns a copy of the report without security answers.
func (r ItemReport) Redacted() ItemReport {
	qs := make([]SecurityQuestion, len(r.SecurityQuestions))
	for i, q := range r.SecurityQuestions {
		qs[i] = SecurityQuestion{Question: q.Question}
	}
	r.SecurityQuestions = qs
	return r
}

// ItemReportInput holds the fields a finder submits.
type ItemReportInput struct {
	ItemType          string             `json:"item_type"`
	Location          string             `json:"location"`
	DateFound         string             `json:"date_found"`
	TimeFound         string             `json:"time_found"`
	PhotoRef          string             `json:"photo_ref"`
	SecurityQuestions []SecurityQuestion `json:"security_questions"`
}

// Normalize trims surrounding whitespace from every field.
func (in ItemReportInput) Normalize() ItemReportInput {
	out := ItemReportInput{
		ItemType:  strings.TrimSpace(in.ItemType),
		Location:  strings.TrimSpace(in.Location),
		DateFound: strings.TrimSpace(in.DateFound),
		TimeFound: strings.TrimSpace(in.TimeFound),
		PhotoRef:  strings.TrimSpace(in.PhotoRef),
	}
	out.SecurityQuestions = make([]SecurityQuestion, len(in.SecurityQuestions))
	for i, q := range in.SecurityQuestions {
		out.SecurityQuestions[i] = SecurityQuestion{
			Question: strings.TrimSpace(q.Question),
			Answer:   strings.TrimSpace(q.Answer),
		}
	}
	return out
}

// Stats holds the dashboard counters.
type Stats struct {
	PendingReports int `json:"pending_reports"`
	VerifiedItems  int `json:"verified_items"`
	PendingClaims  int `json:"pending_claims"`
	ClaimedItems   int `json:"claimed_items"`
}
