package model

import (
	"fmt"
	"net/url"
	"time"
)

// Validate checks a normalized report input.
func (in ItemReportInput) Validate() error {
	if in.ItemType == "" {
		return &ValidationError{Field: "item_type", Reason: "is required"}
	}
	if in.Location == "" {
		return &ValidationError{Field: "location", Reason: "is required"}
	}
	if _, err := time.Parse(time.DateOnly, in.DateFound); err != nil {
		return &ValidationError{Field: "date_found", Reason: "must be a date in YYYY-MM-DD format"}
	}
	if in.TimeFound != "" {
		if _, err := time.Parse("15:04", in.TimeFound); err != nil {
			return &ValidationError{Field: "time_found", Reason: "must be a time in HH:MM format"}
		}
	}
	if in.PhotoRef != "" {
		u, err := url.Parse(in.PhotoRef)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "photo_ref", Reason: "must be an absolute http or https URL"}
		}
	}

	if len(in.SecurityQuestions) == 0 {
		return &ValidationError{Field: "security_questions", Reason: "at least one question is required"}
	}
	for i, q := range in.SecurityQuestions {
		if q.Question == "" {
			return &ValidationError{Field: fmt.Sprintf("security_questions[%d].question", i), Reason: "must not be blank"}
		}
		if q.Answer == "" {
			return &ValidationError{Field: fmt.Sprintf("security_questions[%d].answer", i), Reason: "must not be blank"}
		}
	}
	return nil
}
