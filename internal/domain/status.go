package domain

import "time"

// Status represents the reconciliation lifecycle state of a bank transaction
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusMatched   Status = "MATCHED"
	StatusToReview  Status = "TO_REVIEW"
	StatusUnmatched Status = "UNMATCHED"
	StatusManual    Status = "MANUAL"
	StatusIgnored   Status = "IGNORED"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusMatched, StatusToReview, StatusUnmatched, StatusManual, StatusIgnored},
	StatusToReview:  {StatusMatched, StatusToReview, StatusUnmatched, StatusManual, StatusIgnored},
	StatusUnmatched: {StatusMatched, StatusToReview, StatusUnmatched, StatusManual, StatusIgnored},
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusToReview, StatusUnmatched, StatusManual, StatusIgnored:
		return true
	}
	return false
}

// Terminal reports whether the automated pipeline must leave s untouched
func (s Status) Terminal() bool {
	return s == StatusMatched || s == StatusManual || s == StatusIgnored
}

// Reclassifiable reports whether the rule engine may (re)evaluate a transaction in s
func (s Status) Reclassifiable() bool {
	return !s.Terminal() && s.Valid()
}

// CanTransition reports whether from -> to is a legal lifecycle step
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StatusUpdate is the full set of columns written by one status transition
type StatusUpdate struct {
	Status             Status
	MatchedEntryID     *string
	MatchConfidence    *float64
	SuggestedAccountID *string
	MatchedAccountID   *string
	UpdatedAt          time.Time
}

// Validate checks the matched-entry invariant for the target status
func (u StatusUpdate) Validate() error {
	switch u.Status {
	case StatusMatched, StatusManual:
		if u.MatchedEntryID == nil || *u.MatchedEntryID == "" {
			return &ValidationError{Field: "matched_entry_id", Reason: "required for status " + string(u.Status)}
		}
	case StatusPending, StatusUnmatched, StatusIgnored, StatusToReview:
		if u.MatchedEntryID != nil {
			return &ValidationError{Field: "matched_entry_id", Reason: "must be empty for status " + string(u.Status)}
		}
	default:
		return &ValidationError{Field: "status", Reason: "unknown status " + string(u.Status)}
	}
	return nil
}
