package matcher

import (
	"bankrec-engine/internal/domain"
)

// DefaultAutoMatchThreshold is the minimum counterpart confidence for AUTO_MATCH
const DefaultAutoMatchThreshold = 0.8

// Decision is the outcome of combining a classification with a counterpart suggestion.
// When NeedsLedgerEntry is set, Status is the fallback used if no ledger entry is found.
type Decision struct {
	Status             domain.Status
	AccountID          string
	SuggestedAccountID string
	Confidence         float64
	NeedsLedgerEntry   bool
	RuleID             string
}

// Decide maps a classification to a target status.
// NO_MATCH never carries an account; the suggestion is only kept for the reviewer.
func Decide(c Classification, s Suggestion, threshold float64) Decision {
	d := Decision{
		SuggestedAccountID: s.AccountID,
		Confidence:         s.Confidence,
	}
	if c.Rule != nil {
		d.RuleID = c.Rule.ID
	}

	if !c.Matched {
		d.Status = domain.StatusUnmatched
		return d
	}

	d.AccountID = c.TargetAccountID
	if d.AccountID == "" {
		d.AccountID = s.AccountID
	}

	d.Status = domain.StatusToReview
	if c.Action == domain.ActionAutoMatch && d.AccountID != "" && s.Confidence >= threshold {
		d.NeedsLedgerEntry = true
	}
	return d
}

// Resolve applies the ledger lookup result to a decision needing an entry
func (d Decision) Resolve(entryID string) domain.Status {
	if d.NeedsLedgerEntry && entryID != "" {
		return domain.StatusMatched
	}
	return d.Status
}
