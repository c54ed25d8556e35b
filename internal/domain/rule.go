package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Direction selects which ordered rule list applies to a transaction
type Direction string

const (
	// DirectionIssued covers outbound movements (amount < 0)
	DirectionIssued Direction = "emessi"
	// DirectionReceived covers inbound movements (amount > 0)
	DirectionReceived Direction = "ricevuti"
	// DirectionNone is returned for zero amounts; no rule list applies
	DirectionNone Direction = ""
)

// Valid reports whether d names one of the two rule lists
func (d Direction) Valid() bool {
	return d == DirectionIssued || d == DirectionReceived
}

// DirectionOf derives the direction from the amount sign
func DirectionOf(amount decimal.Decimal) Direction {
	switch {
	case amount.IsNegative():
		return DirectionIssued
	case amount.IsPositive():
		return DirectionReceived
	default:
		return DirectionNone
	}
}

// RuleAction is what a matching rule asks the pipeline to do
type RuleAction string

const (
	ActionAutoMatch  RuleAction = "AUTO_MATCH"
	ActionFlagReview RuleAction = "FLAG_REVIEW"
)

// Valid reports whether a is a known action
func (a RuleAction) Valid() bool {
	return a == ActionAutoMatch || a == ActionFlagReview
}

// RulePredicate holds the match criteria. Empty fields are wildcards.
type RulePredicate struct {
	AccountCode      string `json:"account_code,omitempty" db:"account_code"`
	DocumentTypeCode string `json:"document_type_code,omitempty" db:"document_type_code"`
	PaymentTypeCode  string `json:"payment_type_code,omitempty" db:"payment_type_code"`
}

// Matches reports whether every non-wildcard field equals the subject attribute
func (p RulePredicate) Matches(accountCode, documentTypeCode, paymentTypeCode string) bool {
	return fieldMatches(p.AccountCode, accountCode) &&
		fieldMatches(p.DocumentTypeCode, documentTypeCode) &&
		fieldMatches(p.PaymentTypeCode, paymentTypeCode)
}

func fieldMatches(want, got string) bool {
	want = strings.TrimSpace(want)
	if want == "" || want == "*" {
		return true
	}
	return strings.EqualFold(want, strings.TrimSpace(got))
}

// ReconciliationRule is one entry of an ordered, per-direction rule list
type ReconciliationRule struct {
	ID              string        `json:"id" db:"id"`
	Direction       Direction     `json:"direction" db:"direction"`
	Order           int           `json:"order" db:"sort_order"`
	Predicate       RulePredicate `json:"predicate"`
	TargetAccountID string        `json:"target_account_id,omitempty" db:"target_account_id"`
	Action          RuleAction    `json:"action" db:"action"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// Validate checks the user-editable fields of a rule
func (r *ReconciliationRule) Validate() error {
	if !r.Direction.Valid() {
		return &ValidationError{Field: "direction", Reason: "must be emessi or ricevuti"}
	}
	if !r.Action.Valid() {
		return &ValidationError{Field: "action", Reason: "must be AUTO_MATCH or FLAG_REVIEW"}
	}
	return nil
}
