package matcher

import (
	"sort"

	"bankrec-engine/internal/domain"
)

// Subject is what the rule predicates are evaluated against
type Subject struct {
	TransactionID    string
	Direction        domain.Direction
	AccountCode      string
	DocumentTypeCode string
	PaymentTypeCode  string
}

// SubjectFor combines a transaction's direction with its counterpart suggestion
func SubjectFor(tx *domain.BankTransaction, s Suggestion) Subject {
	return Subject{
		TransactionID:    tx.ID,
		Direction:        tx.Direction(),
		AccountCode:      s.AccountID,
		DocumentTypeCode: s.DocumentTypeCode,
		PaymentTypeCode:  s.PaymentTypeCode,
	}
}

// Classification is the rule engine result. Matched is false for NO_MATCH.
type Classification struct {
	Matched         bool
	Rule            *domain.ReconciliationRule
	Action          domain.RuleAction
	TargetAccountID string
}

// NoMatch is the empty classification
var NoMatch = Classification{}

// Classify evaluates the rules of the subject's direction in ascending order;
// the first matching rule wins.
func Classify(subject Subject, rules []domain.ReconciliationRule) Classification {
	return NewRuleSet(rules).Classify(subject)
}

// RuleSet is an immutable, pre-sorted snapshot of the rules of both directions
type RuleSet struct {
	byDirection map[domain.Direction][]domain.ReconciliationRule
}

// NewRuleSet partitions rules by direction and sorts each list by order, then id
func NewRuleSet(rules []domain.ReconciliationRule) *RuleSet {
	rs := &RuleSet{byDirection: make(map[domain.Direction][]domain.ReconciliationRule, 2)}
	for _, r := range rules {
		if !r.Direction.Valid() {
			continue
		}
		rs.byDirection[r.Direction] = append(rs.byDirection[r.Direction], r)
	}
	for _, list := range rs.byDirection {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Order != list[j].Order {
				return list[i].Order < list[j].Order
			}
			return list[i].ID < list[j].ID
		})
	}
	return rs
}

// Rules returns the ordered rules of one direction
func (rs *RuleSet) Rules(d domain.Direction) []domain.ReconciliationRule {
	return rs.byDirection[d]
}

// Classify returns the first rule of the subject's direction whose predicate matches.
// Zero-amount subjects have no direction and never match.
func (rs *RuleSet) Classify(subject Subject) Classification {
	if !subject.Direction.Valid() {
		return NoMatch
	}

	list := rs.byDirection[subject.Direction]
	for i := range list {
		rule := &list[i]
		if !rule.Predicate.Matches(subject.AccountCode, subject.DocumentTypeCode, subject.PaymentTypeCode) {
			continue
		}
		return Classification{
			Matched:         true,
			Rule:            rule,
			Action:          rule.Action,
			TargetAccountID: rule.TargetAccountID,
		}
	}
	return NoMatch
}
