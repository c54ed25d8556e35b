package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/repository"
	"bankrec-engine/pkg/logger"
)

// RuleInput carries the user-editable fields of a rule
type RuleInput struct {
	Direction       domain.Direction     `json:"direction"`
	Predicate       domain.RulePredicate `json:"predicate"`
	TargetAccountID string               `json:"target_account_id"`
	Action          domain.RuleAction    `json:"action"`
}

// RuleService manages the two ordered rule lists. Changing rules does not
// reclassify anything; callers run a reconciliation afterwards.
type RuleService interface {
	List(ctx context.Context, direction domain.Direction) ([]domain.ReconciliationRule, error)
	Get(ctx context.Context, id string) (*domain.ReconciliationRule, error)
	Create(ctx context.Context, input RuleInput) (*domain.ReconciliationRule, error)
	Update(ctx context.Context, id string, input RuleInput) (*domain.ReconciliationRule, error)
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, direction domain.Direction, ids []string) ([]domain.ReconciliationRule, error)
	MoveToTop(ctx context.Context, id string) ([]domain.ReconciliationRule, error)
	MoveToBottom(ctx context.Context, id string) ([]domain.ReconciliationRule, error)
}

type ruleService struct {
	repo repository.RuleRepository
}

func NewRuleService(repo repository.RuleRepository) RuleService {
	return &ruleService{repo: repo}
}

func (s *ruleService) List(ctx context.Context, direction domain.Direction) ([]domain.ReconciliationRule, error) {
	if direction != domain.DirectionNone && !direction.Valid() {
		return nil, &domain.ValidationError{Field: "direction", Reason: "must be emessi or ricevuti"}
	}
	return s.repo.List(ctx, direction)
}

func (s *ruleService) Get(ctx context.Context, id string) (*domain.ReconciliationRule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ruleService) Create(ctx context.Context, input RuleInput) (*domain.ReconciliationRule, error) {
	now := time.Now().UTC()
	rule := &domain.ReconciliationRule{
		ID:              uuid.New().String(),
		Direction:       input.Direction,
		Predicate:       input.Predicate,
		TargetAccountID: input.TargetAccountID,
		Action:          input.Action,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"rule_id":   rule.ID,
		"direction": rule.Direction,
		"order":     rule.Order,
	}).Info("Reconciliation rule created")
	return rule, nil
}

// Update edits a rule in place; its direction and position never change here
func (s *ruleService) Update(ctx context.Context, id string, input RuleInput) (*domain.ReconciliationRule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Direction != domain.DirectionNone && input.Direction != rule.Direction {
		return nil, &domain.ValidationError{Field: "direction", Reason: "cannot be changed; delete and recreate the rule"}
	}

	rule.Predicate = input.Predicate
	rule.TargetAccountID = input.TargetAccountID
	rule.Action = input.Action
	rule.UpdatedAt = time.Now().UTC()
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *ruleService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.GetLogger().WithField("rule_id", id).Info("Reconciliation rule deleted")
	return nil
}

// Reorder stores ids as the complete new order of direction
func (s *ruleService) Reorder(ctx context.Context, direction domain.Direction, ids []string) ([]domain.ReconciliationRule, error) {
	if !direction.Valid() {
		return nil, &domain.ValidationError{Field: "direction", Reason: "must be emessi or ricevuti"}
	}
	if err := s.repo.Reorder(ctx, direction, ids); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"direction": direction,
		"rules":     len(ids),
	}).Info("Reconciliation rules reordered")
	return s.repo.List(ctx, direction)
}

func (s *ruleService) MoveToTop(ctx context.Context, id string) ([]domain.ReconciliationRule, error) {
	return s.move(ctx, id, true)
}

func (s *ruleService) MoveToBottom(ctx context.Context, id string) ([]domain.ReconciliationRule, error) {
	return s.move(ctx, id, false)
}

func (s *ruleService) move(ctx context.Context, id string, top bool) ([]domain.ReconciliationRule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rules, err := s.repo.List(ctx, rule.Direction)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		if r.ID != id {
			ids = append(ids, r.ID)
		}
	}
	if top {
		ids = append([]string{id}, ids...)
	} else {
		ids = append(ids, id)
	}

	// a concurrent create or delete between List and Reorder surfaces as ErrRuleSetMismatch
	return s.Reorder(ctx, rule.Direction, ids)
}
