package service

import (
	"context"
	"strings"
	"time"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/repository"
	"bankrec-engine/pkg/logger"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type TransactionService interface {
	List(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionPage, error)
	Get(ctx context.Context, id string) (*domain.BankTransaction, error)
	ManualMatch(ctx context.Context, id, entryID, accountID, actor string) (*domain.BankTransaction, error)
	Ignore(ctx context.Context, id, actor string) (*domain.BankTransaction, error)
}

type transactionService struct {
	repo repository.TransactionRepository
}

func NewTransactionService(repo repository.TransactionRepository) TransactionService {
	return &transactionService{repo: repo}
}

func (s *transactionService) List(ctx context.Context, filter domain.TransactionFilter) (*domain.TransactionPage, error) {
	if err := normalizeFilter(&filter); err != nil {
		return nil, err
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.Summary(ctx, filter.VenueID)
	if err != nil {
		return nil, err
	}

	return &domain.TransactionPage{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
		Summary:  summary,
	}, nil
}

func normalizeFilter(filter *domain.TransactionFilter) error {
	filter.VenueID = strings.TrimSpace(filter.VenueID)
	if filter.VenueID == "" {
		return &domain.ValidationError{Field: "venue_id", Reason: "is required"}
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return &domain.ValidationError{Field: "status", Reason: "unknown status " + string(filter.Status)}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return &domain.ValidationError{Field: "from", Reason: "must not be after to"}
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.PageSize <= 0:
		filter.PageSize = defaultPageSize
	case filter.PageSize > maxPageSize:
		filter.PageSize = maxPageSize
	}
	return nil
}

func (s *transactionService) Get(ctx context.Context, id string) (*domain.BankTransaction, error) {
	if id == "" {
		return nil, &domain.ValidationError{Field: "id", Reason: "is required"}
	}
	return s.repo.GetByID(ctx, id)
}

// ManualMatch records an operator's decision; it is final for the automated pipeline
func (s *transactionService) ManualMatch(ctx context.Context, id, entryID, accountID, actor string) (*domain.BankTransaction, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return nil, &domain.ValidationError{Field: "entry_id", Reason: "is required"}
	}

	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(tx.Status, domain.StatusManual) {
		return nil, &domain.InvalidTransitionError{TransactionID: id, From: tx.Status, To: domain.StatusManual}
	}

	confidence := 1.0
	update := domain.StatusUpdate{
		Status:             domain.StatusManual,
		MatchedEntryID:     &entryID,
		MatchConfidence:    &confidence,
		SuggestedAccountID: tx.SuggestedAccountID,
		UpdatedAt:          time.Now().UTC(),
	}
	if accountID = strings.TrimSpace(accountID); accountID != "" {
		update.MatchedAccountID = &accountID
	}

	if err := s.repo.TransitionStatus(ctx, id, tx.Status, update); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"transaction_id": id,
		"entry_id":       entryID,
		"account_id":     accountID,
		"actor":          actor,
	}).Info("Transaction matched manually")

	return s.repo.GetByID(ctx, id)
}

// Ignore excludes the transaction from reconciliation and from the outstanding amount
func (s *transactionService) Ignore(ctx context.Context, id, actor string) (*domain.BankTransaction, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(tx.Status, domain.StatusIgnored) {
		return nil, &domain.InvalidTransitionError{TransactionID: id, From: tx.Status, To: domain.StatusIgnored}
	}

	update := domain.StatusUpdate{
		Status:             domain.StatusIgnored,
		MatchConfidence:    tx.MatchConfidence,
		SuggestedAccountID: tx.SuggestedAccountID,
		UpdatedAt:          time.Now().UTC(),
	}
	if err := s.repo.TransitionStatus(ctx, id, tx.Status, update); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"transaction_id": id,
		"actor":          actor,
	}).Info("Transaction ignored")

	return s.repo.GetByID(ctx, id)
}
