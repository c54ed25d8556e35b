package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/ledger"
	"bankrec-engine/internal/matcher"
	"bankrec-engine/internal/repository"
	"bankrec-engine/pkg/logger"
)

// manual decisions older than this many rows are not consulted by the historical strategy
const historyLimit = 500

// RunSummary counts the outcomes of one classification run
type RunSummary struct {
	Processed int `json:"processed"`
	Matched   int `json:"matched"`
	ToReview  int `json:"to_review"`
	Unmatched int `json:"unmatched"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

func (s *RunSummary) add(status domain.Status) {
	switch status {
	case domain.StatusMatched:
		s.Matched++
	case domain.StatusToReview:
		s.ToReview++
	case domain.StatusUnmatched:
		s.Unmatched++
	}
}

type ReconciliationService interface {
	ClassifyTransaction(ctx context.Context, id string) (*domain.BankTransaction, error)
	ReconcileVenue(ctx context.Context, venueID string) (*RunSummary, error)
	ReconcileIDs(ctx context.Context, ids []string) (*RunSummary, error)
}

type ReconciliationOptions struct {
	AutoMatchThreshold float64
	Workers            int
}

type reconciliationService struct {
	txRepo       repository.TransactionRepository
	ruleRepo     repository.RuleRepository
	supplierRepo repository.SupplierRepository
	entries      ledger.EntryFinder
	matcher      *matcher.CounterpartMatcher
	threshold    float64
	workers      int

	// serializes ledger lookup and the MATCHED write so two movements cannot settle one entry
	settleMu sync.Mutex
}

func NewReconciliationService(
	txRepo repository.TransactionRepository,
	ruleRepo repository.RuleRepository,
	supplierRepo repository.SupplierRepository,
	entries ledger.EntryFinder,
	opts ReconciliationOptions,
) ReconciliationService {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.AutoMatchThreshold <= 0 {
		opts.AutoMatchThreshold = matcher.DefaultAutoMatchThreshold
	}
	return &reconciliationService{
		txRepo:       txRepo,
		ruleRepo:     ruleRepo,
		supplierRepo: supplierRepo,
		entries:      entries,
		matcher:      matcher.NewCounterpartMatcher(),
		threshold:    opts.AutoMatchThreshold,
		workers:      opts.Workers,
	}
}

// run is the read-only state shared by every classification of one pass
type run struct {
	rules     *matcher.RuleSet
	snapshots map[string]*matcher.Snapshot
}

func (s *reconciliationService) prepare(ctx context.Context, transactions []domain.BankTransaction) (*run, error) {
	rules, err := s.ruleRepo.List(ctx, domain.DirectionNone)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	r := &run{rules: matcher.NewRuleSet(rules), snapshots: make(map[string]*matcher.Snapshot)}
	for _, tx := range transactions {
		if _, ok := r.snapshots[tx.VenueID]; ok {
			continue
		}
		snap, err := s.snapshot(ctx, tx.VenueID)
		if err != nil {
			return nil, err
		}
		r.snapshots[tx.VenueID] = snap
	}
	return r, nil
}

func (s *reconciliationService) snapshot(ctx context.Context, venueID string) (*matcher.Snapshot, error) {
	suppliers, err := s.supplierRepo.ListByVenue(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}

	manual, err := s.txRepo.ManualHistory(ctx, venueID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load manual history: %w", err)
	}
	history := make([]matcher.HistoryEntry, 0, len(manual))
	for _, m := range manual {
		history = append(history, matcher.HistoryEntry{Description: m.Description, AccountID: m.AccountID})
	}

	return matcher.NewSnapshot(suppliers, history), nil
}

// ClassifyTransaction evaluates one transaction and returns it as stored afterwards.
// Terminal transactions are returned unchanged.
func (s *reconciliationService) ClassifyTransaction(ctx context.Context, id string) (*domain.BankTransaction, error) {
	tx, err := s.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.Status.Reclassifiable() {
		return tx, nil
	}

	r, err := s.prepare(ctx, []domain.BankTransaction{*tx})
	if err != nil {
		return nil, err
	}
	if _, err := s.classify(ctx, tx, r); err != nil {
		return nil, err
	}
	return s.txRepo.GetByID(ctx, id)
}

// ReconcileVenue classifies every PENDING, TO_REVIEW and UNMATCHED transaction of a venue
func (s *reconciliationService) ReconcileVenue(ctx context.Context, venueID string) (*RunSummary, error) {
	if venueID == "" {
		return nil, &domain.ValidationError{Field: "venue_id", Reason: "is required"}
	}

	transactions, err := s.txRepo.ListReclassifiable(ctx, venueID, nil)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, transactions, 0)
}

// ReconcileIDs classifies the given transactions; terminal ones count as skipped
func (s *reconciliationService) ReconcileIDs(ctx context.Context, ids []string) (*RunSummary, error) {
	if len(ids) == 0 {
		return &RunSummary{}, nil
	}

	transactions, err := s.txRepo.ListReclassifiable(ctx, "", ids)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, transactions, len(ids)-len(transactions))
}

func (s *reconciliationService) reconcile(ctx context.Context, transactions []domain.BankTransaction, skipped int) (*RunSummary, error) {
	summary := &RunSummary{Skipped: skipped}
	if len(transactions) == 0 {
		return summary, nil
	}

	r, err := s.prepare(ctx, transactions)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := range transactions {
		tx := &transactions[i]
		g.Go(func() error {
			status, err := s.classify(gctx, tx, r)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, domain.ErrConcurrentUpdate):
				summary.Skipped++
			case err != nil:
				summary.Failed++
				logger.GetLogger().WithError(err).WithField("transaction_id", tx.ID).Warn("Failed to classify transaction")
			default:
				summary.Processed++
				summary.add(status)
			}
			// a failed transaction never aborts the others
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"processed": summary.Processed,
		"matched":   summary.Matched,
		"to_review": summary.ToReview,
		"unmatched": summary.Unmatched,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
		"duration":  time.Since(start).String(),
	}).Info("Reconciliation run completed")

	return summary, nil
}

// classify runs matcher, rule engine and ledger lookup for tx and persists the outcome
func (s *reconciliationService) classify(ctx context.Context, tx *domain.BankTransaction, r *run) (domain.Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	suggestion := s.matcher.Match(tx, r.snapshots[tx.VenueID])
	classification := r.rules.Classify(matcher.SubjectFor(tx, suggestion))
	decision := matcher.Decide(classification, suggestion, s.threshold)

	if !decision.NeedsLedgerEntry {
		return decision.Status, s.persist(ctx, tx, decision, "")
	}

	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	entry, err := s.entries.FindEntry(ctx, tx.VenueID, decision.AccountID, tx.Amount, tx.TransactionDate)
	if err != nil {
		return "", fmt.Errorf("ledger lookup failed: %w", err)
	}
	entryID := ""
	if entry != nil {
		entryID = entry.ID
	}
	status := decision.Resolve(entryID)
	return status, s.persist(ctx, tx, decision, entryID)
}

func (s *reconciliationService) persist(ctx context.Context, tx *domain.BankTransaction, d matcher.Decision, entryID string) error {
	status := d.Resolve(entryID)
	confidence := d.Confidence

	update := domain.StatusUpdate{
		Status:          status,
		MatchConfidence: &confidence,
		UpdatedAt:       time.Now().UTC(),
	}

	// a rule target outranks the matcher's own account as the reviewer's hint
	suggested := d.AccountID
	if suggested == "" {
		suggested = d.SuggestedAccountID
	}
	if suggested != "" {
		update.SuggestedAccountID = &suggested
	}

	if status == domain.StatusMatched {
		account := d.AccountID
		update.MatchedEntryID = &entryID
		update.MatchedAccountID = &account
	}

	if err := s.txRepo.TransitionStatus(ctx, tx.ID, tx.Status, update); err != nil {
		return err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"transaction_id": tx.ID,
		"status":         status,
		"rule_id":        d.RuleID,
		"confidence":     confidence,
	}).Debug("Transaction classified")
	return nil
}
