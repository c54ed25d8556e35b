package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankrec-engine/internal/config"
	"bankrec-engine/internal/domain"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(context.Background(), db, config.DriverSQLite))
	return db
}

func seedBatch(t *testing.T, db *sql.DB, venueID string) *domain.ImportBatch {
	t.Helper()

	batch := &domain.ImportBatch{
		ID:         uuid.New().String(),
		VenueID:    venueID,
		Filename:   "estratto.csv",
		Source:     domain.SourceCSV,
		ImportedBy: "tester",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, NewBatchRepository(db).Create(context.Background(), batch))
	return batch
}

func newTransaction(batch *domain.ImportBatch, date, amount, description string) *domain.BankTransaction {
	now := time.Now().UTC()
	d, _ := time.Parse(dateLayout, date)
	return &domain.BankTransaction{
		ID:              uuid.New().String(),
		VenueID:         batch.VenueID,
		TransactionDate: d,
		Description:     description,
		Amount:          decimal.RequireFromString(amount),
		BankReference:   "REF-" + date,
		ImportBatchID:   batch.ID,
		ImportSource:    batch.Source,
		Status:          domain.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, Migrate(context.Background(), db, config.DriverSQLite))
	assert.Error(t, Migrate(context.Background(), db, "oracle"))
}

func TestTransactionRepository_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	batch := seedBatch(t, db, "venue-1")

	tx := newTransaction(batch, "2024-03-01", "-1220.00", "BONIFICO A ACME SRL FATT 12")
	balance := decimal.RequireFromString("5400.10")
	tx.BalanceAfter = &balance

	inserted, err := repo.InsertIfAbsent(ctx, tx)
	require.NoError(t, err)
	assert.True(t, inserted)

	// same key: amount scale and description spacing/case differ
	dup := newTransaction(batch, "2024-03-01", "-1220", "bonifico a  ACME SRL fatt 12")
	inserted, err = repo.InsertIfAbsent(ctx, dup)
	require.NoError(t, err)
	assert.False(t, inserted)

	// another venue is a different key
	other := newTransaction(seedBatch(t, db, "venue-2"), "2024-03-01", "-1220.00", "BONIFICO A ACME SRL FATT 12")
	inserted, err = repo.InsertIfAbsent(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted)

	got, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "venue-1", got.VenueID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("-1220")))
	require.NotNil(t, got.BalanceAfter)
	assert.True(t, got.BalanceAfter.Equal(balance))
	assert.Equal(t, "2024-03-01", got.TransactionDate.Format(dateLayout))
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Nil(t, got.MatchedEntryID)
	assert.Nil(t, got.ValueDate)
}

func TestTransactionRepository_GetByIDNotFound(t *testing.T) {
	_, err := NewTransactionRepository(newTestDB(t)).GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTransactionRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	tx := newTransaction(seedBatch(t, db, "venue-1"), "2024-03-01", "-50.00", "POS BAR")
	_, err := repo.InsertIfAbsent(ctx, tx)
	require.NoError(t, err)

	entry, account, confidence := "JE-9", "ACC-COSTI", 1.0
	update := domain.StatusUpdate{
		Status:           domain.StatusMatched,
		MatchedEntryID:   &entry,
		MatchConfidence:  &confidence,
		MatchedAccountID: &account,
		UpdatedAt:        time.Now().UTC(),
	}
	require.NoError(t, repo.TransitionStatus(ctx, tx.ID, domain.StatusPending, update))

	got, err := repo.GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusMatched, got.Status)
	require.NotNil(t, got.MatchedEntryID)
	assert.Equal(t, "JE-9", *got.MatchedEntryID)
	assert.Equal(t, 1.0, *got.MatchConfidence)

	// the row is no longer PENDING: a stale writer loses
	err = repo.TransitionStatus(ctx, tx.ID, domain.StatusPending, domain.StatusUpdate{Status: domain.StatusUnmatched, UpdatedAt: time.Now().UTC()})
	assert.True(t, errors.Is(err, domain.ErrConcurrentUpdate))

	err = repo.TransitionStatus(ctx, "missing", domain.StatusPending, domain.StatusUpdate{Status: domain.StatusUnmatched, UpdatedAt: time.Now().UTC()})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestTransactionRepository_ListAndSummary(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTransactionRepository(db)
	batch := seedBatch(t, db, "venue-1")

	fixtures := []struct {
		date, amount, description string
		status                    domain.Status
	}{
		{"2024-03-01", "-100.00", "BONIFICO ACME SRL", domain.StatusPending},
		{"2024-03-02", "-20.50", "POS BAR CENTRALE", domain.StatusToReview},
		{"2024-03-03", "300.00", "INCASSO POS", domain.StatusUnmatched},
		{"2024-03-04", "-9.99", "COMMISSIONI", domain.StatusIgnored},
	}
	for _, f := range fixtures {
		tx := newTransaction(batch, f.date, f.amount, f.description)
		_, err := repo.InsertIfAbsent(ctx, tx)
		require.NoError(t, err)
		if f.status != domain.StatusPending {
			require.NoError(t, repo.TransitionStatus(ctx, tx.ID, domain.StatusPending, domain.StatusUpdate{Status: f.status, UpdatedAt: time.Now().UTC()}))
		}
	}

	items, total, err := repo.List(ctx, domain.TransactionFilter{VenueID: "venue-1", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 2)
	assert.Equal(t, "COMMISSIONI", items[0].Description)

	items, total, err = repo.List(ctx, domain.TransactionFilter{VenueID: "venue-1", Search: "acme", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "BONIFICO ACME SRL", items[0].Description)

	from, _ := time.Parse(dateLayout, "2024-03-02")
	to, _ := time.Parse(dateLayout, "2024-03-03")
	_, total, err = repo.List(ctx, domain.TransactionFilter{VenueID: "venue-1", From: &from, To: &to, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	summary, err := repo.Summary(ctx, "venue-1")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 1, summary.ToReview)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 1, summary.Ignored)
	assert.True(t, summary.OutstandingAmount.Equal(decimal.RequireFromString("179.50")), summary.OutstandingAmount.String())

	reclassifiable, err := repo.ListReclassifiable(ctx, "venue-1", nil)
	require.NoError(t, err)
	assert.Len(t, reclassifiable, 3)
}

func TestBatchRepository_FinalizeOnce(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewBatchRepository(db)
	batch := seedBatch(t, db, "venue-1")

	batch.RecordCount, batch.DuplicatesSkipped, batch.ErrorsCount = 8, 1, 2
	require.NoError(t, repo.Finalize(ctx, batch))
	assert.Error(t, repo.Finalize(ctx, batch))

	got, err := repo.GetByID(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.RecordCount)
	assert.Equal(t, 1, got.DuplicatesSkipped)
	assert.Equal(t, 2, got.ErrorsCount)

	batches, err := repo.ListByVenue(ctx, "venue-1", 10)
	require.NoError(t, err)
	assert.Len(t, batches, 1)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func createRules(t *testing.T, repo RuleRepository, direction domain.Direction, n int) []string {
	t.Helper()

	ids := make([]string, n)
	for i := range ids {
		now := time.Now().UTC()
		rule := &domain.ReconciliationRule{
			ID:              uuid.New().String(),
			Direction:       direction,
			TargetAccountID: "ACC",
			Action:          domain.ActionAutoMatch,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		require.NoError(t, repo.Create(context.Background(), rule))
		assert.Equal(t, i, rule.Order)
		ids[i] = rule.ID
	}
	return ids
}

func orderOf(t *testing.T, repo RuleRepository, direction domain.Direction) []string {
	t.Helper()

	rules, err := repo.List(context.Background(), direction)
	require.NoError(t, err)
	ids := make([]string, len(rules))
	for i, r := range rules {
		assert.Equal(t, i, r.Order)
		ids[i] = r.ID
	}
	return ids
}

func TestRuleRepository_Reorder(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(newTestDB(t))
	ids := createRules(t, repo, domain.DirectionIssued, 3)
	received := createRules(t, repo, domain.DirectionReceived, 1)

	reordered := []string{ids[2], ids[0], ids[1]}
	require.NoError(t, repo.Reorder(ctx, domain.DirectionIssued, reordered))
	assert.Equal(t, reordered, orderOf(t, repo, domain.DirectionIssued))
	assert.Equal(t, received, orderOf(t, repo, domain.DirectionReceived))

	all, err := repo.List(ctx, domain.DirectionNone)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRuleRepository_ReorderRejectsMismatchedSet(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(newTestDB(t))
	ids := createRules(t, repo, domain.DirectionIssued, 3)
	other := createRules(t, repo, domain.DirectionReceived, 1)

	for name, proposed := range map[string][]string{
		"missing id":     {ids[0], ids[1]},
		"repeated id":    {ids[0], ids[0], ids[1]},
		"foreign id":     {ids[0], ids[1], other[0]},
		"extra id":       {ids[0], ids[1], ids[2], other[0]},
		"empty proposal": {},
	} {
		t.Run(name, func(t *testing.T) {
			err := repo.Reorder(ctx, domain.DirectionIssued, proposed)
			assert.True(t, errors.Is(err, domain.ErrRuleSetMismatch))
			assert.Equal(t, ids, orderOf(t, repo, domain.DirectionIssued))
		})
	}
}

func TestRuleRepository_DeleteKeepsOrderDense(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(newTestDB(t))
	ids := createRules(t, repo, domain.DirectionIssued, 4)

	require.NoError(t, repo.Delete(ctx, ids[1]))
	assert.Equal(t, []string{ids[0], ids[2], ids[3]}, orderOf(t, repo, domain.DirectionIssued))

	assert.True(t, errors.Is(repo.Delete(ctx, ids[1]), domain.ErrNotFound))

	// a rule created after a delete still lands at the end
	appended := createRules(t, repo, domain.DirectionReceived, 1)
	assert.Len(t, appended, 1)
}

func TestRuleRepository_Update(t *testing.T) {
	ctx := context.Background()
	repo := NewRuleRepository(newTestDB(t))
	ids := createRules(t, repo, domain.DirectionIssued, 2)

	rule, err := repo.GetByID(ctx, ids[1])
	require.NoError(t, err)
	rule.Predicate = domain.RulePredicate{AccountCode: "COSTI"}
	rule.Action = domain.ActionFlagReview
	rule.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, rule))

	got, err := repo.GetByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "COSTI", got.Predicate.AccountCode)
	assert.Equal(t, domain.ActionFlagReview, got.Action)
	assert.Equal(t, 1, got.Order)

	rule.ID = "missing"
	assert.True(t, errors.Is(repo.Update(ctx, rule), domain.ErrNotFound))
}

func TestSupplierRepository_ListByVenue(t *testing.T) {
	ctx := context.Background()
	repo := NewSupplierRepository(newTestDB(t))

	require.NoError(t, repo.Upsert(ctx, &domain.Supplier{ID: "s2", VenueID: "venue-1", Name: "Zeta Forniture", DefaultAccountID: "ACC-2"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Supplier{ID: "s1", VenueID: "venue-1", Name: "ACME SRL", DefaultAccountID: "ACC-1"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Supplier{ID: "s3", VenueID: "venue-2", Name: "Other", DefaultAccountID: "ACC-3"}))
	require.NoError(t, repo.Upsert(ctx, &domain.Supplier{ID: "s1", VenueID: "venue-1", Name: "ACME SRL", DefaultAccountID: "ACC-1B"}))

	suppliers, err := repo.ListByVenue(ctx, "venue-1")
	require.NoError(t, err)
	require.Len(t, suppliers, 2)
	assert.Equal(t, "ACME SRL", suppliers[0].Name)
	assert.Equal(t, "ACC-1B", suppliers[0].DefaultAccountID)
}
