package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

// ManualReconciliation is a past manual decision used as matching history
type ManualReconciliation struct {
	Description string
	AccountID   string
}

type TransactionRepository interface {
	InsertIfAbsent(ctx context.Context, tx *domain.BankTransaction) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.BankTransaction, error)
	List(ctx context.Context, filter domain.TransactionFilter) ([]domain.BankTransaction, int, error)
	Summary(ctx context.Context, venueID string) (domain.StatusSummary, error)
	TransitionStatus(ctx context.Context, id string, expected domain.Status, update domain.StatusUpdate) error
	ListReclassifiable(ctx context.Context, venueID string, ids []string) ([]domain.BankTransaction, error)
	ManualHistory(ctx context.Context, venueID string, limit int) ([]ManualReconciliation, error)
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `
	id, venue_id, transaction_date, value_date, description, amount, balance_after,
	bank_reference, import_batch_id, import_source, status, matched_entry_id,
	match_confidence, suggested_account_id, matched_account_id, created_at, updated_at`

// InsertIfAbsent stores tx unless its dedup key already exists.
// It reports false for a duplicate; that is not an error.
func (r *transactionRepository) InsertIfAbsent(ctx context.Context, tx *domain.BankTransaction) (bool, error) {
	query := `
		INSERT INTO bank_transactions (
			id, venue_id, transaction_date, value_date, description, description_hash,
			amount, balance_after, bank_reference, import_batch_id, import_source,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		tx.ID,
		tx.VenueID,
		day(tx.TransactionDate),
		nullDay(tx.ValueDate),
		tx.Description,
		domain.DescriptionHash(tx.Description),
		money(tx.Amount),
		nullMoney(tx.BalanceAfter),
		tx.BankReference,
		tx.ImportBatchID,
		tx.ImportSource,
		tx.Status,
		tx.CreatedAt,
		tx.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		logger.GetLogger().WithError(err).WithField("venue_id", tx.VenueID).Error("Failed to insert bank transaction")
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.BankTransaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM bank_transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bank transaction %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", id).Error("Failed to get bank transaction")
		return nil, err
	}
	return tx, nil
}

// List returns one page of transactions plus the total number of matches
func (r *transactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]domain.BankTransaction, int, error) {
	where, args := filterClause(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM bank_transactions` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to count bank transactions")
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PageSize
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + transactionColumns + ` FROM bank_transactions` + where +
		fmt.Sprintf(` ORDER BY transaction_date DESC, created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, filter.PageSize, offset)

	items, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func filterClause(filter domain.TransactionFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.VenueID != "" {
		add("venue_id = $%d", filter.VenueID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.From != nil {
		add("transaction_date >= $%d", day(*filter.From))
	}
	if filter.To != nil {
		add("transaction_date <= $%d", day(*filter.To))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		add("(LOWER(description) LIKE $%[1]d OR LOWER(bank_reference) LIKE $%[1]d)", "%"+strings.ToLower(s)+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Summary counts transactions per status and sums the amount still awaiting a decision
func (r *transactionRepository) Summary(ctx context.Context, venueID string) (domain.StatusSummary, error) {
	var summary domain.StatusSummary

	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM bank_transactions
		WHERE venue_id = $1
		GROUP BY status
	`, venueID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to summarize bank transactions")
		return summary, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status domain.Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return summary, err
		}
		summary.Add(status, count)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	rows.Close()

	amounts, err := r.db.QueryContext(ctx, `
		SELECT amount FROM bank_transactions
		WHERE venue_id = $1 AND status IN ($2, $3, $4)
	`, venueID, domain.StatusPending, domain.StatusToReview, domain.StatusUnmatched)
	if err != nil {
		return summary, err
	}
	defer amounts.Close()

	summary.OutstandingAmount = decimal.Zero
	for amounts.Next() {
		var amount decimal.Decimal
		if err := amounts.Scan(&amount); err != nil {
			return summary, err
		}
		summary.OutstandingAmount = summary.OutstandingAmount.Add(amount)
	}
	return summary, amounts.Err()
}

// TransitionStatus applies update only if the row is still in the expected status
func (r *transactionRepository) TransitionStatus(ctx context.Context, id string, expected domain.Status, update domain.StatusUpdate) error {
	if !domain.CanTransition(expected, update.Status) {
		return &domain.InvalidTransitionError{TransactionID: id, From: expected, To: update.Status}
	}
	if err := update.Validate(); err != nil {
		return err
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now().UTC()
	}

	query := `
		UPDATE bank_transactions
		SET status = $1, matched_entry_id = $2, match_confidence = $3,
			suggested_account_id = $4, matched_account_id = $5, updated_at = $6
		WHERE id = $7 AND status = $8
	`

	res, err := r.db.ExecContext(ctx, query,
		update.Status,
		nullString(update.MatchedEntryID),
		nullFloat(update.MatchConfidence),
		nullString(update.SuggestedAccountID),
		nullString(update.MatchedAccountID),
		update.UpdatedAt,
		id,
		expected,
	)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("id", id).Error("Failed to update transaction status")
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// distinguish a missing row from one that moved underneath us
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("bank transaction %s: %w", id, domain.ErrConcurrentUpdate)
}

// ListReclassifiable returns the transactions the pipeline may (re)classify.
// With ids, only those are considered; otherwise the whole venue.
func (r *transactionRepository) ListReclassifiable(ctx context.Context, venueID string, ids []string) ([]domain.BankTransaction, error) {
	args := []interface{}{domain.StatusPending, domain.StatusToReview, domain.StatusUnmatched}
	query := `SELECT ` + transactionColumns + ` FROM bank_transactions WHERE status IN ($1, $2, $3)`

	if venueID != "" {
		args = append(args, venueID)
		query += fmt.Sprintf(` AND venue_id = $%d`, len(args))
	}
	if len(ids) > 0 {
		query += ` AND id IN (` + placeholders(len(args)+1, len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	query += ` ORDER BY transaction_date, id`

	return r.query(ctx, query, args...)
}

// ManualHistory returns the most recent manual reconciliations of a venue
func (r *transactionRepository) ManualHistory(ctx context.Context, venueID string, limit int) ([]ManualReconciliation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT description, matched_account_id FROM bank_transactions
		WHERE venue_id = $1 AND status = $2 AND matched_account_id IS NOT NULL
		ORDER BY updated_at DESC
		LIMIT $3
	`, venueID, domain.StatusManual, limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to load manual history")
		return nil, err
	}
	defer rows.Close()

	var history []ManualReconciliation
	for rows.Next() {
		var h ManualReconciliation
		if err := rows.Scan(&h.Description, &h.AccountID); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *transactionRepository) query(ctx context.Context, query string, args ...interface{}) ([]domain.BankTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query bank transactions")
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.BankTransaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan bank transaction")
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*domain.BankTransaction, error) {
	var (
		tx             domain.BankTransaction
		valueDate      sql.NullTime
		balance        decimal.NullDecimal
		entryID        sql.NullString
		confidence     sql.NullFloat64
		suggested      sql.NullString
		matchedAccount sql.NullString
	)
	err := row.Scan(
		&tx.ID,
		&tx.VenueID,
		&tx.TransactionDate,
		&valueDate,
		&tx.Description,
		&tx.Amount,
		&balance,
		&tx.BankReference,
		&tx.ImportBatchID,
		&tx.ImportSource,
		&tx.Status,
		&entryID,
		&confidence,
		&suggested,
		&matchedAccount,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.TransactionDate = tx.TransactionDate.UTC()
	tx.ValueDate = timePtr(valueDate)
	tx.BalanceAfter = decimalPtr(balance)
	tx.MatchedEntryID = stringPtr(entryID)
	tx.MatchConfidence = floatPtr(confidence)
	tx.SuggestedAccountID = stringPtr(suggested)
	tx.MatchedAccountID = stringPtr(matchedAccount)
	return &tx, nil
}
