package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

type RuleRepository interface {
	List(ctx context.Context, direction domain.Direction) ([]domain.ReconciliationRule, error)
	GetByID(ctx context.Context, id string) (*domain.ReconciliationRule, error)
	Create(ctx context.Context, rule *domain.ReconciliationRule) error
	Update(ctx context.Context, rule *domain.ReconciliationRule) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, direction domain.Direction, ids []string) error
}

type ruleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) RuleRepository {
	return &ruleRepository{db: db}
}

const ruleColumns = `id, direction, sort_order, account_code, document_type_code,
	payment_type_code, target_account_id, action, created_at, updated_at`

// List returns the rules of one direction in order, or of both when direction is empty
func (r *ruleRepository) List(ctx context.Context, direction domain.Direction) ([]domain.ReconciliationRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM reconciliation_rules`
	var args []interface{}
	if direction != domain.DirectionNone {
		query += ` WHERE direction = $1`
		args = append(args, direction)
	}
	query += ` ORDER BY direction, sort_order`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list reconciliation rules")
		return nil, err
	}
	defer rows.Close()

	rules := make([]domain.ReconciliationRule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

func (r *ruleRepository) GetByID(ctx context.Context, id string) (*domain.ReconciliationRule, error) {
	rule, err := scanRule(r.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM reconciliation_rules WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get reconciliation rule")
		return nil, err
	}
	return rule, nil
}

// Create appends the rule at the end of its direction's list
func (r *ruleRepository) Create(ctx context.Context, rule *domain.ReconciliationRule) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(sort_order), -1) + 1 FROM reconciliation_rules WHERE direction = $1`,
			rule.Direction,
		).Scan(&next)
		if err != nil {
			return err
		}
		rule.Order = next

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reconciliation_rules (`+ruleColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`,
			rule.ID,
			rule.Direction,
			rule.Order,
			rule.Predicate.AccountCode,
			rule.Predicate.DocumentTypeCode,
			rule.Predicate.PaymentTypeCode,
			rule.TargetAccountID,
			rule.Action,
			rule.CreatedAt,
			rule.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("rule order of %s changed while appending: %w", rule.Direction, domain.ErrConcurrentUpdate)
		}
		return err
	})
}

// Update rewrites the predicate, target and action; direction and order are untouched
func (r *ruleRepository) Update(ctx context.Context, rule *domain.ReconciliationRule) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reconciliation_rules
		SET account_code = $1, document_type_code = $2, payment_type_code = $3,
			target_account_id = $4, action = $5, updated_at = $6
		WHERE id = $7
	`,
		rule.Predicate.AccountCode,
		rule.Predicate.DocumentTypeCode,
		rule.Predicate.PaymentTypeCode,
		rule.TargetAccountID,
		rule.Action,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to update reconciliation rule")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("rule %s: %w", rule.ID, domain.ErrNotFound)
	}
	return err
}

// Delete removes the rule and closes the gap it leaves in the order
func (r *ruleRepository) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var direction domain.Direction
		err := tx.QueryRowContext(ctx, `SELECT direction FROM reconciliation_rules WHERE id = $1`, id).Scan(&direction)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("rule %s: %w", id, domain.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM reconciliation_rules WHERE id = $1`, id); err != nil {
			return err
		}

		remaining, err := orderedIDs(ctx, tx, direction)
		if err != nil {
			return err
		}
		return writeOrder(ctx, tx, direction, remaining)
	})
}

// Reorder persists ids as the new order of direction. ids must be exactly
// the direction's current rule set; the whole permutation commits or nothing does.
func (r *ruleRepository) Reorder(ctx context.Context, direction domain.Direction, ids []string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		current, err := orderedIDs(ctx, tx, direction)
		if err != nil {
			return err
		}
		if !sameSet(current, ids) {
			return domain.ErrRuleSetMismatch
		}
		return writeOrder(ctx, tx, direction, ids)
	})
}

func orderedIDs(ctx context.Context, tx *sql.Tx, direction domain.Direction) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM reconciliation_rules WHERE direction = $1 ORDER BY sort_order`, direction)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// writeOrder assigns 0..n-1 in the order of ids. Orders are first moved to
// negative values so no intermediate row collides on (direction, sort_order).
func writeOrder(ctx context.Context, tx *sql.Tx, direction domain.Direction, ids []string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE reconciliation_rules SET sort_order = -1 - sort_order WHERE direction = $1`, direction); err != nil {
		return err
	}

	now := time.Now().UTC()
	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE reconciliation_rules SET sort_order = $1, updated_at = $2 WHERE id = $3`, i, now, id); err != nil {
			return err
		}
	}
	return nil
}

func sameSet(current, proposed []string) bool {
	if len(current) != len(proposed) {
		return false
	}
	seen := make(map[string]bool, len(current))
	for _, id := range current {
		seen[id] = true
	}
	for _, id := range proposed {
		if !seen[id] {
			return false
		}
		// a repeated id would leave another rule without a slot
		delete(seen, id)
	}
	return len(seen) == 0
}

func (r *ruleRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to commit transaction")
		return err
	}
	return nil
}

func scanRule(row rowScanner) (*domain.ReconciliationRule, error) {
	var rule domain.ReconciliationRule
	err := row.Scan(
		&rule.ID,
		&rule.Direction,
		&rule.Order,
		&rule.Predicate.AccountCode,
		&rule.Predicate.DocumentTypeCode,
		&rule.Predicate.PaymentTypeCode,
		&rule.TargetAccountID,
		&rule.Action,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
