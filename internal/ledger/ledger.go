package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"bankrec-engine/pkg/logger"
)

// Entry is a journal line owned by the accounting module. The engine only reads it.
type Entry struct {
	ID          string          `json:"id"`
	VenueID     string          `json:"venue_id"`
	AccountID   string          `json:"account_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// EntryFinder locates the open journal entry a bank movement settles.
// A nil entry with a nil error means no candidate exists.
type EntryFinder interface {
	FindEntry(ctx context.Context, venueID, accountID string, amount decimal.Decimal, date time.Time) (*Entry, error)
}

const dateLayout = "2006-01-02"

// SQLFinder reads the ledger_entries mirror table
type SQLFinder struct {
	db         *sql.DB
	windowDays int
}

// NewSQLFinder returns a finder accepting entries dated within windowDays of the movement
func NewSQLFinder(db *sql.DB, windowDays int) *SQLFinder {
	if windowDays < 0 {
		windowDays = 0
	}
	return &SQLFinder{db: db, windowDays: windowDays}
}

// FindEntry returns the entry on accountID with exactly amount whose date is closest to
// date, skipping entries another bank transaction already settled. Ties go to the lower id.
func (f *SQLFinder) FindEntry(ctx context.Context, venueID, accountID string, amount decimal.Decimal, date time.Time) (*Entry, error) {
	from := date.AddDate(0, 0, -f.windowDays)
	to := date.AddDate(0, 0, f.windowDays)

	rows, err := f.db.QueryContext(ctx, `
		SELECT l.id, l.venue_id, l.account_id, l.amount, l.entry_date, l.description
		FROM ledger_entries l
		WHERE l.venue_id = $1 AND l.account_id = $2 AND l.amount = $3
			AND l.entry_date >= $4 AND l.entry_date <= $5
			AND NOT EXISTS (SELECT 1 FROM bank_transactions b WHERE b.matched_entry_id = l.id)
		ORDER BY l.id
	`, venueID, accountID, amount.StringFixed(2), from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to look up ledger entries")
		return nil, err
	}
	defer rows.Close()

	var (
		best     *Entry
		bestDays int
	)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VenueID, &e.AccountID, &e.Amount, &e.Date, &e.Description); err != nil {
			return nil, err
		}
		e.Date = e.Date.UTC()
		days := distanceDays(e.Date, date)
		if best == nil || days < bestDays {
			candidate := e
			best, bestDays = &candidate, days
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return best, nil
}

// Record inserts or replaces an entry in the mirror table
func (f *SQLFinder) Record(ctx context.Context, e *Entry) error {
	_, err := f.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, venue_id, account_id, amount, entry_date, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			venue_id = excluded.venue_id,
			account_id = excluded.account_id,
			amount = excluded.amount,
			entry_date = excluded.entry_date,
			description = excluded.description
	`, e.ID, e.VenueID, e.AccountID, e.Amount.StringFixed(2), e.Date.Format(dateLayout), e.Description)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("entry_id", e.ID).Error("Failed to record ledger entry")
	}
	return err
}

func distanceDays(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(a.Sub(b).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
