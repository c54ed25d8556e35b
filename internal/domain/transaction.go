package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ImportSource identifies the wire format a transaction was ingested from
type ImportSource string

const (
	SourceCSV    ImportSource = "CSV"
	SourceXLSX   ImportSource = "XLSX"
	SourceCBIXML ImportSource = "CBI_XML"
	SourceCBITXT ImportSource = "CBI_TXT"
	SourceManual ImportSource = "MANUAL"
)

// RawRow is a normalized parser output row. It is never persisted as-is.
type RawRow struct {
	Row             int // source row, entry or line number
	TransactionDate time.Time
	ValueDate       *time.Time
	Description     string
	Amount          decimal.Decimal // positive = credit
	Balance         *decimal.Decimal
	Reference       string
}

// ParseError is a row-level problem collected during parsing or persistence
type ParseError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// BankTransaction is the durable unit of reconciliation work
type BankTransaction struct {
	ID                 string           `json:"id" db:"id"`
	VenueID            string           `json:"venue_id" db:"venue_id"`
	TransactionDate    time.Time        `json:"transaction_date" db:"transaction_date"`
	ValueDate          *time.Time       `json:"value_date,omitempty" db:"value_date"`
	Description        string           `json:"description" db:"description"`
	Amount             decimal.Decimal  `json:"amount" db:"amount"`
	BalanceAfter       *decimal.Decimal `json:"balance_after,omitempty" db:"balance_after"`
	BankReference      string           `json:"bank_reference" db:"bank_reference"`
	ImportBatchID      string           `json:"import_batch_id" db:"import_batch_id"`
	ImportSource       ImportSource     `json:"import_source" db:"import_source"`
	Status             Status           `json:"status" db:"status"`
	MatchedEntryID     *string          `json:"matched_entry_id,omitempty" db:"matched_entry_id"`
	MatchConfidence    *float64         `json:"match_confidence,omitempty" db:"match_confidence"`
	SuggestedAccountID *string          `json:"suggested_account_id,omitempty" db:"suggested_account_id"`
	MatchedAccountID   *string          `json:"matched_account_id,omitempty" db:"matched_account_id"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at" db:"updated_at"`
}

// Direction returns the rule direction implied by the amount sign
func (t *BankTransaction) Direction() Direction {
	return DirectionOf(t.Amount)
}

// DescriptionHash is the dedup fingerprint of a description: case and
// whitespace differences between export formats do not count.
func DescriptionHash(description string) string {
	canonical := strings.ToUpper(strings.Join(strings.Fields(description), " "))
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// ImportBatch is the header of one import operation
type ImportBatch struct {
	ID                string       `json:"id" db:"id"`
	VenueID           string       `json:"venue_id" db:"venue_id"`
	Filename          string       `json:"filename" db:"filename"`
	Source            ImportSource `json:"source" db:"source"`
	RecordCount       int          `json:"record_count" db:"record_count"`
	DuplicatesSkipped int          `json:"duplicates_skipped" db:"duplicates_skipped"`
	ErrorsCount       int          `json:"errors_count" db:"errors_count"`
	ImportedBy        string       `json:"imported_by" db:"imported_by"`
	CreatedAt         time.Time    `json:"created_at" db:"created_at"`
}

// ImportResult is returned to the caller of an import
type ImportResult struct {
	BatchID           string       `json:"batch_id"`
	Source            ImportSource `json:"source"`
	RecordsImported   int          `json:"records_imported"`
	DuplicatesSkipped int          `json:"duplicates_skipped"`
	Errors            []ParseError `json:"errors"`
	TransactionIDs    []string     `json:"-"`
}

// Supplier is a read-only view of the supplier registry
type Supplier struct {
	ID               string `json:"id" db:"id"`
	VenueID          string `json:"venue_id" db:"venue_id"`
	Name             string `json:"name" db:"name"`
	DefaultAccountID string `json:"default_account_id" db:"default_account_id"`
	DocumentTypeCode string `json:"document_type_code,omitempty" db:"document_type_code"`
	PaymentTypeCode  string `json:"payment_type_code,omitempty" db:"payment_type_code"`
}

// TransactionFilter drives the list/query entry point
type TransactionFilter struct {
	VenueID  string
	Status   Status
	From     *time.Time
	To       *time.Time
	Search   string
	Page     int
	PageSize int
}

// StatusSummary holds per-status counts for a venue
type StatusSummary struct {
	Pending           int             `json:"pending"`
	Matched           int             `json:"matched"`
	ToReview          int             `json:"toReview"`
	Manual            int             `json:"manual"`
	Ignored           int             `json:"ignored"`
	Unmatched         int             `json:"unmatched"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
}

// Add increments the counter belonging to status
func (s *StatusSummary) Add(status Status, n int) {
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusMatched:
		s.Matched += n
	case StatusToReview:
		s.ToReview += n
	case StatusManual:
		s.Manual += n
	case StatusIgnored:
		s.Ignored += n
	case StatusUnmatched:
		s.Unmatched += n
	}
}

// TransactionPage is one page of a transaction query
type TransactionPage struct {
	Items    []BankTransaction `json:"items"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Summary  StatusSummary     `json:"summary"`
}
