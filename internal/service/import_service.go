package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"bankrec-engine/internal/domain"
	"bankrec-engine/internal/parser"
	"bankrec-engine/internal/repository"
	"bankrec-engine/pkg/logger"
)

const maxReferenceDescription = 24

// ImportRequest is one uploaded statement file
type ImportRequest struct {
	Filename string
	Content  []byte
	VenueID  string
	// Profile and Layout name a delimited profile and a fixed-width layout; empty selects the default
	Profile string
	Layout  string
	// Config, when set, replaces the named profiles for this import only
	Config     *parser.Config
	ImportedBy string
}

type ImportService interface {
	Import(ctx context.Context, req ImportRequest) (*domain.ImportResult, error)
	GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error)
	ListBatches(ctx context.Context, venueID string, limit int) ([]domain.ImportBatch, error)
}

// Reconciler classifies freshly imported transactions
type Reconciler interface {
	ReconcileIDs(ctx context.Context, ids []string) (*RunSummary, error)
}

type importService struct {
	txRepo     repository.TransactionRepository
	batchRepo  repository.BatchRepository
	profiles   *parser.Profiles
	reconciler Reconciler
}

// NewImportService wires the orchestrator. A nil reconciler disables classification after import.
func NewImportService(
	txRepo repository.TransactionRepository,
	batchRepo repository.BatchRepository,
	profiles *parser.Profiles,
	reconciler Reconciler,
) ImportService {
	if profiles == nil {
		profiles = parser.DefaultProfiles()
	}
	return &importService{
		txRepo:     txRepo,
		batchRepo:  batchRepo,
		profiles:   profiles,
		reconciler: reconciler,
	}
}

func (s *importService) Import(ctx context.Context, req ImportRequest) (*domain.ImportResult, error) {
	if strings.TrimSpace(req.VenueID) == "" {
		return nil, &domain.ValidationError{Field: "venue_id", Reason: "is required"}
	}

	p, format, err := parser.ForFile(req.Filename)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("filename", req.Filename).Warn("Rejected statement file")
		return nil, err
	}

	cfg, err := s.resolveConfig(req)
	if err != nil {
		return nil, err
	}

	rows, parseErrors, err := p.Parse(req.Content, cfg)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("filename", req.Filename).Error("Failed to parse statement file")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.EmptyResultError{Filename: req.Filename, Errors: parseErrors}
	}

	batch := &domain.ImportBatch{
		ID:         uuid.New().String(),
		VenueID:    req.VenueID,
		Filename:   filepath.Base(req.Filename),
		Source:     format.Source(),
		ImportedBy: req.ImportedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create import batch: %w", err)
	}

	result := &domain.ImportResult{
		BatchID: batch.ID,
		Source:  batch.Source,
		Errors:  make([]domain.ParseError, 0, len(parseErrors)),
	}
	result.Errors = append(result.Errors, parseErrors...)

	for _, row := range rows {
		tx := newBankTransaction(row, batch)
		inserted, err := s.txRepo.InsertIfAbsent(ctx, tx)
		if err != nil {
			perr := &domain.PersistenceError{Row: row.Row, Err: err}
			result.Errors = append(result.Errors, perr.AsParseError())
			continue
		}
		if !inserted {
			result.DuplicatesSkipped++
			continue
		}
		result.RecordsImported++
		result.TransactionIDs = append(result.TransactionIDs, tx.ID)
	}

	batch.RecordCount = result.RecordsImported
	batch.DuplicatesSkipped = result.DuplicatesSkipped
	batch.ErrorsCount = len(result.Errors)
	if err := s.batchRepo.Finalize(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to finalize import batch: %w", err)
	}

	log := logger.GetLogger().WithFields(map[string]interface{}{
		"batch_id":   batch.ID,
		"venue_id":   batch.VenueID,
		"source":     batch.Source,
		"imported":   result.RecordsImported,
		"duplicates": result.DuplicatesSkipped,
		"errors":     len(result.Errors),
	})
	if len(result.Errors) > 0 {
		log = log.WithField("first_errors", domain.SummarizeParseErrors(result.Errors, 3))
	}
	log.Info("Statement imported")

	if s.reconciler != nil && len(result.TransactionIDs) > 0 {
		if _, err := s.reconciler.ReconcileIDs(ctx, result.TransactionIDs); err != nil {
			logger.GetLogger().WithError(err).WithField("batch_id", batch.ID).Warn("Classification after import failed")
		}
	}

	return result, nil
}

func (s *importService) resolveConfig(req ImportRequest) (parser.Config, error) {
	if req.Config != nil {
		if err := req.Config.Delimited.Validate(); err != nil {
			return parser.Config{}, &domain.ValidationError{Field: "config", Reason: err.Error()}
		}
		if err := req.Config.FixedWidth.Validate(); err != nil {
			return parser.Config{}, &domain.ValidationError{Field: "config", Reason: err.Error()}
		}
		return *req.Config, nil
	}

	cfg, err := s.profiles.Config(req.Profile, req.Layout)
	if err != nil {
		return parser.Config{}, &domain.ValidationError{Field: "profile", Reason: err.Error()}
	}
	return cfg, nil
}

func (s *importService) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	if id == "" {
		return nil, &domain.ValidationError{Field: "batch_id", Reason: "is required"}
	}
	return s.batchRepo.GetByID(ctx, id)
}

func (s *importService) ListBatches(ctx context.Context, venueID string, limit int) ([]domain.ImportBatch, error) {
	if venueID == "" {
		return nil, &domain.ValidationError{Field: "venue_id", Reason: "is required"}
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return s.batchRepo.ListByVenue(ctx, venueID, limit)
}

func newBankTransaction(row domain.RawRow, batch *domain.ImportBatch) *domain.BankTransaction {
	reference := strings.TrimSpace(row.Reference)
	if reference == "" {
		reference = DeriveBankReference(row)
	}

	return &domain.BankTransaction{
		ID:              uuid.New().String(),
		VenueID:         batch.VenueID,
		TransactionDate: row.TransactionDate,
		ValueDate:       row.ValueDate,
		Description:     row.Description,
		Amount:          row.Amount,
		BalanceAfter:    row.Balance,
		BankReference:   reference,
		ImportBatchID:   batch.ID,
		ImportSource:    batch.Source,
		Status:          domain.StatusPending,
		CreatedAt:       batch.CreatedAt,
		UpdatedAt:       batch.CreatedAt,
	}
}

// DeriveBankReference builds YYYYMMDD_<amount in cents>_<description prefix> for
// rows whose source carries no reference of its own.
func DeriveBankReference(row domain.RawRow) string {
	cents := row.Amount.Shift(2).Round(0).String()

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToUpper(row.Description) {
		if b.Len() >= maxReferenceDescription {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	desc := strings.TrimRight(b.String(), "_")

	return fmt.Sprintf("%s_%s_%s", row.TransactionDate.Format("20060102"), cents, desc)
}
