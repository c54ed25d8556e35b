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

type BatchRepository interface {
	Create(ctx context.Context, batch *domain.ImportBatch) error
	Finalize(ctx context.Context, batch *domain.ImportBatch) error
	GetByID(ctx context.Context, id string) (*domain.ImportBatch, error)
	ListByVenue(ctx context.Context, venueID string, limit int) ([]domain.ImportBatch, error)
}

type batchRepository struct {
	db *sql.DB
}

func NewBatchRepository(db *sql.DB) BatchRepository {
	return &batchRepository{db: db}
}

func (r *batchRepository) Create(ctx context.Context, batch *domain.ImportBatch) error {
	query := `
		INSERT INTO import_batches (id, venue_id, filename, source, imported_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		batch.ID,
		batch.VenueID,
		batch.Filename,
		batch.Source,
		batch.ImportedBy,
		batch.CreatedAt,
	)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create import batch")
		return err
	}

	return nil
}

// Finalize writes the batch counters. It succeeds only once per batch.
func (r *batchRepository) Finalize(ctx context.Context, batch *domain.ImportBatch) error {
	query := `
		UPDATE import_batches
		SET record_count = $1, duplicates_skipped = $2, errors_count = $3, finalized_at = $4
		WHERE id = $5 AND finalized_at IS NULL
	`

	res, err := r.db.ExecContext(ctx, query,
		batch.RecordCount,
		batch.DuplicatesSkipped,
		batch.ErrorsCount,
		time.Now().UTC(),
		batch.ID,
	)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("batch_id", batch.ID).Error("Failed to finalize import batch")
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("import batch %s is missing or already finalized", batch.ID)
	}
	return nil
}

func (r *batchRepository) GetByID(ctx context.Context, id string) (*domain.ImportBatch, error) {
	query := `
		SELECT id, venue_id, filename, source, record_count, duplicates_skipped,
			errors_count, imported_by, created_at
		FROM import_batches
		WHERE id = $1
	`

	batch, err := scanBatch(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("import batch %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to get import batch")
		return nil, err
	}
	return batch, nil
}

func (r *batchRepository) ListByVenue(ctx context.Context, venueID string, limit int) ([]domain.ImportBatch, error) {
	query := `
		SELECT id, venue_id, filename, source, record_count, duplicates_skipped,
			errors_count, imported_by, created_at
		FROM import_batches
		WHERE venue_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, venueID, limit)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list import batches")
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.ImportBatch, 0)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan import batch")
			return nil, err
		}
		batches = append(batches, *batch)
	}
	return batches, rows.Err()
}

func scanBatch(row rowScanner) (*domain.ImportBatch, error) {
	var batch domain.ImportBatch
	err := row.Scan(
		&batch.ID,
		&batch.VenueID,
		&batch.Filename,
		&batch.Source,
		&batch.RecordCount,
		&batch.DuplicatesSkipped,
		&batch.ErrorsCount,
		&batch.ImportedBy,
		&batch.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &batch, nil
}
