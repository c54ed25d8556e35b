package repository

import (
	"context"
	"database/sql"

	"bankrec-engine/internal/domain"
	"bankrec-engine/pkg/logger"
)

// SupplierRepository reads the supplier registry mirror. Upsert exists for
// registry sync jobs and fixtures; the engine itself never writes suppliers.
type SupplierRepository interface {
	ListByVenue(ctx context.Context, venueID string) ([]domain.Supplier, error)
	Upsert(ctx context.Context, supplier *domain.Supplier) error
}

type supplierRepository struct {
	db *sql.DB
}

func NewSupplierRepository(db *sql.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r *supplierRepository) ListByVenue(ctx context.Context, venueID string) ([]domain.Supplier, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, venue_id, name, default_account_id, document_type_code, payment_type_code
		FROM suppliers
		WHERE venue_id = $1
		ORDER BY name, id
	`, venueID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to list suppliers")
		return nil, err
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0)
	for rows.Next() {
		var s domain.Supplier
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Name, &s.DefaultAccountID, &s.DocumentTypeCode, &s.PaymentTypeCode); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *supplierRepository) Upsert(ctx context.Context, s *domain.Supplier) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, venue_id, name, default_account_id, document_type_code, payment_type_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			venue_id = excluded.venue_id,
			name = excluded.name,
			default_account_id = excluded.default_account_id,
			document_type_code = excluded.document_type_code,
			payment_type_code = excluded.payment_type_code
	`, s.ID, s.VenueID, s.Name, s.DefaultAccountID, s.DocumentTypeCode, s.PaymentTypeCode)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("supplier_id", s.ID).Error("Failed to upsert supplier")
	}
	return err
}
