package auth_repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/auth"
	"powderbook/internal/infrastructure/storage/postgres"
)

// CompanyRepo implements auth.CompanyRepository.
type CompanyRepo struct {
	txManager *postgres.TxManager
}

// NewCompanyRepo creates a new company repository.
func NewCompanyRepo(txManager *postgres.TxManager) *CompanyRepo {
	return &CompanyRepo{txManager: txManager}
}

// Create creates a new company.
func (r *CompanyRepo) Create(ctx context.Context, company *auth.Company) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		INSERT INTO companies (id, name, address, phone, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := q.Exec(ctx, query,
		company.ID, company.Name, company.Address, company.Phone,
		company.Email, company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}

	return nil
}

// GetByID retrieves company by ID.
func (r *CompanyRepo) GetByID(ctx context.Context, companyID id.ID) (*auth.Company, error) {
	q := r.txManager.GetQuerier(ctx)

	query := `
		SELECT id, name, address, phone, email, created_at, updated_at
		FROM companies WHERE id = $1
	`

	var company auth.Company
	err := q.QueryRow(ctx, query, companyID).Scan(
		&company.ID, &company.Name, &company.Address, &company.Phone,
		&company.Email, &company.CreatedAt, &company.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, apperror.NewNotFound("company", companyID.String())
	}
	if err != nil {
		return nil, fmt.Errorf("query company: %w", err)
	}

	return &company, nil
}

// Update updates company details.
func (r *CompanyRepo) Update(ctx context.Context, company *auth.Company) error {
	q := r.txManager.GetQuerier(ctx)

	query := `
		UPDATE companies SET name = $2, address = $3, phone = $4, email = $5, updated_at = now()
		WHERE id = $1
	`

	result, err := q.Exec(ctx, query,
		company.ID, company.Name, company.Address, company.Phone, company.Email,
	)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("company", company.ID.String())
	}

	return nil
}

// Ensure interface compliance
var _ auth.CompanyRepository = (*CompanyRepo)(nil)
