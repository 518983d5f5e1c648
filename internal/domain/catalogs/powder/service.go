package powder

import (
	"context"
	"fmt"
	"time"

	"powderbook/internal/core/tx"
	"powderbook/internal/domain"
	"powderbook/pkg/numerator"
)

// Service provides business logic for the Powder catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Powder]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Powder service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Powder]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "powder",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

// prepareForCreate generates a code when none is provided.
func (s *Service) prepareForCreate(ctx context.Context, item *Powder) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, item.CompanyID.String(),
			numerator.Config{Prefix: "PW", PadWidth: 4, ResetPeriod: "never"}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}
