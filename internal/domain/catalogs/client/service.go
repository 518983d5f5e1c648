package client

import (
	"context"
	"fmt"
	"time"

	"powderbook/internal/core/tx"
	"powderbook/internal/domain"
	"powderbook/pkg/numerator"
)

// Service provides business logic for the Client catalog.
type Service struct {
	*domain.CatalogService[*Client]
	repo      Repository
	numerator *numerator.Service
}

// NewService creates a new Client service.
func NewService(repo Repository, txManager tx.Manager, num *numerator.Service) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Client]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "client",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
		numerator:      num,
	}

	base.Hooks().OnBeforeCreate(svc.prepareForCreate)

	return svc
}

func (s *Service) prepareForCreate(ctx context.Context, item *Client) error {
	if item.Code == "" {
		code, err := s.numerator.GetNextNumber(ctx, item.CompanyID.String(),
			numerator.Config{Prefix: "CL", PadWidth: 4, ResetPeriod: "never"}, nil, time.Now())
		if err != nil {
			return fmt.Errorf("generate code: %w", err)
		}
		item.Code = code
	}
	return nil
}
