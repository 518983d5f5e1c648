package client

import (
	"powderbook/internal/domain"
)

// Repository defines data access for the Client catalog.
type Repository interface {
	domain.CatalogRepository[*Client]
}
