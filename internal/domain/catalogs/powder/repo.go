package powder

import (
	"powderbook/internal/domain"
)

// Repository defines the interface for Powder persistence.
type Repository interface {
	domain.CatalogRepository[*Powder]
}
