package supplier

import (
	"powderbook/internal/domain"
)

// Repository defines data access for the Supplier catalog.
type Repository interface {
	domain.CatalogRepository[*Supplier]
}
