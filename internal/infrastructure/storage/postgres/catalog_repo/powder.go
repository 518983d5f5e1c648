package catalog_repo

import (
	"powderbook/internal/domain/catalogs/powder"
	"powderbook/internal/infrastructure/storage/postgres"
)

const powderTable = "cat_powders"

// PowderRepo implements powder.Repository.
type PowderRepo struct {
	*BaseCatalogRepo[*powder.Powder]
}

// NewPowderRepo creates a new powder repository.
func NewPowderRepo(txManager *postgres.TxManager) *PowderRepo {
	return &PowderRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			powderTable,
			postgres.ExtractDBColumns[powder.Powder](),
			func() *powder.Powder { return &powder.Powder{} },
		),
	}
}
