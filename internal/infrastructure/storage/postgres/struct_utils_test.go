package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
)

type MockCatalog struct {
	entity.BaseCatalog
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
}

func TestExtractDBColumns_EmbeddedBase(t *testing.T) {
	cols := ExtractDBColumns[MockCatalog]()

	expectedCols := []string{
		"id", "company_id", "deletion_mark", "version", "code", "name",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}
}

func TestStructToMap_EmbeddedBase(t *testing.T) {
	companyID := id.New()
	cat := MockCatalog{
		BaseCatalog: entity.NewBaseCatalog(companyID),
		Code:        "TEST",
		Name:        "Test Name",
	}
	cat.DeletionMark = true
	cat.Version = 5

	m := StructToMap(cat)

	assert.Equal(t, cat.ID, m["id"])
	assert.Equal(t, companyID, m["company_id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, "TEST", m["code"])
	assert.Equal(t, "Test Name", m["name"])
}

func TestStructToMap_SkipsIgnoredFields(t *testing.T) {
	type withIgnored struct {
		ID   id.ID  `db:"id"`
		Name string `db:"name"`
		Tmp  string `db:"-"`
		Untagged string
	}

	m := StructToMap(withIgnored{ID: id.New(), Name: "x", Tmp: "y", Untagged: "z"})

	assert.Contains(t, m, "id")
	assert.Contains(t, m, "name")
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 2)
}
