package catalog_repo

import (
	"testing"

	"powderbook/internal/core/id"
)

func TestBaseCatalogRepo_Delete_SQL(t *testing.T) {
	repo := NewBaseCatalogRepo[any](nil, "test_table", []string{"id", "company_id", "name"}, func() any { return nil })
	companyID := id.New()
	entityID := id.New()

	q := repo.Builder().
		Delete(repo.tableName).
		Where("company_id = ?", companyID).
		Where("id = ?", entityID)

	sql, args, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	wantSQL := "DELETE FROM test_table WHERE company_id = $1 AND id = $2"
	if sql != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, sql)
	}
	if len(args) != 2 || args[0] != companyID || args[1] != entityID {
		t.Errorf("Args mismatch\nwant: [%v %v]\ngot:  %v", companyID, entityID, args)
	}
}
