package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/pharmacore-backend/internal/testutil"
	"github.com/angelmondragon/pharmacore-backend/pkg/db/models"
	"github.com/angelmondragon/pharmacore-backend/pkg/pagination"
)

type ctxKey struct{}

func TestBaseDBBindsContext(t *testing.T) {
	client := testutil.NewSQLiteDB(t)
	base := NewBase(client.DB())

	ctx := context.WithValue(context.Background(), ctxKey{}, "value")
	if got := base.DB(ctx).Statement.Context; got != ctx {
		t.Fatalf("expected context to flow through, got %v", got)
	}
	if base.DB(nil) != client.DB() {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestFirstOrNilMapsMissingRow(t *testing.T) {
	client := testutil.NewSQLiteDB(t)
	product := testutil.SeedProduct(t, client)

	var found models.Product
	got, err := FirstOrNil(&found, client.DB().Where("id = ?", product.ID).First(&found).Error)
	if err != nil || got == nil || got.ID != product.ID {
		t.Fatalf("expected product, got %v %v", got, err)
	}

	var missing models.Product
	got, err = FirstOrNil(&missing, client.DB().Where("id = ?", uuid.New()).First(&missing).Error)
	if err != nil || got != nil {
		t.Fatalf("expected nil row without error, got %v %v", got, err)
	}
}

func TestPageAppliesOffsetAndLimit(t *testing.T) {
	client := testutil.NewSQLiteDB(t)
	for i := 0; i < 5; i++ {
		testutil.SeedProduct(t, client)
	}

	var rows []models.Product
	err := client.DB().
		Order("id ASC").
		Scopes(Page(pagination.Params{Page: 2, Size: 2})).
		Find(&rows).Error
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected second page of 2 rows, got %d", len(rows))
	}
}
