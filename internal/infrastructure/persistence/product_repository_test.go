package persistence

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func newTestCatalogProduct(t *testing.T, name string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(catalog.NewProductInput{
		Name:         name,
		Piece:        intPtr(10),
		Package:      intPtr(5),
		ReceiptNo:    intPtr(20),
		BuyingPrice:  decimal.NewNullDecimal(decimal.NewFromInt(40)),
		SellingPrice: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	return p
}

func TestGormProductRepository_FindByID(t *testing.T) {
	t.Run("maps record not found", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		product, err := repo.FindByID(context.Background(), id)

		assert.Nil(t, product)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_FindByIDsForUpdate(t *testing.T) {
	t.Run("locks rows in ascending id order", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)

		a, b := uuid.New(), uuid.New()
		first, second := a, b
		if bytes.Compare(a[:], b[:]) > 0 {
			first, second = b, a
		}

		rows := sqlmock.NewRows([]string{"id", "name", "stock", "selling_price", "version"}).
			AddRow(first, "Cement", 30, "50.00", 3).
			AddRow(second, "Sand", nil, "12.00", 1)
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id IN \(\$1,\$2\) ORDER BY id FOR UPDATE`).
			WithArgs(first, second).
			WillReturnRows(rows)

		got, err := repo.FindByIDsForUpdate(context.Background(), []uuid.UUID{second, first})

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, 30, *got[first].Stock)
		assert.Equal(t, 3, got[first].Version)
		assert.Nil(t, got[second].Stock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no ids issue no query", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()

		got, err := NewGormProductRepository(gormDB).FindByIDsForUpdate(context.Background(), nil)

		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_Save(t *testing.T) {
	t.Run("updates with version check and bumps the version", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)
		product := newTestCatalogProduct(t, "Cement")

		mock.ExpectExec(`UPDATE "products" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), product))
		assert.Equal(t, 2, product.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero rows affected is a concurrency conflict", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)
		product := newTestCatalogProduct(t, "Cement")

		mock.ExpectExec(`UPDATE "products" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), product)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, product.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error is returned", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGorm(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(gormDB)

		mock.ExpectExec(`UPDATE "products" SET`).WillReturnError(assert.AnError)

		err := repo.Save(context.Background(), newTestCatalogProduct(t, "Cement"))
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestGormProductRepository_ExistsByIdentity(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormProductRepository(db.DB)
	ctx := context.Background()

	product := newTestCatalogProduct(t, "Cement")
	require.NoError(t, repo.Create(ctx, product))

	exists, err := repo.ExistsByIdentity(ctx, "Cement", nil, "")
	require.NoError(t, err)
	assert.True(t, exists)

	category := uuid.New()
	exists, err = repo.ExistsByIdentity(ctx, "Cement", &category, "")
	require.NoError(t, err)
	assert.False(t, exists)

	loaded, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, *loaded.Stock)
	assert.True(t, loaded.SellingPrice.Equal(decimal.NewFromInt(50)))
}
