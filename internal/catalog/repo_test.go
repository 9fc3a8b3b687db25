package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	books := `
CREATE TABLE IF NOT EXISTS books (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  category TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  seller_email TEXT NOT NULL,
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(books).Error)
	return db
}

func seedBook(t *testing.T, db *gorm.DB, title, category, seller string, stock int) *models.Book {
	t.Helper()
	book := &models.Book{
		ID:          uuid.New(),
		Title:       title,
		Category:    category,
		PriceCents:  1500,
		Stock:       stock,
		SellerEmail: seller,
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func TestDecrementStockConditional(t *testing.T) {
	t.Parallel()

	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	book := seedBook(t, db, "The Go Programming Language", "programming", "seller@example.com", 3)

	ok, err := repo.DecrementStock(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	// would go negative, must not apply
	ok, err = repo.DecrementStock(ctx, book.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.DecrementStock(ctx, book.ID, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementStock(ctx, book.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok, "stock is zero, nothing left to decrement")

	reloaded, err := repo.FindByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.Stock)
}

func TestDecrementStockRejectsNonPositiveQuantity(t *testing.T) {
	t.Parallel()

	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	book := seedBook(t, db, "Learning SQL", "databases", "seller@example.com", 5)

	for _, qty := range []int{0, -1} {
		ok, err := repo.DecrementStock(context.Background(), book.ID, qty)
		require.NoError(t, err)
		assert.False(t, ok, "qty %d", qty)
	}

	reloaded, err := repo.FindByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestSearchMatchesTitleAndCategory(t *testing.T) {
	t.Parallel()

	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedBook(t, db, "Clean Architecture", "software", "a@example.com", 1)
	seedBook(t, db, "Domain Modeling", "software", "a@example.com", 1)
	seedBook(t, db, "Sourdough at Home", "cooking", "b@example.com", 1)

	byTitle, err := repo.Search(ctx, "clean", 10)
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Clean Architecture", byTitle[0].Title)

	byCategory, err := repo.Search(ctx, "software", 10)
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	none, err := repo.Search(ctx, "poetry", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindBySeller(t *testing.T) {
	t.Parallel()

	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	seedBook(t, db, "A", "x", "one@example.com", 1)
	seedBook(t, db, "B", "x", "one@example.com", 1)
	seedBook(t, db, "C", "x", "two@example.com", 1)

	mine, err := repo.FindBySeller(ctx, "one@example.com")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
