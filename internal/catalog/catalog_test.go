package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fjod/go_store/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	require.NoError(t, c.RunMigrations("./migrations"))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestListProducts_SeededAfterMigrations(t *testing.T) {
	c := setupTestCatalog(t)

	products, err := c.ListProducts(context.Background())

	require.NoError(t, err)
	assert.Len(t, products, 5)
	assert.Equal(t, "Widget", products[0].Name)
}

func TestGetProduct(t *testing.T) {
	c := setupTestCatalog(t)

	p, err := c.GetProduct(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.True(t, p.Price.Equal(domain.MustMoney("19.99")))
}

func TestGetProduct_NotFound(t *testing.T) {
	c := setupTestCatalog(t)

	_, err := c.GetProduct(context.Background(), 999)

	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestRunMigrations_Twice(t *testing.T) {
	c := setupTestCatalog(t)

	assert.NoError(t, c.RunMigrations("./migrations"))
}

func TestUpdatePrice(t *testing.T) {
	c := setupTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, c.UpdatePrice(ctx, 1, domain.MustMoney("24.00")))

	p, err := c.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "24.00", p.Price.String())
	assert.ErrorIs(t, c.UpdatePrice(ctx, 999, domain.MustMoney("1")), ErrProductNotFound)
}

func TestListProducts_CancelledContext(t *testing.T) {
	c := setupTestCatalog(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.ListProducts(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}
