package postgres

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/pkg/database"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string { return &s }

var productColumnNames = []string{
	"id", "slug", "sku", "name", "description", "brand", "category",
	"image_url", "price", "size_options", "lead_time",
}

func sizedRow() []any {
	return []any{
		"BFLYW316", "butterfly-valve-316", strPtr("BFLYW316"), "CF8M Butterfly Valve",
		strPtr("Stainless wafer butterfly valve"), "Straub", "Valves",
		strPtr("/images/BFLYW316.png"), (*string)(nil),
		[]byte(`[{"value":"50mm","label":"50mm DN50","price":285,"sku":"BFLYW316-50"},{"value":"80mm","label":"80mm DN80","price":null}]`),
		strPtr("7 days if nil stock"),
	}
}

func flatRow() []any {
	return []any{
		"GASKET-1", "flange-gasket", (*string)(nil), "Flange Gasket",
		(*string)(nil), "", "",
		(*string)(nil), strPtr("12.50"), []byte(nil), (*string)(nil),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID / GetBySlug
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_GetByID_Sized(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products p .+ WHERE p.id").
		WithArgs("BFLYW316").
		WillReturnRows(pgxmock.NewRows(productColumnNames).AddRow(sizedRow()...))

	p, err := repo.GetByID(context.Background(), "BFLYW316")
	require.NoError(t, err)

	assert.Equal(t, "CF8M Butterfly Valve", p.Name)
	assert.Equal(t, "Straub", p.Brand)
	assert.Equal(t, "Valves", p.Category)
	assert.Equal(t, "7 days if nil stock", p.LeadTime)
	assert.False(t, p.Price.IsPriced())
	require.Len(t, p.SizeVariations, 2)
	assert.True(t, p.SizeVariations[0].Price.Equal(domain.PriceFromFloat(285)))
	assert.Equal(t, "BFLYW316-50", p.SizeVariations[0].SKU)
	assert.False(t, p.SizeVariations[1].Price.IsPriced())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetBySlug_FlatPrice(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products p .+ WHERE p.slug").
		WithArgs("flange-gasket").
		WillReturnRows(pgxmock.NewRows(productColumnNames).AddRow(flatRow()...))

	p, err := repo.GetBySlug(context.Background(), "flange-gasket")
	require.NoError(t, err)

	amount, ok := p.Price.Amount()
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("12.50").Equal(amount))
	assert.Empty(t, p.SizeVariations)
	assert.Empty(t, p.SKU)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products p .+ WHERE p.id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	p, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_BadSizeOptions(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	row := sizedRow()
	row[9] = []byte(`{not json`)
	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("BFLYW316").
		WillReturnRows(pgxmock.NewRows(productColumnNames).AddRow(row...))

	_, err := repo.GetByID(context.Background(), "BFLYW316")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal size options")
}

// ─────────────────────────────────────────────────────────────────────────────
// Search
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_Search(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products p .+ ILIKE .+ LIMIT").
		WithArgs("%valve%", 20).
		WillReturnRows(pgxmock.NewRows(productColumnNames).
			AddRow(sizedRow()...).
			AddRow(flatRow()...))

	products, err := repo.Search(context.Background(), "  valve ", 0)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "BFLYW316", products[0].ID)
	assert.Equal(t, "GASKET-1", products[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Search_EscapesWildcards(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs(`%100\%\_%`, 5).
		WillReturnRows(pgxmock.NewRows(productColumnNames))

	products, err := repo.Search(context.Background(), "100%_", 5)
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Search_QueryError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products p").
		WithArgs("%x%", 20).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.Search(context.Background(), "x", 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search products")
}

// ─────────────────────────────────────────────────────────────────────────────
// Migrations
// ─────────────────────────────────────────────────────────────────────────────

func TestMigrations_ContainsCatalogSchema(t *testing.T) {
	files := Migrations()
	raw, err := fs.ReadFile(files, "001_create_catalog.up.sql")
	require.NoError(t, err)
	data := string(raw)
	assert.Contains(t, data, "CREATE TABLE IF NOT EXISTS products")
	assert.Contains(t, data, "size_options JSONB")
}

func TestRunMigrations_AppliesPendingFiles(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()

	files := fstest.MapFS{
		"001_init.up.sql":   {Data: []byte("CREATE TABLE brands (id TEXT)")},
		"001_init.down.sql": {Data: []byte("DROP TABLE brands")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE brands").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("001_init.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, database.RunMigrations(context.Background(), mock, files, logger))
	assert.NoError(t, mock.ExpectationsWereMet())
}
