package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/partsquote/internal/catalog"
	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/pkg/database"
	apperrors "github.com/utafrali/partsquote/pkg/errors"
)

const productColumns = `
		p.id, p.slug, p.sku, p.name, p.description,
		COALESCE(b.name, ''), COALESCE(c.name, ''),
		p.image_url, p.price::text, p.size_options, p.lead_time`

const productJoins = `
		FROM products p
		LEFT JOIN brands b ON b.id = p.brand_id
		LEFT JOIN categories c ON c.id = p.category_id`

// ProductRepository implements catalog.Repository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed catalog repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

var _ catalog.Repository = (*ProductRepository)(nil)

// GetByID retrieves an active product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `SELECT` + productColumns + productJoins + `
		WHERE p.id = $1 AND p.is_active`

	ctx, end := database.TraceQuery(ctx, "GetProductByID", query)
	defer func() { end(err) }()

	p, err = scanProduct(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("product", id)
	}
	return p, err
}

// GetBySlug retrieves an active product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (p *domain.Product, err error) {
	query := `SELECT` + productColumns + productJoins + `
		WHERE p.slug = $1 AND p.is_active`

	ctx, end := database.TraceQuery(ctx, "GetProductBySlug", query)
	defer func() { end(err) }()

	p, err = scanProduct(r.pool.QueryRow(ctx, query, slug))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("product", slug)
	}
	return p, err
}

// Search matches query case-insensitively against name, short name, SKU,
// description, brand and category.
func (r *ProductRepository) Search(ctx context.Context, query string, limit int) (products []domain.Product, err error) {
	if limit <= 0 {
		limit = catalog.DefaultSearchLimit
	}

	sql := `SELECT` + productColumns + productJoins + `
		WHERE p.is_active AND (
			p.name ILIKE $1 OR p.short_name ILIKE $1 OR p.sku ILIKE $1
			OR p.description ILIKE $1 OR b.name ILIKE $1 OR c.name ILIKE $1
		)
		ORDER BY p.name
		LIMIT $2`

	ctx, end := database.TraceQuery(ctx, "SearchProducts", sql)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, sql, "%"+escapeLike(strings.TrimSpace(query))+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

// scanProduct reads one row selected with productColumns.
func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p           domain.Product
		sku         *string
		description *string
		image       *string
		price       *string
		sizesJSON   []byte
		leadTime    *string
	)

	err := row.Scan(
		&p.ID,
		&p.Slug,
		&sku,
		&p.Name,
		&description,
		&p.Brand,
		&p.Category,
		&image,
		&price,
		&sizesJSON,
		&leadTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	p.SKU = deref(sku)
	p.Description = deref(description)
	p.Image = deref(image)
	p.LeadTime = deref(leadTime)

	if price != nil {
		amount, err := decimal.NewFromString(*price)
		if err != nil {
			return nil, fmt.Errorf("parse price of product %s: %w", p.ID, err)
		}
		p.Price = domain.PriceOf(amount)
	}

	if len(sizesJSON) > 0 {
		if err := json.Unmarshal(sizesJSON, &p.SizeVariations); err != nil {
			return nil, fmt.Errorf("unmarshal size options of product %s: %w", p.ID, err)
		}
	}

	return &p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
