package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/partsquote/internal/domain"
	"github.com/utafrali/partsquote/pkg/database"
	"github.com/utafrali/partsquote/pkg/slug"
)

const upsertBrandSQL = `
	INSERT INTO brands (id, name) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

const upsertCategorySQL = `
	INSERT INTO categories (id, name) VALUES ($1, $2)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`

const upsertProductSQL = `
	INSERT INTO products (
		id, slug, sku, name, description, brand_id, category_id,
		image_url, price, size_options, lead_time, is_active
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10, $11, TRUE)
	ON CONFLICT (id) DO UPDATE SET
		slug         = EXCLUDED.slug,
		sku          = EXCLUDED.sku,
		name         = EXCLUDED.name,
		description  = EXCLUDED.description,
		brand_id     = EXCLUDED.brand_id,
		category_id  = EXCLUDED.category_id,
		image_url    = EXCLUDED.image_url,
		price        = EXCLUDED.price,
		size_options = EXCLUDED.size_options,
		lead_time    = EXCLUDED.lead_time,
		is_active    = TRUE,
		updated_at   = NOW()`

const deactivateMissingSQL = `
	UPDATE products SET is_active = FALSE, updated_at = NOW()
	WHERE is_active AND NOT (id = ANY($1))`

// UpsertResult summarises a catalog sync.
type UpsertResult struct {
	Brands      int
	Categories  int
	Products    int
	Deactivated int64
}

// Upsert writes products, and the brands and categories they reference, in a
// single transaction. Brand and category IDs are slugs of their names. With
// deactivateMissing set, active products absent from the input are hidden.
func Upsert(ctx context.Context, db database.MigrationDB, products []domain.Product, deactivateMissing bool) (res UpsertResult, err error) {
	for i := range products {
		if err := validateSeedProduct(&products[i]); err != nil {
			return UpsertResult{}, err
		}
	}

	ctx, end := database.TraceQuery(ctx, "UpsertCatalog", upsertProductSQL)
	defer func() { end(err) }()

	tx, err := db.Begin(ctx)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin catalog upsert: %w", err)
	}

	res, err = upsertInTx(ctx, tx, products, deactivateMissing)
	if err != nil {
		_ = tx.Rollback(ctx)
		return UpsertResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("commit catalog upsert: %w", err)
	}
	return res, nil
}

func upsertInTx(ctx context.Context, tx pgx.Tx, products []domain.Product, deactivateMissing bool) (UpsertResult, error) {
	var res UpsertResult
	brands := make(map[string]bool)
	categories := make(map[string]bool)
	ids := make([]string, 0, len(products))

	for i := range products {
		p := &products[i]

		brandID, err := upsertNamed(ctx, tx, upsertBrandSQL, "brand", p.Brand, brands)
		if err != nil {
			return res, err
		}
		categoryID, err := upsertNamed(ctx, tx, upsertCategorySQL, "category", p.Category, categories)
		if err != nil {
			return res, err
		}

		args, err := productArgs(p, brandID, categoryID)
		if err != nil {
			return res, err
		}
		if _, err := tx.Exec(ctx, upsertProductSQL, args...); err != nil {
			return res, fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
		ids = append(ids, p.ID)
	}

	res.Brands = len(brands)
	res.Categories = len(categories)
	res.Products = len(ids)

	if deactivateMissing {
		tag, err := tx.Exec(ctx, deactivateMissingSQL, ids)
		if err != nil {
			return res, fmt.Errorf("deactivate missing products: %w", err)
		}
		res.Deactivated = tag.RowsAffected()
	}
	return res, nil
}

// upsertNamed writes a brand or category once per sync and returns its ID,
// or nil when the name is blank.
func upsertNamed(ctx context.Context, tx pgx.Tx, query, kind, name string, seen map[string]bool) (*string, error) {
	id := slug.Generate(name)
	if id == "" {
		return nil, nil
	}
	if !seen[id] {
		if _, err := tx.Exec(ctx, query, id, name); err != nil {
			return nil, fmt.Errorf("upsert %s %q: %w", kind, name, err)
		}
		seen[id] = true
	}
	return &id, nil
}

func productArgs(p *domain.Product, brandID, categoryID *string) ([]any, error) {
	var price *string
	if amount, ok := p.Price.Amount(); ok {
		s := amount.StringFixed(2)
		price = &s
	}

	var sizes []byte
	if p.HasSizes() {
		b, err := json.Marshal(p.SizeVariations)
		if err != nil {
			return nil, fmt.Errorf("marshal size options of product %s: %w", p.ID, err)
		}
		sizes = b
	}

	return []any{
		p.ID, p.Slug, nullable(p.SKU), p.Name, nullable(p.Description),
		brandID, categoryID, nullable(p.Image), price, sizes, nullable(p.LeadTime),
	}, nil
}

func validateSeedProduct(p *domain.Product) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("seed product %q has no id", p.Name)
	case p.Slug == "":
		return fmt.Errorf("seed product %s has no slug", p.ID)
	case p.Name == "":
		return fmt.Errorf("seed product %s has no name", p.ID)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
