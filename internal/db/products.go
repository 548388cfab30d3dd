package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/types"
)

// ProductRepository implements products.Repository on PostgreSQL.
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a product repository backed by db
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, affiliate_url, status, published,
	analysis_result, active_job_id, created_at, updated_at`

// Create inserts a product
func (r *ProductRepository) Create(ctx context.Context, p *types.Product) (*types.Product, error) {
	analysis, err := encodeAnalysis(p)
	if err != nil {
		return nil, err
	}

	row := r.db.pool.QueryRow(ctx,
		`INSERT INTO products (`+productColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.AffiliateURL, p.Status, p.Published,
		analysis, p.ActiveJobID, p.CreatedAt, p.UpdatedAt,
	)
	created, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return created, nil
}

// FindByID retrieves a product by ID
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*types.Product, error) {
	row := r.db.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, products.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// FindAll lists every product, oldest first
func (r *ProductRepository) FindAll(ctx context.Context) ([]*types.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, name`)
}

// FindAllPublished lists published products, oldest first
func (r *ProductRepository) FindAllPublished(ctx context.Context) ([]*types.Product, error) {
	return r.list(ctx, `SELECT `+productColumns+` FROM products WHERE published ORDER BY created_at, name`)
}

// Update writes all mutable fields of a product
func (r *ProductRepository) Update(ctx context.Context, p *types.Product) (*types.Product, error) {
	analysis, err := encodeAnalysis(p)
	if err != nil {
		return nil, err
	}

	row := r.db.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, description = $3, affiliate_url = $4, status = $5, published = $6,
		     analysis_result = $7, active_job_id = $8, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.AffiliateURL, p.Status, p.Published,
		analysis, p.ActiveJobID,
	)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, products.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

// Delete removes a product
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return products.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) list(ctx context.Context, query string) ([]*types.Product, error) {
	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := []*types.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func encodeAnalysis(p *types.Product) ([]byte, error) {
	if p.AnalysisResult == nil {
		return nil, nil
	}
	data, err := json.Marshal(p.AnalysisResult)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	return data, nil
}

func scanProduct(row pgx.Row) (*types.Product, error) {
	var (
		p        types.Product
		status   string
		analysis []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.AffiliateURL, &status, &p.Published,
		&analysis, &p.ActiveJobID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = types.ProductStatus(status)
	if len(analysis) > 0 {
		p.AnalysisResult = &types.Job{}
		if err := json.Unmarshal(analysis, p.AnalysisResult); err != nil {
			return nil, fmt.Errorf("failed to unmarshal analysis result: %w", err)
		}
	}
	return &p, nil
}
