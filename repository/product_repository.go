package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dropmark/database"
	"dropmark/models"
)

type ProductRepository struct{}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

const productColumns = `id, source_id, source_url, name, description, price, original_price, currency,
	images, variants, shipping, seller, rating, confidence, needs_review,
	last_refreshed, last_failed_at, refresh_fail_count, next_retry_at, created_at, updated_at, is_active`

// SaveRecord persists a pipeline output record, updating the existing row
// when the product was imported before
func (r *ProductRepository) SaveRecord(record *models.ProductRecord) (*models.ImportedProduct, error) {
	images, variants, shipping, seller, rating, err := marshalRecordFields(record)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO imported_products
			(source_id, source_url, name, description, price, original_price, currency,
			 images, variants, shipping, seller, rating, confidence, needs_review,
			 last_refreshed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15, $15)
		ON CONFLICT (source_id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			currency = EXCLUDED.currency,
			images = EXCLUDED.images,
			variants = EXCLUDED.variants,
			shipping = EXCLUDED.shipping,
			seller = EXCLUDED.seller,
			rating = EXCLUDED.rating,
			confidence = EXCLUDED.confidence,
			needs_review = EXCLUDED.needs_review,
			last_refreshed = EXCLUDED.last_refreshed,
			last_failed_at = NULL,
			refresh_fail_count = 0,
			next_retry_at = NULL,
			updated_at = EXCLUDED.updated_at,
			is_active = TRUE
		RETURNING ` + productColumns

	now := time.Now()
	row := database.DB.QueryRow(query,
		record.SourceID, record.SourceURL, record.Name, record.Description,
		record.Price, record.OriginalPrice, record.Currency,
		images, variants, shipping, seller, rating,
		string(record.Confidence), record.NeedsReview(), now,
	)

	product, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save product record: %v", err)
	}

	if err := r.AddImportHistory(product.ID, record); err != nil {
		return nil, err
	}

	return product, nil
}

// GetProducts returns all active imported products, newest first
func (r *ProductRepository) GetProducts() ([]models.ImportedProduct, error) {
	query := `SELECT ` + productColumns + `
		FROM imported_products
		WHERE is_active = TRUE
		ORDER BY created_at DESC`

	rows, err := database.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %v", err)
	}
	defer rows.Close()

	var products []models.ImportedProduct
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, *product)
	}

	return products, nil
}

// GetProductByID returns an imported product by ID
func (r *ProductRepository) GetProductByID(id int) (*models.ImportedProduct, error) {
	query := `SELECT ` + productColumns + `
		FROM imported_products
		WHERE id = $1 AND is_active = TRUE`

	product, err := scanProduct(database.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("product not found")
		}
		return nil, fmt.Errorf("failed to get product: %v", err)
	}

	return product, nil
}

// DeleteProduct deactivates an imported product
func (r *ProductRepository) DeleteProduct(id int) error {
	query := `UPDATE imported_products SET is_active = FALSE, updated_at = $2 WHERE id = $1`

	result, err := database.DB.Exec(query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete product: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %v", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("product not found")
	}

	return nil
}

// AddImportHistory records one pipeline run for a product
func (r *ProductRepository) AddImportHistory(productID int, record *models.ProductRecord) error {
	query := `
		INSERT INTO import_history (product_id, price, original_price, currency, confidence, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := database.DB.Exec(query,
		productID, record.Price, record.OriginalPrice, record.Currency,
		string(record.Confidence), time.Now())
	if err != nil {
		return fmt.Errorf("failed to add import history: %v", err)
	}

	return nil
}

// GetImportHistory returns past pipeline runs for a product, newest first
func (r *ProductRepository) GetImportHistory(productID int) ([]models.ImportHistory, error) {
	query := `
		SELECT id, product_id, price, original_price, currency, confidence, imported_at
		FROM import_history
		WHERE product_id = $1
		ORDER BY imported_at DESC`

	rows, err := database.DB.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get import history: %v", err)
	}
	defer rows.Close()

	var history []models.ImportHistory
	for rows.Next() {
		var h models.ImportHistory
		var confidence string
		err := rows.Scan(&h.ID, &h.ProductID, &h.Price, &h.OriginalPrice, &h.Currency, &confidence, &h.ImportedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %v", err)
		}
		h.Confidence = models.Confidence(confidence)
		history = append(history, h)
	}

	return history, nil
}

// GetProductsForRefresh returns active products whose data is older than
// maxAge, or whose last refresh failed and is due for retry
func (r *ProductRepository) GetProductsForRefresh(maxAge time.Duration) ([]models.ImportedProduct, error) {
	query := `SELECT ` + productColumns + `
		FROM imported_products
		WHERE is_active = TRUE
		  AND (last_refreshed IS NULL OR last_refreshed < $1
		       OR (last_failed_at IS NOT NULL AND refresh_fail_count < 5
		           AND (next_retry_at IS NULL OR next_retry_at < $2)))
		ORDER BY last_refreshed ASC NULLS FIRST`

	rows, err := database.DB.Query(query, time.Now().Add(-maxAge), time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get products for refresh: %v", err)
	}
	defer rows.Close()

	var products []models.ImportedProduct
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %v", err)
		}
		products = append(products, *product)
	}

	return products, nil
}

// MarkRefreshFailed records a failed refresh and schedules the next retry
func (r *ProductRepository) MarkRefreshFailed(id int, retryDelay time.Duration) error {
	query := `
		UPDATE imported_products
		SET last_failed_at = $2, refresh_fail_count = refresh_fail_count + 1,
		    next_retry_at = $3, updated_at = $2
		WHERE id = $1`

	now := time.Now()
	_, err := database.DB.Exec(query, id, now, now.Add(retryDelay))
	if err != nil {
		return fmt.Errorf("failed to mark refresh failed: %v", err)
	}
	return nil
}

// scannable covers both *sql.Row and *sql.Rows
type scannable interface {
	Scan(dest ...interface{}) error
}

// scanProduct reads one imported_products row, decoding the JSONB columns
func scanProduct(row scannable) (*models.ImportedProduct, error) {
	var p models.ImportedProduct
	var images, variants, shipping, seller, rating []byte
	var confidence string

	err := row.Scan(
		&p.ID, &p.SourceID, &p.SourceURL, &p.Name, &p.Description,
		&p.Price, &p.OriginalPrice, &p.Currency,
		&images, &variants, &shipping, &seller, &rating,
		&confidence, &p.NeedsReview,
		&p.LastRefreshed, &p.LastFailedAt, &p.RefreshFailCount, &p.NextRetryAt,
		&p.CreatedAt, &p.UpdatedAt, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}

	p.Confidence = models.Confidence(confidence)
	json.Unmarshal(images, &p.Images)
	json.Unmarshal(variants, &p.Variants)
	json.Unmarshal(shipping, &p.Shipping)
	json.Unmarshal(seller, &p.Seller)
	json.Unmarshal(rating, &p.Rating)

	return &p, nil
}

// marshalRecordFields serializes the JSONB columns of a product record
func marshalRecordFields(record *models.ProductRecord) (images, variants, shipping, seller, rating []byte, err error) {
	if images, err = json.Marshal(orEmpty(record.Images)); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal images: %v", err)
	}
	if record.Variants == nil {
		record.Variants = []models.Variant{}
	}
	if variants, err = json.Marshal(record.Variants); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal variants: %v", err)
	}
	if shipping, err = json.Marshal(record.Shipping); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal shipping: %v", err)
	}
	if seller, err = json.Marshal(record.Seller); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal seller: %v", err)
	}
	if rating, err = json.Marshal(record.Rating); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("failed to marshal rating: %v", err)
	}
	return images, variants, shipping, seller, rating, nil
}

func orEmpty(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
