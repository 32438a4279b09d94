package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Confidence indicates which extraction path produced a product record
type Confidence string

const (
	ConfidenceStructured Confidence = "structured"
	ConfidenceDOM        Confidence = "dom"
	ConfidenceStub       Confidence = "stub"
	ConfidenceNone       Confidence = "none"
)

// Variant represents a single product variation (color, size, etc.)
type Variant struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Image string `json:"image,omitempty"`
}

// ShippingInfo summarizes delivery options for a product
type ShippingInfo struct {
	Summary string  `json:"summary"`
	Cost    float64 `json:"cost"`
}

// SellerInfo identifies the storefront a product is sold by
type SellerInfo struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// RatingInfo holds the aggregate buyer rating for a product
type RatingInfo struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// IntermediateProductData is the common shape produced by the extractors.
// All fields are optional; Confidence records which extractor filled it.
type IntermediateProductData struct {
	Confidence  Confidence
	Name        string
	Description string
	PriceText   string
	Currency    string
	Images      []string
	Variants    []Variant
	Shipping    ShippingInfo
	Seller      SellerInfo
	Rating      RatingInfo
}

// HasName returns true if the extractor found a usable product title
func (d *IntermediateProductData) HasName() bool {
	return d != nil && d.Name != ""
}

// ProductRecord is the final normalized output of one import pipeline run.
// Price always carries the configured markup and is never zero.
type ProductRecord struct {
	SourceID      string       `json:"source_id"`
	SourceURL     string       `json:"source_url"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Price         float64      `json:"price"`
	OriginalPrice float64      `json:"original_price"`
	Currency      string       `json:"currency"`
	Images        []string     `json:"images"`
	Variants      []Variant    `json:"variants"`
	Shipping      ShippingInfo `json:"shipping"`
	Seller        SellerInfo   `json:"seller"`
	Rating        RatingInfo   `json:"rating"`
	Confidence    Confidence   `json:"confidence"`
}

// NeedsReview returns true if the record should be manually reviewed
// before being offered for sale
func (r *ProductRecord) NeedsReview() bool {
	return r.Confidence == ConfidenceStub
}

// SearchResultItem is a lightweight summary of one listing-page entry
type SearchResultItem struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Price         float64      `json:"price"`
	OriginalPrice float64      `json:"original_price"`
	Currency      string       `json:"currency"`
	Image         string       `json:"image"`
	Shipping      ShippingInfo `json:"shipping"`
	Seller        SellerInfo   `json:"seller"`
	Rating        RatingInfo   `json:"rating"`
}

// ImportRequest represents the request to import a product by reference
type ImportRequest struct {
	Reference string `json:"reference" validate:"required"`
}

// SearchOptions holds paging and locale options for a listing search
type SearchOptions struct {
	Page     int
	Sort     string
	Locale   string
	Currency string
}

// ImportedProduct represents a persisted product record plus refresh bookkeeping
type ImportedProduct struct {
	ID               int             `json:"id" db:"id"`
	SourceID         string          `json:"source_id" db:"source_id"`
	SourceURL        string          `json:"source_url" db:"source_url"`
	Name             string          `json:"name" db:"name"`
	Description      string          `json:"description" db:"description"`
	Price            float64         `json:"price" db:"price"`
	OriginalPrice    sql.NullFloat64 `json:"-" db:"original_price"`
	Currency         string          `json:"currency" db:"currency"`
	Images           []string        `json:"images" db:"images"`
	Variants         []Variant       `json:"variants" db:"variants"`
	Shipping         ShippingInfo    `json:"shipping" db:"shipping"`
	Seller           SellerInfo      `json:"seller" db:"seller"`
	Rating           RatingInfo      `json:"rating" db:"rating"`
	Confidence       Confidence      `json:"confidence" db:"confidence"`
	NeedsReview      bool            `json:"needs_review" db:"needs_review"`
	LastRefreshed    *time.Time      `json:"last_refreshed" db:"last_refreshed"`
	LastFailedAt     *time.Time      `json:"last_failed_at" db:"last_failed_at"`
	RefreshFailCount int             `json:"refresh_fail_count" db:"refresh_fail_count"`
	NextRetryAt      *time.Time      `json:"next_retry_at" db:"next_retry_at"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
	IsActive         bool            `json:"is_active" db:"is_active"`
}

// GetOriginalPrice returns the original source price as float64, or 0 if NULL
func (p *ImportedProduct) GetOriginalPrice() float64 {
	if p.OriginalPrice.Valid {
		return p.OriginalPrice.Float64
	}
	return 0.0
}

// CanRetry returns true if a failed refresh can be retried now
func (p *ImportedProduct) CanRetry() bool {
	if p.NextRetryAt == nil {
		return true
	}
	return time.Now().After(*p.NextRetryAt)
}

// ShouldRetry returns true if the product has a failed refresh that is due for retry
func (p *ImportedProduct) ShouldRetry() bool {
	return p.LastFailedAt != nil && p.CanRetry() && p.RefreshFailCount < 5
}

// GetRetryDelay returns the delay for the next refresh retry based on failure count
func (p *ImportedProduct) GetRetryDelay() time.Duration {
	switch p.RefreshFailCount {
	case 0:
		return 10 * time.Minute
	case 1:
		return 30 * time.Minute
	case 2:
		return 1 * time.Hour
	case 3:
		return 3 * time.Hour
	case 4:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// MarshalJSON implements custom JSON marshaling for ImportedProduct
func (p *ImportedProduct) MarshalJSON() ([]byte, error) {
	type Alias ImportedProduct
	return json.Marshal(&struct {
		*Alias
		OriginalPrice *float64 `json:"original_price"`
	}{
		Alias:         (*Alias)(p),
		OriginalPrice: p.getOriginalPricePtr(),
	})
}

// getOriginalPricePtr returns a pointer to the original price, or nil if NULL
func (p *ImportedProduct) getOriginalPricePtr() *float64 {
	if p.OriginalPrice.Valid {
		price := p.OriginalPrice.Float64
		return &price
	}
	return nil
}

// ImportHistory represents one pipeline run recorded for a product
type ImportHistory struct {
	ID            int        `json:"id" db:"id"`
	ProductID     int        `json:"product_id" db:"product_id"`
	Price         float64    `json:"price" db:"price"`
	OriginalPrice float64    `json:"original_price" db:"original_price"`
	Currency      string     `json:"currency" db:"currency"`
	Confidence    Confidence `json:"confidence" db:"confidence"`
	ImportedAt    time.Time  `json:"imported_at" db:"imported_at"`
}

// String returns a short human-readable summary of a record for logging
func (r *ProductRecord) String() string {
	return fmt.Sprintf("%s (%s) %.2f %s [%s]", r.Name, r.SourceID, r.Price, r.Currency, r.Confidence)
}
