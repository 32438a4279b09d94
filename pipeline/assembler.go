package pipeline

import (
	"context"
	"fmt"
	"log"

	"dropmark/models"
)

// FloorPriceSearcher recovers a last-resort price by keyword search.
// The canonical id is not a real keyword, so this is best-effort only.
type FloorPriceSearcher interface {
	Search(ctx context.Context, keyword string, opts models.SearchOptions) []models.SearchResultItem
}

// Assembler combines the best available extraction results into a final
// product record. Extraction-quality problems never surface as errors;
// they only lower the confidence marker on the output.
type Assembler struct {
	normalizer      *PriceNormalizer
	markup          *MarkupEngine
	floorPrice      float64
	defaultCurrency string
	searcher        FloorPriceSearcher // optional
}

// NewAssembler creates an assembler. searcher may be nil, in which case the
// fixed floor price is the only zero-price recovery.
func NewAssembler(markup *MarkupEngine, floorPrice float64, defaultCurrency string, searcher FloorPriceSearcher) *Assembler {
	if floorPrice <= 0 {
		floorPrice = 9.99
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Assembler{
		normalizer:      NewPriceNormalizer(),
		markup:          markup,
		floorPrice:      floorPrice,
		defaultCurrency: defaultCurrency,
		searcher:        searcher,
	}
}

// Assemble builds the final record from whichever extractor produced usable
// data. data may be nil or titleless; the result is then a stub record that
// downstream consumers should route to manual review.
func (a *Assembler) Assemble(ctx context.Context, productID, sourceURL string, data *models.IntermediateProductData) *models.ProductRecord {
	if !data.HasName() {
		return a.stubRecord(ctx, productID, sourceURL)
	}

	original, currency := a.normalizer.Parse(data.PriceText)
	if currency == "" {
		currency = data.Currency
	}
	if currency == "" {
		currency = a.defaultCurrency
	}

	retail := a.markup.Retail(original)
	if retail <= 0 {
		retail = a.recoverPrice(ctx, productID)
		log.Printf("No usable price for %s, floor policy applied: %.2f", productID, retail)
	}

	record := &models.ProductRecord{
		SourceID:      productID,
		SourceURL:     sourceURL,
		Name:          data.Name,
		Description:   data.Description,
		Price:         retail,
		OriginalPrice: original,
		Currency:      currency,
		Images:        data.Images,
		Variants:      data.Variants,
		Shipping:      data.Shipping,
		Seller:        data.Seller,
		Rating:        data.Rating,
		Confidence:    data.Confidence,
	}

	// originalPrice is only meaningful when price text actually parsed;
	// otherwise it mirrors the retail price
	if original <= 0 {
		record.OriginalPrice = retail
	}

	return record
}

// stubRecord synthesizes a minimal record when no extractor found a title
func (a *Assembler) stubRecord(ctx context.Context, productID, sourceURL string) *models.ProductRecord {
	price := a.recoverPrice(ctx, productID)

	return &models.ProductRecord{
		SourceID:      productID,
		SourceURL:     sourceURL,
		Name:          fmt.Sprintf("Product %s", productID),
		Description:   "Product details could not be extracted from the source page.",
		Price:         price,
		OriginalPrice: price,
		Currency:      a.defaultCurrency,
		Seller:        models.SellerInfo{Name: "Unknown seller"},
		Confidence:    models.ConfidenceStub,
	}
}

// recoverPrice implements the floor policy: try a keyword search on the
// canonical id, then fall back to the fixed minimum. Never returns zero.
func (a *Assembler) recoverPrice(ctx context.Context, productID string) float64 {
	if a.searcher != nil {
		items := a.searcher.Search(ctx, productID, models.SearchOptions{Page: 1})
		if len(items) > 0 && items[0].Price > 0 {
			return items[0].Price
		}
	}
	return a.floorPrice
}
