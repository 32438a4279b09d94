package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropmark/models"
)

type fakeSearcher struct {
	items []models.SearchResultItem
}

func (f *fakeSearcher) Search(ctx context.Context, keyword string, opts models.SearchOptions) []models.SearchResultItem {
	return f.items
}

func newTestAssembler(searcher FloorPriceSearcher) *Assembler {
	return NewAssembler(NewMarkupEngine(30), 9.99, "USD", searcher)
}

func TestAssembleStructuredData(t *testing.T) {
	assembler := newTestAssembler(nil)

	data := &models.IntermediateProductData{
		Confidence: models.ConfidenceStructured,
		Name:       "Wireless Earbuds Pro",
		PriceText:  "US $10.00",
		Images:     []string{"https://cdn.example.com/a.jpg"},
		Seller:     models.SellerInfo{Name: "TechGear Store"},
	}

	record := assembler.Assemble(context.Background(), "1234567890", "https://example.com/item/1234567890.html", data)
	require.NotNil(t, record)

	assert.Equal(t, "1234567890", record.SourceID)
	assert.Equal(t, "Wireless Earbuds Pro", record.Name)
	assert.InDelta(t, 12.99, record.Price, 0.001)
	assert.InDelta(t, 10.00, record.OriginalPrice, 0.001)
	assert.Equal(t, "USD", record.Currency)
	assert.Equal(t, models.ConfidenceStructured, record.Confidence)
	assert.False(t, record.NeedsReview())
}

func TestAssembleStubWhenNoTitle(t *testing.T) {
	assembler := newTestAssembler(nil)

	for _, data := range []*models.IntermediateProductData{
		nil,
		{Confidence: models.ConfidenceDOM}, // extractor ran but found nothing
	} {
		record := assembler.Assemble(context.Background(), "987654321012", "https://example.com/item/987654321012.html", data)
		require.NotNil(t, record)

		assert.Equal(t, "Product 987654321012", record.Name)
		assert.Equal(t, models.ConfidenceStub, record.Confidence)
		assert.True(t, record.NeedsReview())
		assert.InDelta(t, 9.99, record.Price, 0.001)
		assert.Positive(t, record.Price, "stub records are never priced at zero")
	}
}

func TestAssembleFloorRecoveryViaSearch(t *testing.T) {
	searcher := &fakeSearcher{items: []models.SearchResultItem{
		{ID: "111", Price: 15.99},
	}}
	assembler := newTestAssembler(searcher)

	record := assembler.Assemble(context.Background(), "555000111222", "https://example.com/item/555000111222.html", nil)
	assert.InDelta(t, 15.99, record.Price, 0.001)
}

func TestAssembleUnparsablePriceUsesFloor(t *testing.T) {
	assembler := newTestAssembler(&fakeSearcher{}) // search yields nothing

	data := &models.IntermediateProductData{
		Confidence: models.ConfidenceDOM,
		Name:       "Mystery Gadget",
		PriceText:  "contact seller",
	}

	record := assembler.Assemble(context.Background(), "42424242420", "https://example.com/item/42424242420.html", data)

	assert.InDelta(t, 9.99, record.Price, 0.001)
	// no parsed price text, so original mirrors the retail price
	assert.InDelta(t, record.Price, record.OriginalPrice, 0.001)
	assert.Equal(t, models.ConfidenceDOM, record.Confidence)
	assert.False(t, record.NeedsReview(), "a titled record is degraded, not a stub")
}

func TestAssembleCurrencyFallbacks(t *testing.T) {
	assembler := newTestAssembler(nil)

	data := &models.IntermediateProductData{
		Confidence: models.ConfidenceStructured,
		Name:       "Plain Item",
		PriceText:  "12,50",
		Currency:   "EUR",
	}

	record := assembler.Assemble(context.Background(), "31415926535", "https://example.com/item/31415926535.html", data)
	assert.Equal(t, "EUR", record.Currency, "payload currency wins when the text has no symbol")

	data.Currency = ""
	record = assembler.Assemble(context.Background(), "31415926535", "https://example.com/item/31415926535.html", data)
	assert.Equal(t, "USD", record.Currency, "default currency when nothing else is known")
}
