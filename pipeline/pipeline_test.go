package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropmark/models"
)

func newTestImporter(mirrorBases []string) *Importer {
	markup := NewMarkupEngine(30)

	var mirrors []string
	for _, base := range mirrorBases {
		mirrors = append(mirrors, base+"/item/%s.html")
	}

	return &Importer{
		resolver:   NewIdentifierResolver(),
		fetcher:    NewMirrorFetcher(mirrors, 5*time.Second),
		structured: NewStructuredExtractor(),
		dom:        NewDOMExtractor("example-cdn.com"),
		assembler:  NewAssembler(markup, 9.99, "USD", nil),
	}
}

func TestImportEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/1234567890.html", r.URL.Path)
		w.Write([]byte(runParamsPage))
	}))
	defer srv.Close()

	importer := newTestImporter([]string{srv.URL})

	record, err := importer.Import(context.Background(), "https://example.com/item/1234567890.html")
	require.NoError(t, err)

	assert.Equal(t, "1234567890", record.SourceID)
	assert.Equal(t, "Wireless Earbuds Pro", record.Name)
	assert.Equal(t, models.ConfidenceStructured, record.Confidence)
	assert.InDelta(t, 12.34, record.OriginalPrice, 0.001)
	assert.InDelta(t, 16.99, record.Price, 0.001) // 12.34 * 1.30 = 16.042
	assert.Contains(t, record.SourceURL, srv.URL)
}

func TestImportFallsBackToSecondMirror(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mirror down", http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	secondary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(runParamsPage))
	}))
	defer secondary.Close()

	importer := newTestImporter([]string{primary.URL, secondary.URL})

	record, err := importer.Import(context.Background(), "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Earbuds Pro", record.Name)
	assert.Contains(t, record.SourceURL, secondary.URL)
}

func TestImportUnresolvableReference(t *testing.T) {
	importer := newTestImporter([]string{"http://127.0.0.1:1"})

	record, err := importer.Import(context.Background(), "not a product reference")
	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrUnresolvableReference)
}

func TestImportAllMirrorsDown(t *testing.T) {
	importer := newTestImporter([]string{"http://127.0.0.1:1", "http://127.0.0.1:1"})

	record, err := importer.Import(context.Background(), "1234567890")
	assert.Nil(t, record)
	assert.ErrorIs(t, err, ErrAllMirrorsFailed)
}

func TestImportStubsOutUnextractablePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>maintenance page, nothing to see</p></body></html>"))
	}))
	defer srv.Close()

	importer := newTestImporter([]string{srv.URL})

	record, err := importer.Import(context.Background(), "9876543210")
	require.NoError(t, err, "extraction quality never surfaces as an error")

	assert.Equal(t, "Product 9876543210", record.Name)
	assert.Equal(t, models.ConfidenceStub, record.Confidence)
	assert.True(t, record.NeedsReview())
	assert.InDelta(t, 9.99, record.Price, 0.001)
}

func TestExtractRecordIsDeterministic(t *testing.T) {
	importer := newTestImporter(nil)

	first := importer.extractRecord(context.Background(), "1234567890", "https://example.com/item/1234567890.html", runParamsPage)
	second := importer.extractRecord(context.Background(), "1234567890", "https://example.com/item/1234567890.html", runParamsPage)

	assert.Equal(t, first, second)
}

func TestExtractRecordDOMFallback(t *testing.T) {
	// no embedded payload, only markup: the DOM extractor has to carry it
	page := `<html><head><title>Ceramic Mug Set - AliExpress</title></head><body>
<h1 class="product-title-text">Ceramic Mug Set</h1>
<div class="product-price-value">US $24.00</div>
</body></html>`

	importer := newTestImporter(nil)

	record := importer.extractRecord(context.Background(), "555666777", "https://example.com/item/555666777.html", page)

	assert.Equal(t, "Ceramic Mug Set", record.Name)
	assert.Equal(t, models.ConfidenceDOM, record.Confidence)
	assert.InDelta(t, 24.00, record.OriginalPrice, 0.001)
	assert.InDelta(t, 31.99, record.Price, 0.001) // 24.00 * 1.30 = 31.20
}
