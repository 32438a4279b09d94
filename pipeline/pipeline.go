package pipeline

import (
	"context"
	"fmt"
	"log"

	"dropmark/config"
	"dropmark/models"
)

// Importer is the external catalog extraction pipeline. One Import call is a
// sequential chain: resolve reference, fetch from mirrors, extract
// (structured first, DOM as fallback), normalize prices, assemble. Each call
// builds its own intermediate state, so concurrent imports need no
// coordination here.
type Importer struct {
	cfg        *config.SourceConfig
	resolver   *IdentifierResolver
	fetcher    *MirrorFetcher
	structured *StructuredExtractor
	dom        *DOMExtractor
	listing    *ListingParser
	assembler  *Assembler
}

// NewImporter wires the pipeline components from the source configuration
func NewImporter(cfg *config.SourceConfig) *Importer {
	markup := NewMarkupEngine(cfg.MarkupPercent)

	var mirrors []string
	for _, base := range cfg.MirrorBases() {
		mirrors = append(mirrors, base+"/item/%s.html")
	}

	listing := NewListingParser("https://"+cfg.PrimaryDomain, cfg.FetchTimeout, markup)

	return &Importer{
		cfg:        cfg,
		resolver:   NewIdentifierResolver(),
		fetcher:    NewMirrorFetcher(mirrors, cfg.FetchTimeout),
		structured: NewStructuredExtractor(),
		dom:        NewDOMExtractor(cfg.AssetHost),
		listing:    listing,
		assembler:  NewAssembler(markup, cfg.FloorPrice, cfg.DefaultCurrency, listing),
	}
}

// Import runs the full pipeline for a product reference. Only two failures
// cross this boundary: ErrUnresolvableReference and ErrAllMirrorsFailed.
// Everything else degrades into a lower-confidence record.
func (i *Importer) Import(ctx context.Context, reference string) (*models.ProductRecord, error) {
	productID, err := i.resolver.Resolve(reference)
	if err != nil {
		return nil, err
	}

	result, err := i.fetcher.Fetch(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch failed for product %s: %w", productID, err)
	}

	record := i.extractRecord(ctx, productID, result.MirrorURL, result.Body)
	log.Printf("Imported %s", record)
	return record, nil
}

// extractRecord runs both extractors and the assembler over fetched content.
// Deterministic for fixed input; exercised directly by tests.
func (i *Importer) extractRecord(ctx context.Context, productID, sourceURL, body string) *models.ProductRecord {
	data := i.structured.Extract(body)
	if !data.HasName() {
		data = i.dom.Extract(body)
	}

	return i.assembler.Assemble(ctx, productID, sourceURL, data)
}

// Search runs the listing pipeline for a keyword
func (i *Importer) Search(ctx context.Context, keyword string, opts models.SearchOptions) []models.SearchResultItem {
	return i.listing.Search(ctx, keyword, opts)
}

// Resolve exposes reference resolution for callers that only need the id
func (i *Importer) Resolve(reference string) (string, error) {
	return i.resolver.Resolve(reference)
}
