package services

import (
	"context"
	"fmt"
	"log"

	"dropmark/models"
	"dropmark/pipeline"
	"dropmark/repository"
)

// ImportService coordinates the extraction pipeline with persistence.
// Handlers and the refresh scheduler go through here so both paths record
// history and review flags the same way.
type ImportService struct {
	importer *pipeline.Importer
	repo     *repository.ProductRepository
}

// NewImportService creates a new import service
func NewImportService(importer *pipeline.Importer, repo *repository.ProductRepository) *ImportService {
	return &ImportService{
		importer: importer,
		repo:     repo,
	}
}

// ImportProduct runs the pipeline for a reference and persists the result.
// Pipeline errors (unresolvable reference, all mirrors down) pass through;
// a degraded record is persisted, not treated as a failure.
func (s *ImportService) ImportProduct(ctx context.Context, reference string) (*models.ImportedProduct, error) {
	record, err := s.importer.Import(ctx, reference)
	if err != nil {
		return nil, err
	}

	if record.NeedsReview() {
		log.Printf("⚠️  Product %s imported as stub, flagged for manual review", record.SourceID)
	}

	product, err := s.repo.SaveRecord(record)
	if err != nil {
		return nil, fmt.Errorf("import succeeded but persistence failed: %v", err)
	}

	return product, nil
}

// ImportRecord runs only the pipeline, without persistence. Used by the
// async task manager, which persists on completion.
func (s *ImportService) ImportRecord(ctx context.Context, reference string) (*models.ProductRecord, error) {
	return s.importer.Import(ctx, reference)
}

// RefreshProduct re-runs the pipeline for an already imported product and
// updates the stored record
func (s *ImportService) RefreshProduct(ctx context.Context, id int) (*models.ImportedProduct, error) {
	product, err := s.repo.GetProductByID(id)
	if err != nil {
		return nil, err
	}

	record, err := s.importer.Import(ctx, product.SourceURL)
	if err != nil {
		if markErr := s.repo.MarkRefreshFailed(id, product.GetRetryDelay()); markErr != nil {
			log.Printf("Failed to record refresh failure for product %d: %v", id, markErr)
		}
		return nil, fmt.Errorf("refresh failed for product %d: %w", id, err)
	}

	return s.repo.SaveRecord(record)
}

// Search runs the listing pipeline for a keyword
func (s *ImportService) Search(ctx context.Context, keyword string, opts models.SearchOptions) []models.SearchResultItem {
	return s.importer.Search(ctx, keyword, opts)
}

// SaveRecord persists a pipeline record produced elsewhere (async tasks)
func (s *ImportService) SaveRecord(record *models.ProductRecord) (*models.ImportedProduct, error) {
	return s.repo.SaveRecord(record)
}
