package scheduler

import (
	"context"
	"log"
	"time"

	"dropmark/models"

	"github.com/robfig/cron/v3"
)

// RefreshFuncs contains the collaborator functions needed by the Refresher
type RefreshFuncs struct {
	GetProductsForRefresh func(maxAge time.Duration) ([]models.ImportedProduct, error)
	RefreshProduct        func(ctx context.Context, id int) (*models.ImportedProduct, error)
}

// Refresher periodically re-runs the import pipeline for stale products so
// stored prices track the source. Failed refreshes back off per product.
type Refresher struct {
	cron   *cron.Cron
	funcs  *RefreshFuncs
	maxAge time.Duration
}

// NewRefresher creates a refresher over the given collaborator functions
func NewRefresher(funcs *RefreshFuncs) *Refresher {
	return &Refresher{
		cron:   cron.New(cron.WithSeconds()),
		funcs:  funcs,
		maxAge: 12 * time.Hour,
	}
}

// Start starts the scheduled product refresh
func (rf *Refresher) Start() {
	// Refresh stale products every 12 hours (at 00:00 and 12:00)
	_, err := rf.cron.AddFunc("0 0 */12 * * *", rf.refreshStaleProducts)
	if err != nil {
		log.Printf("Failed to schedule product refresher: %v", err)
		return
	}

	// Also run once on startup
	go rf.refreshStaleProducts()

	rf.cron.Start()
	log.Println("Product refresher scheduled to run every 12 hours")
}

// Stop stops the scheduled refresh
func (rf *Refresher) Stop() {
	if rf.cron != nil {
		rf.cron.Stop()
	}
}

// refreshStaleProducts re-imports every product whose data has gone stale
func (rf *Refresher) refreshStaleProducts() {
	log.Println("Starting scheduled refresh of stale products")

	products, err := rf.funcs.GetProductsForRefresh(rf.maxAge)
	if err != nil {
		log.Printf("Failed to get products for refresh: %v", err)
		return
	}

	if len(products) == 0 {
		log.Println("No products to refresh")
		return
	}

	log.Printf("Refreshing %d products", len(products))

	for _, product := range products {
		if product.LastFailedAt != nil && !product.ShouldRetry() {
			continue
		}
		rf.refreshOne(product)
	}
}

// refreshOne refreshes a single product. Imports run sequentially so the
// refresher never hammers the source mirrors.
func (rf *Refresher) refreshOne(product models.ImportedProduct) {
	log.Printf("Refreshing product %d (%s)", product.ID, product.SourceID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	updated, err := rf.funcs.RefreshProduct(ctx, product.ID)
	if err != nil {
		log.Printf("Failed to refresh product %d: %v", product.ID, err)
		return
	}

	log.Printf("Refreshed product %d: %.2f %s [%s]", updated.ID, updated.Price, updated.Currency, updated.Confidence)
}
