package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"time"

	"dropmark/config"
	"dropmark/database"
	"dropmark/handlers"
	"dropmark/middleware"
	"dropmark/pipeline"
	"dropmark/repository"
	"dropmark/scheduler"
	"dropmark/services"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// Metrics struct for basic monitoring
type Metrics struct {
	Timestamp     time.Time `json:"timestamp"`
	Uptime        string    `json:"uptime"`
	Goroutines    int       `json:"goroutines"`
	MemoryUsage   string    `json:"memory_usage"`
	ImportedCount int       `json:"imported_count"`
	NeedsReview   int       `json:"needs_review"`
	MarkupPercent float64   `json:"markup_percent"`
}

var startTime = time.Now()

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	if err := database.InitDatabase(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	// Configuration
	sourceConfig := config.LoadSourceConfig()
	apiConfig := config.DefaultAPIConfig()
	log.Printf("Import markup: %.0f%%, floor price: %.2f", sourceConfig.MarkupPercent, sourceConfig.FloorPrice)

	// Wire the import pipeline and its collaborators
	productRepo := repository.NewProductRepository()
	importer := pipeline.NewImporter(sourceConfig)
	importService := services.NewImportService(importer, productRepo)

	h := handlers.NewHandlers(importService, productRepo, apiConfig.RefreshWorkers)
	defer h.Close()

	// Start the scheduled product refresher
	refresher := scheduler.NewRefresher(&scheduler.RefreshFuncs{
		GetProductsForRefresh: productRepo.GetProductsForRefresh,
		RefreshProduct:        importService.RefreshProduct,
	})
	refresher.Start()
	defer refresher.Stop()

	// Setup router
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(apiConfig))
	r.Use(middleware.APIKeyMiddleware(false)) // API key not required for health checks

	// Health and monitoring endpoints (no auth required)
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/metrics", getMetrics).Methods("GET")
	r.HandleFunc("/status", getStatus).Methods("GET")

	// API v1 routes with authentication
	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.Use(middleware.APIKeyMiddleware(apiConfig.RequireAPIKey))

	// Product import and management
	apiV1.HandleFunc("/products/import", h.ImportProduct).Methods("POST")
	apiV1.HandleFunc("/products/import-async", h.ImportProductAsync).Methods("POST")
	apiV1.HandleFunc("/products", h.GetProducts).Methods("GET")
	apiV1.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	apiV1.HandleFunc("/products/{id}", h.DeleteProduct).Methods("DELETE")
	apiV1.HandleFunc("/products/{id}/refresh", h.RefreshProduct).Methods("POST")
	apiV1.HandleFunc("/products/{id}/history", h.GetImportHistory).Methods("GET")

	// Catalog search
	apiV1.HandleFunc("/search", h.SearchProducts).Methods("GET")

	// Task management
	apiV1.HandleFunc("/tasks/stats", h.GetTaskStats).Methods("GET")
	apiV1.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")

	// CORS configuration
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{allowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	host := os.Getenv("HOST")
	if host == "" {
		host = "0.0.0.0"
	}

	log.Printf("🌐 Server starting on port %s", port)
	log.Printf("   POST /api/v1/products/import - Import a product by URL or id")
	log.Printf("   POST /api/v1/products/import-async - Import asynchronously")
	log.Printf("   GET  /api/v1/products - List imported products")
	log.Printf("   GET  /api/v1/search - Search the source catalog")

	log.Fatal(http.ListenAndServe(host+":"+port, c.Handler(r)))
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"service":     "dropmark",
		"status":      "healthy",
		"timestamp":   time.Now(),
		"version":     "1.0.0",
		"api_version": "v1",
		"endpoints": map[string]string{
			"health":  "/health",
			"metrics": "/metrics",
			"status":  "/status",
			"api_v1":  "/api/v1",
		},
	}
	writeJSON(w, http.StatusOK, response)
}

func getMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	productRepo := repository.NewProductRepository()
	products, err := productRepo.GetProducts()
	imported, review := 0, 0
	if err == nil {
		imported = len(products)
		for _, p := range products {
			if p.NeedsReview {
				review++
			}
		}
	}

	metricsData := Metrics{
		Timestamp:     time.Now(),
		Uptime:        time.Since(startTime).String(),
		Goroutines:    runtime.NumGoroutine(),
		MemoryUsage:   fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
		ImportedCount: imported,
		NeedsReview:   review,
		MarkupPercent: config.LoadSourceConfig().MarkupPercent,
	}

	writeJSON(w, http.StatusOK, metricsData)
}

func getStatus(w http.ResponseWriter, r *http.Request) {
	productRepo := repository.NewProductRepository()
	products, err := productRepo.GetProducts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}

	review := 0
	for _, p := range products {
		if p.NeedsReview {
			review++
		}
	}

	status := map[string]interface{}{
		"timestamp":      time.Now(),
		"uptime":         time.Since(startTime).String(),
		"total_products": len(products),
		"needs_review":   review,
		"system_health":  "healthy",
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
