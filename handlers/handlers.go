package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"dropmark/models"
	"dropmark/pipeline"
	"dropmark/repository"
	"dropmark/scheduler"
	"dropmark/services"

	"github.com/gorilla/mux"
)

type Handlers struct {
	service     *services.ImportService
	repo        *repository.ProductRepository
	taskManager *scheduler.TaskManager
}

func NewHandlers(service *services.ImportService, repo *repository.ProductRepository, maxWorkers int) *Handlers {
	h := &Handlers{
		service: service,
		repo:    repo,
	}

	h.taskManager = scheduler.NewTaskManager(func(reference string) (*models.ProductRecord, error) {
		record, err := service.ImportRecord(context.Background(), reference)
		if err != nil {
			return nil, err
		}
		if _, err := service.SaveRecord(record); err != nil {
			return nil, err
		}
		return record, nil
	}, maxWorkers)

	return h
}

// Close shuts down the handlers' task manager
func (h *Handlers) Close() {
	if h.taskManager != nil {
		h.taskManager.Stop()
	}
}

// ImportProduct handles POST /products/import
func (h *Handlers) ImportProduct(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Reference) == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	product, err := h.service.ImportProduct(r.Context(), req.Reference)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, product)
}

// ImportProductAsync handles POST /products/import-async
func (h *Handlers) ImportProductAsync(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Reference) == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	task := h.taskManager.SubmitTask(req.Reference)
	writeJSON(w, http.StatusAccepted, task)
}

// GetProducts handles GET /products
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.GetProducts()
	if err != nil {
		log.Printf("Failed to get products: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get products")
		return
	}

	if products == nil {
		products = []models.ImportedProduct{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/{id}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.repo.GetProductByID(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{id}
func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteProduct(id); err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RefreshProduct handles POST /products/{id}/refresh
func (h *Handlers) RefreshProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.service.RefreshProduct(r.Context(), id)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

// GetImportHistory handles GET /products/{id}/history
func (h *Handlers) GetImportHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	history, err := h.repo.GetImportHistory(id)
	if err != nil {
		log.Printf("Failed to get import history: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to get import history")
		return
	}

	if history == nil {
		history = []models.ImportHistory{}
	}
	writeJSON(w, http.StatusOK, history)
}

// SearchProducts handles GET /search
func (h *Handlers) SearchProducts(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "q query parameter is required")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	opts := models.SearchOptions{
		Page:     page,
		Sort:     r.URL.Query().Get("sort"),
		Locale:   r.URL.Query().Get("locale"),
		Currency: r.URL.Query().Get("currency"),
	}

	results := h.service.Search(r.Context(), keyword, opts)
	if results == nil {
		results = []models.SearchResultItem{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"keyword": keyword,
		"count":   len(results),
		"items":   results,
	})
}

// GetTaskStatus handles GET /tasks/{taskId}
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	task, exists := h.taskManager.GetTask(taskID)
	if !exists {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// GetTaskStats handles GET /tasks/stats
func (h *Handlers) GetTaskStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.taskManager.GetStats())
}

// pathID parses the {id} path variable, writing a 400 on failure
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid product ID")
		return 0, false
	}
	return id, true
}

// writePipelineError maps pipeline failures to HTTP statuses. Only the two
// fatal pipeline errors reach here; degraded records are normal responses.
func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrUnresolvableReference):
		writeError(w, http.StatusBadRequest, "Could not derive a product identifier from the reference")
	case errors.Is(err, pipeline.ErrAllMirrorsFailed):
		writeError(w, http.StatusBadGateway, "All source mirrors are unreachable, try again later")
	default:
		log.Printf("Import failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Import failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
