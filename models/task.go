package models

import (
	"math/rand"
	"time"
)

// TaskStatus represents the status of an async import task
type TaskStatus string

const (
	TaskStatusQueued     TaskStatus = "queued"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// ImportTask represents an async product import task
type ImportTask struct {
	ID          string         `json:"id"`
	Reference   string         `json:"reference"`
	Status      TaskStatus     `json:"status"`
	Progress    int            `json:"progress"` // 0-100
	Message     string         `json:"message"`
	Result      *ProductRecord `json:"result,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewImportTask creates a new import task for a product reference
func NewImportTask(reference string) *ImportTask {
	return &ImportTask{
		ID:        generateTaskID(),
		Reference: reference,
		Status:    TaskStatusQueued,
		Progress:  0,
		Message:   "Task queued for processing",
		CreatedAt: time.Now(),
	}
}

// UpdateProgress updates the task progress
func (t *ImportTask) UpdateProgress(progress int, message string) {
	t.Progress = progress
	t.Message = message
}

// Start marks the task as processing
func (t *ImportTask) Start() {
	t.Status = TaskStatusProcessing
	t.Progress = 0
	t.Message = "Starting product import..."
	now := time.Now()
	t.StartedAt = &now
}

// Complete marks the task as completed with the imported record
func (t *ImportTask) Complete(result *ProductRecord) {
	t.Status = TaskStatusCompleted
	t.Progress = 100
	t.Message = "Product import completed successfully"
	t.Result = result
	now := time.Now()
	t.CompletedAt = &now
}

// Fail marks the task as failed with error
func (t *ImportTask) Fail(errMsg string) {
	t.Status = TaskStatusFailed
	t.Progress = 0
	t.Message = "Product import failed"
	t.Error = errMsg
	now := time.Now()
	t.CompletedAt = &now
}

// IsCompleted returns true if the task is in a final state
func (t *ImportTask) IsCompleted() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}

// IsActive returns true if the task is still running
func (t *ImportTask) IsActive() bool {
	return t.Status == TaskStatusQueued || t.Status == TaskStatusProcessing
}

// Duration returns the duration of the task
func (t *ImportTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}

	endTime := time.Now()
	if t.CompletedAt != nil {
		endTime = *t.CompletedAt
	}

	return endTime.Sub(*t.StartedAt)
}

// generateTaskID generates a unique task ID
func generateTaskID() string {
	return "task_" + time.Now().Format("20060102150405") + "_" + randomString(8)
}

// randomString generates a random string of specified length
func randomString(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
