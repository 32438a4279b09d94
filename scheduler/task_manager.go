package scheduler

import (
	"log"
	"sync"
	"time"

	"dropmark/models"
)

// ImportFunc runs one product import for a reference
type ImportFunc func(reference string) (*models.ProductRecord, error)

// TaskManager manages async product import tasks
type TaskManager struct {
	tasks      map[string]*models.ImportTask
	taskQueue  chan *models.ImportTask
	workers    int
	maxWorkers int
	importFunc ImportFunc
	mutex      sync.RWMutex
	stopChan   chan bool
}

// NewTaskManager creates a new task manager
func NewTaskManager(importFunc ImportFunc, maxWorkers int) *TaskManager {
	tm := &TaskManager{
		tasks:      make(map[string]*models.ImportTask),
		taskQueue:  make(chan *models.ImportTask, 100),
		workers:    0,
		maxWorkers: maxWorkers,
		importFunc: importFunc,
		stopChan:   make(chan bool),
	}

	go tm.processTasks()
	log.Printf("🚀 Task manager started with %d max workers", maxWorkers)
	return tm
}

// SubmitTask submits a new import task for a product reference
func (tm *TaskManager) SubmitTask(reference string) *models.ImportTask {
	task := models.NewImportTask(reference)

	tm.mutex.Lock()
	tm.tasks[task.ID] = task
	tm.mutex.Unlock()

	select {
	case tm.taskQueue <- task:
		log.Printf("📝 Task %s submitted for reference %s", task.ID, reference)
	default:
		task.Fail("Task queue is full")
		log.Printf("❌ Failed to submit task %s - queue full", task.ID)
	}

	return task
}

// GetTask returns a task by ID
func (tm *TaskManager) GetTask(taskID string) (*models.ImportTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	task, exists := tm.tasks[taskID]
	return task, exists
}

// GetActiveTasks returns all tasks that are still queued or running
func (tm *TaskManager) GetActiveTasks() []*models.ImportTask {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	var activeTasks []*models.ImportTask
	for _, task := range tm.tasks {
		if task.IsActive() {
			activeTasks = append(activeTasks, task)
		}
	}

	return activeTasks
}

// CleanupOldTasks removes completed tasks older than the specified duration
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for taskID, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, taskID)
			log.Printf("🧹 Cleaned up old task: %s", taskID)
		}
	}
}

// processTasks dispatches queued tasks to workers
func (tm *TaskManager) processTasks() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case task := <-tm.taskQueue:
			if tm.workers < tm.maxWorkers {
				tm.workers++
				go tm.worker(task)
			} else {
				// Re-queue the task once capacity frees up
				go func() {
					time.Sleep(1 * time.Second)
					select {
					case tm.taskQueue <- task:
						log.Printf("🔄 Re-queued task %s (max workers reached)", task.ID)
					default:
						task.Fail("System overloaded, unable to process task")
						log.Printf("❌ Failed to re-queue task %s", task.ID)
					}
				}()
			}

		case <-ticker.C:
			tm.CleanupOldTasks(1 * time.Hour)

		case <-tm.stopChan:
			log.Println("🛑 Task manager stopped")
			return
		}
	}
}

// worker processes a single import task
func (tm *TaskManager) worker(task *models.ImportTask) {
	defer func() {
		tm.workers--
	}()

	log.Printf("👷 Worker started processing task %s for %s", task.ID, task.Reference)
	task.Start()
	task.UpdateProgress(10, "Resolving product reference...")

	record, err := tm.importFunc(task.Reference)
	if err != nil {
		task.Fail("Product import failed: " + err.Error())
		return
	}

	task.Complete(record)
	log.Printf("✅ Task %s completed in %v", task.ID, task.Duration())
}

// Stop stops the task manager
func (tm *TaskManager) Stop() {
	close(tm.stopChan)
	log.Println("🛑 Task manager stopping...")
}

// GetStats returns task manager statistics
func (tm *TaskManager) GetStats() map[string]interface{} {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	stats := map[string]interface{}{
		"total_tasks":    len(tm.tasks),
		"active_workers": tm.workers,
		"max_workers":    tm.maxWorkers,
		"queue_size":     len(tm.taskQueue),
	}

	statusCounts := make(map[string]int)
	for _, task := range tm.tasks {
		statusCounts[string(task.Status)]++
	}
	stats["tasks_by_status"] = statusCounts

	return stats
}
