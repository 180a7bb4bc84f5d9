package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pipdock/backend/internal/domain"
)

// DefaultTaskExpiry is how long a completed task stays pollable before
// the store drops it.
const DefaultTaskExpiry = 24 * time.Hour

type taskEntry struct {
	task   domain.Task
	expiry *time.Timer
}

// TaskStore is the in-memory registry of background tasks. The map is
// guarded by a single RWMutex; each task is written by exactly one
// worker during its lifetime, readers always get copies.
type TaskStore struct {
	tasks       map[string]*taskEntry
	mu          sync.RWMutex
	expireAfter time.Duration
}

func NewTaskStore(expireAfter time.Duration) *TaskStore {
	if expireAfter <= 0 {
		expireAfter = DefaultTaskExpiry
	}
	return &TaskStore{
		tasks:       make(map[string]*taskEntry),
		expireAfter: expireAfter,
	}
}

// Create registers a new running task and returns its id. Never fails.
func (s *TaskStore) Create(label string, itemCount int) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	message := "preparing"
	if label != "" {
		message = "preparing " + label
	}
	s.tasks[id] = &taskEntry{
		task: domain.Task{
			ID:        id,
			Label:     label,
			Total:     itemCount,
			Status:    domain.TaskStatusRunning,
			Message:   message,
			Errors:    []string{},
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	return id
}

// Advance records count-based progress: current out of the task's
// total work items. Unknown ids are ignored on purpose, callers may
// race with expiry.
func (s *TaskStore) Advance(id string, current int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[id]
	if !ok {
		return
	}

	entry.task.Current = current
	if entry.task.Total > 0 {
		entry.task.Progress = clampPercent(current * 100 / entry.task.Total)
	} else {
		entry.task.Progress = 0
	}
	if message != "" {
		entry.task.Message = message
	}
	entry.task.UpdatedAt = time.Now()
}

// SetProgress records percent-based progress directly, the path used
// by the command runner. Unknown ids are ignored.
func (s *TaskStore) SetProgress(id string, percent int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[id]
	if !ok {
		return
	}

	entry.task.Progress = clampPercent(percent)
	if message != "" {
		entry.task.Message = message
	}
	entry.task.UpdatedAt = time.Now()
}

// Complete marks a task terminal: progress forced to 100, message
// "done", errors recorded when given. Calling it again is safe and
// re-arms the expiry timer, so a second completion can never race the
// first one's timer into a premature delete.
func (s *TaskStore) Complete(id string, errs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[id]
	if !ok {
		return
	}

	entry.task.Status = domain.TaskStatusCompleted
	entry.task.Progress = 100
	entry.task.Message = "done"
	if errs != nil {
		entry.task.Errors = errs
	}
	entry.task.UpdatedAt = time.Now()

	if entry.expiry != nil {
		entry.expiry.Stop()
	}
	entry.expiry = time.AfterFunc(s.expireAfter, func() {
		s.remove(id)
	})
}

// Get returns a copy of the task, so readers never observe writes in
// flight.
func (s *TaskStore) Get(id string) (domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, false
	}

	task := entry.task
	task.Errors = append([]string(nil), entry.task.Errors...)
	return task, true
}

// Count reports how many tasks are currently tracked.
func (s *TaskStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

func (s *TaskStore) remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[id]
	if !ok {
		return
	}
	if entry.expiry != nil {
		entry.expiry.Stop()
	}
	delete(s.tasks, id)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
