package domain

import "time"

type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task tracks one long-running background operation. Progress is a
// percentage in [0,100]; Total/Current count work items for batch
// operations. Completion is terminal.
type Task struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Total     int        `json:"total"`
	Current   int        `json:"current"`
	Progress  int        `json:"progress"`
	Status    TaskStatus `json:"status"`
	Message   string     `json:"message"`
	Errors    []string   `json:"errors"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
