package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/pipdock/backend/internal/core/services"
	"github.com/pipdock/backend/internal/domain"
	"github.com/pipdock/backend/internal/infrastructure/logger"
	"github.com/pipdock/backend/internal/transport/http/dto"
)

// streamInterval is how often the websocket stream polls the store
// between pushes.
const streamInterval = 500 * time.Millisecond

type TaskHandler struct {
	store  *services.TaskStore
	logger *logger.Logger
}

func NewTaskHandler(store *services.TaskStore, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{store: store, logger: logger}
}

func (h *TaskHandler) GetStatus(c *fiber.Ctx) error {
	taskID := c.Params("id")
	if taskID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "task id is required",
		})
	}

	task, ok := h.store.Get(taskID)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: "task not found",
		})
	}
	return c.JSON(task)
}

// Stream pushes task snapshots over a websocket until the task
// completes or disappears. The final snapshot is always delivered
// before the close frame.
func (h *TaskHandler) Stream(conn *websocket.Conn) {
	taskID := conn.Params("id")
	defer conn.Close()

	for {
		task, ok := h.store.Get(taskID)
		if !ok {
			_ = conn.WriteJSON(dto.ErrorResponse{Error: "task not found"})
			return
		}

		if err := conn.WriteJSON(task); err != nil {
			h.logger.Warnw("task_stream_write_failed", "task_id", taskID, "error", err)
			return
		}

		if task.Status == domain.TaskStatusCompleted {
			return
		}
		time.Sleep(streamInterval)
	}
}
