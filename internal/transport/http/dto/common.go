package dto

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// TaskAccepted is the 202 body for every async mutation.
type TaskAccepted struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}
