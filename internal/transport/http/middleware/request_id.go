package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestIDKey is the Locals key the request id is stored under.
const RequestIDKey = "request_id"

// RequestID attaches an id to every request: taken from the configured
// header when the client sent one, generated otherwise.
func RequestID(headerName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reqID string
		if headerName != "" {
			reqID = c.Get(headerName)
		}
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals(RequestIDKey, reqID)
		return c.Next()
	}
}
