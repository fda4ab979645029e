package httputil

import "github.com/gofiber/fiber/v3"

// ErrorResponse is the wire shape of every failed API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"errorCode"`
}

// JSON sends a 200 response with the given payload.
func JSON(c fiber.Ctx, data any) error {
	return c.JSON(data)
}

// JSONStatus sends a response with a custom status code.
func JSONStatus(c fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(data)
}

// Fail sends a JSON error response with the given status and message.
func Fail(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error:     message,
		ErrorCode: status,
	})
}

// Success sends the `{"success": true}` acknowledgement used by delete and
// update endpoints that have no entity to return.
func Success(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}
