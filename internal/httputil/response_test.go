package httputil

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
)

func TestFailShape(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Get("/boom", func(c fiber.Ctx) error {
		return Fail(c, fiber.StatusNotFound, "Topic 'x' not found")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}

	var body ErrorResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal response: %v (%s)", err, raw)
	}
	if body.Error != "Topic 'x' not found" {
		t.Errorf("error = %q, want the message", body.Error)
	}
	if body.ErrorCode != 404 {
		t.Errorf("errorCode = %d, want 404", body.ErrorCode)
	}
}

func TestSuccessShape(t *testing.T) {
	t.Parallel()

	app := fiber.New()
	app.Delete("/thing", func(c fiber.Ctx) error {
		return Success(c)
	})

	resp, err := app.Test(httptest.NewRequest("DELETE", "/thing", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body["success"] != true {
		t.Errorf("body = %v, want {success: true}", body)
	}
}
