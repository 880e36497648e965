package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxHandlerAddsContextValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(&ctxHandler{slog.NewTextHandler(&buf, nil)}).With("component", "feed")

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, uint(42))
	logger.InfoContext(ctx, "page rendered")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "user_id=42")
	assert.Contains(t, out, "component=feed")
}

func TestContextMiddlewarePropagatesLocals(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "abc")
		c.Locals("userID", uint(3))
		return c.Next()
	})
	app.Use(ContextMiddleware())

	var gotRID string
	var gotUID uint
	app.Get("/", func(c *fiber.Ctx) error {
		gotRID, _ = c.UserContext().Value(RequestIDKey).(string)
		gotUID, _ = c.UserContext().Value(UserIDKey).(uint)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc", gotRID)
	assert.Equal(t, uint(3), gotUID)
}

func TestStructuredLoggerUsesErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = slog.New(slog.NewTextHandler(&buf, nil))
	t.Cleanup(func() { Logger = prev })

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(models.StatusCode(err)).SendString(err.Error())
		},
	})
	app.Use(StructuredLogger())
	app.Get("/missing", func(c *fiber.Ctx) error {
		return models.NewNotFoundError("Group", "cats")
	})
	app.Get("/broken", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "Group cats not found")
	assert.NotContains(t, out, "level=ERROR")

	buf.Reset()
	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/broken", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	out = buf.String()
	assert.Contains(t, out, "status=500")
	assert.NotContains(t, out, "level=ERROR")
	assert.NotContains(t, out, "boom")
}
