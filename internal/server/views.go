package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/web"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

const baseLayout = "layouts/base"

func newViews() *html.Engine {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")
	engine.AddFunc("date", formatDate)
	engine.AddFunc("media", media.URL)
	engine.AddFunc("join", strings.Join)
	engine.AddFunc("isGroup", func(selected *uint, id uint) bool {
		return selected != nil && *selected == id
	})
	return engine
}

func formatDate(t time.Time) string {
	return t.Format("2 January 2006")
}

// render fills in the values every page needs and renders view inside the
// base layout. The view name is exposed so pages can be identified by template.
func (s *Server) render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	if _, ok := data["user"]; !ok {
		data["user"] = currentUser(c)
	}
	data["view"] = view
	data["year"] = time.Now().Year()
	return c.Render(view, data)
}

// errorHandler renders HTML error pages for the statuses a browser can land
// on and falls back to plain text for everything else. Health probes get
// the JSON error shape.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := models.StatusCode(err)
	if strings.HasPrefix(c.Path(), "/health/") {
		return models.RespondWithError(c, code, err)
	}
	c.Status(code)

	var rerr error
	switch {
	case code == fiber.StatusNotFound:
		rerr = s.render(c, "core/404", fiber.Map{"title": "Page not found", "path": c.Path()})
	case code == fiber.StatusForbidden:
		rerr = s.render(c, "core/403", fiber.Map{"title": "Access denied", "message": errorMessage(err)})
	case code >= fiber.StatusInternalServerError:
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		rerr = s.render(c, "core/500", fiber.Map{"title": "Server error"})
	default:
		return c.SendString(errorMessage(err))
	}
	if rerr != nil {
		middleware.Logger.ErrorContext(c.UserContext(), "error page render failed", "error", rerr)
		return c.SendString(http.StatusText(code))
	}
	return nil
}

func errorMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
