package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("load post: %w", NewInternalError(cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeInternal))
	assert.Equal(t, "load post: Internal server error: connection reset", err.Error())
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("Post", 7), fiber.StatusNotFound},
		{"validation", NewValidationError("text is required"), fiber.StatusBadRequest},
		{"unauthorized", NewUnauthorizedError("login required"), fiber.StatusUnauthorized},
		{"forbidden", NewForbiddenError("not the author"), fiber.StatusForbidden},
		{"conflict", NewConflictError("slug taken"), fiber.StatusConflict},
		{"fiber error", fiber.ErrMethodNotAllowed, fiber.StatusMethodNotAllowed},
		{"plain error", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestPostExcerpt(t *testing.T) {
	p := Post{Text: "Тестовый пост длиннее пятнадцати символов"}
	assert.Equal(t, "Тестовый пост д", p.String())
	assert.Equal(t, "short", Post{Text: "short"}.String())
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "leo", User{Username: "leo"}.FullName())
	assert.Equal(t, "Leo Tolstoy", User{Username: "leo", FirstName: "Leo", LastName: "Tolstoy"}.FullName())
}

func TestPostHasGroup(t *testing.T) {
	id := uint(3)
	assert.False(t, Post{}.HasGroup())
	assert.False(t, Post{GroupID: &id}.HasGroup())
	assert.True(t, Post{GroupID: &id, Group: &Group{ID: id}}.HasGroup())
}
