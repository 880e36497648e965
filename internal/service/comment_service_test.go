package service

import (
	"context"
	"testing"

	"inkwell/internal/events"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	comments := noopCommentRepo()
	var stored *models.Comment
	comments.createFn = func(_ context.Context, c *models.Comment) error {
		c.ID = 11
		stored = c
		return nil
	}
	pub := &recordingPublisher{}
	svc := NewCommentService(comments, noopPostRepo(), pub)

	comment, err := svc.AddComment(context.Background(), AddCommentInput{UserID: 2, PostID: 5, Text: "Nice post"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, uint(11), comment.ID)
	assert.Equal(t, uint(5), comment.PostID)
	assert.Equal(t, uint(2), comment.AuthorID)
	assert.Equal(t, []string{events.SubjectCommentCreated}, pub.subjects)
}

func TestAddComment_Rejections(t *testing.T) {
	posts := noopPostRepo()
	posts.getByIDFn = func(_ context.Context, id uint) (*models.Post, error) {
		if id == 404 {
			return nil, models.NewNotFoundError("Post", id)
		}
		return &models.Post{ID: id}, nil
	}
	comments := noopCommentRepo()
	created := 0
	comments.createFn = func(_ context.Context, _ *models.Comment) error {
		created++
		return nil
	}
	svc := NewCommentService(comments, posts, nil)
	ctx := context.Background()

	_, err := svc.AddComment(ctx, AddCommentInput{PostID: 1, Text: "anon"})
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	_, err = svc.AddComment(ctx, AddCommentInput{UserID: 1, PostID: 404, Text: "lost"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = svc.AddComment(ctx, AddCommentInput{UserID: 1, PostID: 1, Text: ""})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	assert.Zero(t, created)
}
