package service

import (
	"context"
	"time"

	"inkwell/internal/events"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	publisher   events.Publisher
}

type AddCommentInput struct {
	UserID uint
	PostID uint
	Text   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	publisher events.Publisher,
) *CommentService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		publisher:   publisher,
	}
}

// AddComment attaches a comment to an existing post.
func (s *CommentService) AddComment(ctx context.Context, in AddCommentInput) (comment *models.Comment, err error) {
	ctx, finish := observability.StartSpan(ctx, "CommentService", "AddComment")
	defer func() { finish(err) }()

	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if _, err := s.postRepo.GetByID(ctx, in.PostID); err != nil {
		return nil, err
	}
	if err := validation.ValidateText("Text", in.Text); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	comment = &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.UserID,
		Text:     in.Text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	observability.CommentsCreated.Inc()

	publish(ctx, s.publisher, events.SubjectCommentCreated, events.CommentEvent{
		ID:       comment.ID,
		PostID:   comment.PostID,
		AuthorID: comment.AuthorID,
		At:       time.Now().UTC(),
	})
	return comment, nil
}
