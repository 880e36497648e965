package service

import (
	"context"
	"time"

	"inkwell/internal/events"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// FollowService manages subscriptions between readers and authors.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	publisher  events.Publisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	publisher events.Publisher,
) *FollowService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		publisher:  publisher,
	}
}

func (s *FollowService) resolve(ctx context.Context, userID uint, username string) (*models.User, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.userRepo.GetByUsername(ctx, username)
}

// Follow subscribes userID to the author named username. Following an author
// twice is a no-op; following yourself is rejected.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (author *models.User, err error) {
	ctx, finish := observability.StartSpan(ctx, "FollowService", "Follow")
	defer func() { finish(err) }()

	author, err = s.resolve(ctx, userID, username)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}

	created, err := s.followRepo.Create(ctx, userID, author.ID)
	if err != nil {
		return nil, err
	}
	if created {
		observability.FollowChanges.WithLabelValues("follow").Inc()
		publish(ctx, s.publisher, events.SubjectFollowCreated, events.FollowEvent{
			UserID:   userID,
			AuthorID: author.ID,
			At:       time.Now().UTC(),
		})
	}
	return author, nil
}

// Unfollow removes the subscription if there is one.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (author *models.User, err error) {
	ctx, finish := observability.StartSpan(ctx, "FollowService", "Unfollow")
	defer func() { finish(err) }()

	author, err = s.resolve(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	removed, err := s.followRepo.Delete(ctx, userID, author.ID)
	if err != nil {
		return nil, err
	}
	if removed {
		observability.FollowChanges.WithLabelValues("unfollow").Inc()
		publish(ctx, s.publisher, events.SubjectFollowDeleted, events.FollowEvent{
			UserID:   userID,
			AuthorID: author.ID,
			At:       time.Now().UTC(),
		})
	}
	return author, nil
}
