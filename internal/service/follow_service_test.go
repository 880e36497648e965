package service

import (
	"context"
	"testing"

	"inkwell/internal/events"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersByName(users ...*models.User) *userRepoStub {
	repo := noopUserRepo()
	repo.getByUsernameFn = func(_ context.Context, username string) (*models.User, error) {
		for _, u := range users {
			if u.Username == username {
				return u, nil
			}
		}
		return nil, models.NewNotFoundError("User", username)
	}
	return repo
}

func TestFollow(t *testing.T) {
	author := &models.User{ID: 1, Username: "auth"}
	follows := noopFollowRepo()
	pub := &recordingPublisher{}
	svc := NewFollowService(follows, usersByName(author), pub)
	ctx := context.Background()

	got, err := svc.Follow(ctx, 2, "auth")
	require.NoError(t, err)
	assert.Equal(t, author.ID, got.ID)
	assert.Equal(t, []string{events.SubjectFollowCreated}, pub.subjects)

	// Second follow is a no-op and publishes nothing.
	follows.createFn = func(_ context.Context, _, _ uint) (bool, error) { return false, nil }
	_, err = svc.Follow(ctx, 2, "auth")
	require.NoError(t, err)
	assert.Len(t, pub.subjects, 1)
}

func TestFollow_Rejections(t *testing.T) {
	author := &models.User{ID: 1, Username: "auth"}
	follows := noopFollowRepo()
	called := false
	follows.createFn = func(_ context.Context, _, _ uint) (bool, error) {
		called = true
		return true, nil
	}
	svc := NewFollowService(follows, usersByName(author), nil)
	ctx := context.Background()

	_, err := svc.Follow(ctx, 1, "auth")
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = svc.Follow(ctx, 0, "auth")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))

	_, err = svc.Follow(ctx, 2, "ghost")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	assert.False(t, called)
}

func TestUnfollow(t *testing.T) {
	author := &models.User{ID: 1, Username: "auth"}
	follows := noopFollowRepo()
	pub := &recordingPublisher{}
	svc := NewFollowService(follows, usersByName(author), pub)

	_, err := svc.Unfollow(context.Background(), 2, "auth")
	require.NoError(t, err)
	assert.Equal(t, []string{events.SubjectFollowDeleted}, pub.subjects)

	follows.deleteFn = func(_ context.Context, _, _ uint) (bool, error) { return false, nil }
	_, err = svc.Unfollow(context.Background(), 2, "auth")
	require.NoError(t, err)
	assert.Len(t, pub.subjects, 1)
}
