package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type feedFixture struct {
	svc      *FeedService
	author   *models.User
	reader   *models.User
	stranger *models.User
	groupA   *models.Group
	groupB   *models.Group
}

// newFeedFixture builds the standard scenario: 15 posts in group A and 3 in
// group B by one author, and a reader following that author.
func newFeedFixture(t *testing.T) (*feedFixture, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)

	f := &feedFixture{
		author:   testutil.CreateUser(t, db, "auth"),
		reader:   testutil.CreateUser(t, db, "reader"),
		stranger: testutil.CreateUser(t, db, "stranger"),
		groupA:   testutil.CreateGroup(t, db, "test-slug"),
		groupB:   testutil.CreateGroup(t, db, "test-slug_1"),
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		testutil.CreatePost(t, db, f.author, f.groupA, "post A", base.Add(time.Duration(i)*time.Minute))
	}
	for i := 0; i < 3; i++ {
		testutil.CreatePost(t, db, f.author, f.groupB, "post B", base.Add(time.Hour+time.Duration(i)*time.Minute))
	}
	testutil.Follow(t, db, f.reader, f.author)

	f.svc = NewFeedService(
		repository.NewPostRepository(db),
		repository.NewGroupRepository(db),
		repository.NewUserRepository(db),
		repository.NewFollowRepository(db),
		10,
	)
	return f, db
}

func TestFeedService_PageSizes(t *testing.T) {
	f, _ := newFeedFixture(t)
	ctx := context.Background()

	index, err := f.svc.Index(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 10, index.Len())
	index, err = f.svc.Index(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, 8, index.Len())

	group, err := f.svc.GroupFeed(ctx, "test-slug", "2")
	require.NoError(t, err)
	assert.Equal(t, 5, group.Page.Len())
	assert.Equal(t, "test-slug", group.Group.Slug)

	profile, err := f.svc.AuthorFeed(ctx, "auth", 0, "2")
	require.NoError(t, err)
	assert.Equal(t, 8, profile.Page.Len())
	assert.Equal(t, int64(18), profile.Page.Total)
}

func TestFeedService_OutOfRangePageClamps(t *testing.T) {
	f, _ := newFeedFixture(t)

	page, err := f.svc.Index(context.Background(), "99")
	require.NoError(t, err)
	assert.Equal(t, 2, page.Number)

	page, err = f.svc.Index(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
}

func TestFeedService_GroupFeedOnlyHasGroupPosts(t *testing.T) {
	f, _ := newFeedFixture(t)

	feed, err := f.svc.GroupFeed(context.Background(), "test-slug_1", "")
	require.NoError(t, err)
	require.Equal(t, 3, feed.Page.Len())
	for _, p := range feed.Page.Items {
		require.NotNil(t, p.GroupID)
		assert.Equal(t, f.groupB.ID, *p.GroupID)
	}

	_, err = f.svc.GroupFeed(context.Background(), "missing", "")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFeedService_AuthorFeedFollowing(t *testing.T) {
	f, _ := newFeedFixture(t)
	ctx := context.Background()

	profile, err := f.svc.AuthorFeed(ctx, "auth", f.reader.ID, "")
	require.NoError(t, err)
	assert.True(t, profile.Following)
	assert.False(t, profile.IsSelf)
	assert.Equal(t, int64(1), profile.FollowerCount)

	profile, err = f.svc.AuthorFeed(ctx, "auth", f.stranger.ID, "")
	require.NoError(t, err)
	assert.False(t, profile.Following)

	profile, err = f.svc.AuthorFeed(ctx, "auth", f.author.ID, "")
	require.NoError(t, err)
	assert.True(t, profile.IsSelf)
	assert.False(t, profile.Following)

	_, err = f.svc.AuthorFeed(ctx, "nobody", 0, "")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestFeedService_FollowFeed(t *testing.T) {
	f, db := newFeedFixture(t)
	ctx := context.Background()

	latest := testutil.CreatePost(t, db, f.author, f.groupB, "for followers", time.Now())

	page, err := f.svc.FollowFeed(ctx, f.reader.ID, "")
	require.NoError(t, err)
	require.NotEmpty(t, page.Items)
	assert.Equal(t, latest.ID, page.Items[0].ID)
	assert.Equal(t, int64(19), page.Total)

	page, err = f.svc.FollowFeed(ctx, f.stranger.ID, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.NumPages)

	_, err = f.svc.FollowFeed(ctx, 0, "")
	assert.True(t, models.HasCode(err, models.CodeUnauthorized))
}

func TestFeedService_CountErrorPropagates(t *testing.T) {
	posts := noopPostRepo()
	posts.countFn = func(_ context.Context, _ repository.PostFilter) (int64, error) {
		return 0, models.NewInternalError(assert.AnError)
	}
	svc := NewFeedService(posts, noopGroupRepo(), noopUserRepo(), noopFollowRepo(), 0)
	assert.Equal(t, 10, svc.PerPage())

	_, err := svc.Index(context.Background(), "1")
	assert.True(t, models.HasCode(err, models.CodeInternal))
}
