package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestPostRepository_FeedScopes(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewPostRepository(db)

	author := testutil.CreateUser(t, db, "author")
	other := testutil.CreateUser(t, db, "other")
	reader := testutil.CreateUser(t, db, "reader")
	groupA := testutil.CreateGroup(t, db, "group-a")
	groupB := testutil.CreateGroup(t, db, "group-b")

	for i := 0; i < 18; i++ {
		g := groupA
		if i >= 15 {
			g = groupB
		}
		testutil.CreatePost(t, db, author, g, "post", base.Add(time.Duration(i)*time.Minute))
	}
	testutil.CreatePost(t, db, other, nil, "ungrouped", base.Add(time.Hour))
	testutil.Follow(t, db, reader, author)

	tests := []struct {
		name   string
		filter PostFilter
		want   int64
	}{
		{"all", PostFilter{}, 19},
		{"group a", PostFilter{GroupID: groupA.ID}, 15},
		{"group b", PostFilter{GroupID: groupB.ID}, 3},
		{"author", PostFilter{AuthorID: author.ID}, 18},
		{"followed", PostFilter{FollowerID: reader.ID}, 18},
		{"follows nobody", PostFilter{FollowerID: other.ID}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)

			page2, err := repo.List(ctx, tt.filter, 10, 10)
			require.NoError(t, err)
			wantPage2 := tt.want - 10
			if wantPage2 < 0 {
				wantPage2 = 0
			}
			assert.Len(t, page2, int(wantPage2))
		})
	}
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewPostRepository(db)

	author := testutil.CreateUser(t, db, "author")
	group := testutil.CreateGroup(t, db, "cats")
	old := testutil.CreatePost(t, db, author, nil, "old", base)
	newer := testutil.CreatePost(t, db, author, group, "newer", base.Add(time.Hour))
	sameInstant := testutil.CreatePost(t, db, author, nil, "same instant", base.Add(time.Hour))

	posts, err := repo.List(ctx, PostFilter{}, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []uint{sameInstant.ID, newer.ID, old.ID}, []uint{posts[0].ID, posts[1].ID, posts[2].ID})
	assert.Equal(t, "author", posts[0].Author.Username)
	require.NotNil(t, posts[1].Group)
	assert.Equal(t, "cats", posts[1].Group.Slug)
	assert.Nil(t, posts[2].Group)
}

func TestPostRepository_UpdateAndDelete(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewPostRepository(db)
	comments := NewCommentRepository(db)

	author := testutil.CreateUser(t, db, "author")
	group := testutil.CreateGroup(t, db, "cats")
	post := testutil.CreatePost(t, db, author, group, "before", base)

	post.Text = "after"
	post.GroupID = nil
	post.Image = "posts/cat.png"
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Text)
	assert.Nil(t, got.GroupID)
	assert.Equal(t, "posts/cat.png", got.Image)
	assert.Equal(t, author.ID, got.AuthorID)
	assert.True(t, got.PubDate.Equal(base))

	require.NoError(t, comments.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "hi"}))
	require.NoError(t, repo.Delete(ctx, post.ID))

	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	left, err := comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	assert.True(t, models.HasCode(repo.Delete(ctx, post.ID), models.CodeNotFound))
	assert.True(t, models.HasCode(repo.Update(ctx, &models.Post{ID: 999, Text: "x"}), models.CodeNotFound))
}

func TestGroupRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.NewTestRedis(t)
	ctx := context.Background()
	repo := NewGroupRepository(db)
	posts := NewPostRepository(db)

	require.NoError(t, repo.Create(ctx, &models.Group{Title: "First", Slug: "first"}))
	require.NoError(t, repo.Create(ctx, &models.Group{Title: "Second", Slug: "second"}))
	err := repo.Create(ctx, &models.Group{Title: "Dup", Slug: "first"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "first", groups[0].Slug)

	g, err := repo.GetBySlug(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "Second", g.Title)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	author := testutil.CreateUser(t, db, "author")
	post := testutil.CreatePost(t, db, author, g, "survives", base)
	require.NoError(t, repo.Delete(ctx, "second"))

	reloaded, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.GroupID)

	_, err = repo.GetBySlug(ctx, "second")
	assert.True(t, models.HasCode(err, models.CodeNotFound), "cached entry must be invalidated")
	assert.True(t, models.HasCode(repo.Delete(ctx, "second"), models.CodeNotFound))
}

func TestUserRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	mr, _ := testutil.NewTestRedis(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	u := &models.User{Username: "leo", Email: "leo@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	err := repo.Create(ctx, &models.User{Username: "leo", Email: "other@example.com", Password: "hash"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "leo", got.Username)
	assert.True(t, mr.Exists("user:1"))

	byName, err := repo.GetByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, "hash", byName.Password)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFollowRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewFollowRepository(db)

	reader := testutil.CreateUser(t, db, "reader")
	author := testutil.CreateUser(t, db, "author")

	created, err := repo.Create(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Create(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, created, "second follow is a no-op")

	exists, err := repo.Exists(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	followers, err := repo.CountFollowers(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), followers)
	following, err := repo.CountFollowing(ctx, reader.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), following)

	removed, err := repo.Delete(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Delete(ctx, reader.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestCommentRepository_ListOldestFirst(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewCommentRepository(db)

	author := testutil.CreateUser(t, db, "author")
	post := testutil.CreatePost(t, db, author, nil, "post", base)

	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "first"}))
	require.NoError(t, repo.Create(ctx, &models.Comment{PostID: post.ID, AuthorID: author.ID, Text: "second"}))

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Text)
	assert.Equal(t, "author", comments[1].Author.Username)
}
