package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/pagination"
	"inkwell/internal/repository"
)

// PostPage is one page of a post feed.
type PostPage = pagination.Page[*models.Post]

// FeedService builds the paginated post listings: the site index, group
// boards, author profiles and the personal follow feed.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	perPage    int
}

// GroupFeed is a group board page.
type GroupFeed struct {
	Group *models.Group
	Page  *PostPage
}

// ProfileFeed is an author's profile page as seen by a viewer.
type ProfileFeed struct {
	Author    *models.User
	Page      *PostPage
	Following bool
	// IsSelf is set when the viewer is looking at their own profile.
	IsSelf         bool
	FollowerCount  int64
	FollowingCount int64
}

func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	perPage int,
) *FeedService {
	if perPage <= 0 {
		perPage = 10
	}
	return &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		perPage:    perPage,
	}
}

// PerPage is the configured page size.
func (s *FeedService) PerPage() int {
	return s.perPage
}

func (s *FeedService) page(ctx context.Context, filter repository.PostFilter, rawPage string) (*PostPage, error) {
	return pagination.Fetch(ctx, s.perPage, rawPage,
		func(ctx context.Context) (int64, error) {
			return s.postRepo.Count(ctx, filter)
		},
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.List(ctx, filter, limit, offset)
		},
	)
}

// Index returns a page of every post on the site, newest first.
func (s *FeedService) Index(ctx context.Context, rawPage string) (page *PostPage, err error) {
	ctx, finish := observability.StartSpan(ctx, "FeedService", "Index")
	defer func() { finish(err) }()

	return s.page(ctx, repository.PostFilter{}, rawPage)
}

// GroupFeed returns a page of the posts filed under the group with slug.
func (s *FeedService) GroupFeed(ctx context.Context, slug, rawPage string) (feed *GroupFeed, err error) {
	ctx, finish := observability.StartSpan(ctx, "FeedService", "GroupFeed")
	defer func() { finish(err) }()

	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{GroupID: group.ID}, rawPage)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: page}, nil
}

// AuthorFeed returns a page of posts written by username. viewerID is the
// logged-in user (0 for anonymous) and only affects Following and IsSelf.
func (s *FeedService) AuthorFeed(ctx context.Context, username string, viewerID uint, rawPage string) (feed *ProfileFeed, err error) {
	ctx, finish := observability.StartSpan(ctx, "FeedService", "AuthorFeed")
	defer func() { finish(err) }()

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	page, err := s.page(ctx, repository.PostFilter{AuthorID: author.ID}, rawPage)
	if err != nil {
		return nil, err
	}

	feed = &ProfileFeed{
		Author: author,
		Page:   page,
		IsSelf: viewerID != 0 && viewerID == author.ID,
	}
	if viewerID != 0 && !feed.IsSelf {
		if feed.Following, err = s.followRepo.Exists(ctx, viewerID, author.ID); err != nil {
			return nil, err
		}
	}
	if feed.FollowerCount, err = s.followRepo.CountFollowers(ctx, author.ID); err != nil {
		return nil, err
	}
	if feed.FollowingCount, err = s.followRepo.CountFollowing(ctx, author.ID); err != nil {
		return nil, err
	}
	return feed, nil
}

// FollowFeed returns a page of posts by the authors userID follows.
func (s *FeedService) FollowFeed(ctx context.Context, userID uint, rawPage string) (page *PostPage, err error) {
	ctx, finish := observability.StartSpan(ctx, "FeedService", "FollowFeed")
	defer func() { finish(err) }()

	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.page(ctx, repository.PostFilter{FollowerID: userID}, rawPage)
}
