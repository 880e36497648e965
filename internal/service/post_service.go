package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/events"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/validation"
)

// ImageStore persists post images. *media.Store implements it.
type ImageStore interface {
	Save(ctx context.Context, filename string, content []byte) (string, error)
	Delete(rel string) error
}

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	groupRepo   repository.GroupRepository
	images      ImageStore
	publisher   events.Publisher
}

// Upload is a file submitted with a form.
type Upload struct {
	Filename string
	Content  []byte
}

type CreatePostInput struct {
	AuthorID uint
	Text     string
	GroupID  *uint
	Image    *Upload
}

type UpdatePostInput struct {
	UserID  uint
	PostID  uint
	Text    string
	GroupID *uint
	// Image replaces the current image when set.
	Image *Upload
	// ClearImage removes the current image. Ignored when Image is set.
	ClearImage bool
}

// PostDetail is everything the post page shows.
type PostDetail struct {
	Post            *models.Post
	Comments        []*models.Comment
	AuthorPostCount int64
	CanEdit         bool
}

func NewPostService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	groupRepo repository.GroupRepository,
	images ImageStore,
	publisher events.Publisher,
) *PostService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PostService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		groupRepo:   groupRepo,
		images:      images,
		publisher:   publisher,
	}
}

// ListGroups returns every group for the group select.
func (s *PostService) ListGroups(ctx context.Context) ([]*models.Group, error) {
	return s.groupRepo.List(ctx)
}

// GetPost loads a post with its comments, oldest first. viewerID (0 for
// anonymous) decides CanEdit.
func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (detail *PostDetail, err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "GetPost")
	defer func() { finish(err) }()

	post, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	count, err := s.postRepo.Count(ctx, repository.PostFilter{AuthorID: post.AuthorID})
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		Post:            post,
		Comments:        comments,
		AuthorPostCount: count,
		CanEdit:         viewerID != 0 && viewerID == post.AuthorID,
	}, nil
}

// GetEditablePost returns the post if userID is its author.
func (s *PostService) GetEditablePost(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}
	return post, nil
}

func (s *PostService) checkGroup(ctx context.Context, groupID *uint) error {
	if groupID == nil {
		return nil
	}
	if _, err := s.groupRepo.GetByID(ctx, *groupID); err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return models.NewFieldError("group", "Select a valid choice. That choice is not one of the available choices.")
		}
		return err
	}
	return nil
}

func (s *PostService) saveImage(ctx context.Context, upload *Upload) (string, error) {
	if upload == nil || len(upload.Content) == 0 {
		return "", nil
	}
	if s.images == nil {
		return "", models.NewFieldError("image", "Image uploads are disabled")
	}
	rel, err := s.images.Save(ctx, upload.Filename, upload.Content)
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		return "", models.NewFieldError("image", appErr.Message)
	}
	return rel, err
}

func (s *PostService) dropImage(ctx context.Context, rel string) {
	if rel == "" || s.images == nil {
		return
	}
	if err := s.images.Delete(rel); err != nil {
		slog.WarnContext(ctx, "failed to remove post image", "image", rel, "err", err)
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "CreatePost")
	defer func() { finish(err) }()

	if in.AuthorID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := validation.ValidateText("Text", in.Text); err != nil {
		return nil, models.NewFieldError("text", err.Error())
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	image, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	post = &models.Post{
		Text:     in.Text,
		AuthorID: in.AuthorID,
		GroupID:  in.GroupID,
		Image:    image,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		s.dropImage(ctx, image)
		return nil, err
	}
	observability.PostsCreated.Inc()

	publish(ctx, s.publisher, events.SubjectPostCreated, postEvent(post))
	return post, nil
}

// UpdatePost changes text, group and image. Author and publication date are kept.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (post *models.Post, err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "UpdatePost")
	defer func() { finish(err) }()

	post, err = s.GetEditablePost(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateText("Text", in.Text); err != nil {
		return nil, models.NewFieldError("text", err.Error())
	}
	if err := s.checkGroup(ctx, in.GroupID); err != nil {
		return nil, err
	}

	oldImage := post.Image
	newImage, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	post.Text = in.Text
	post.GroupID = in.GroupID
	switch {
	case newImage != "":
		post.Image = newImage
	case in.ClearImage:
		post.Image = ""
	}
	// The preloaded group no longer matches GroupID.
	post.Group = nil

	if err := s.postRepo.Update(ctx, post); err != nil {
		s.dropImage(ctx, newImage)
		return nil, err
	}
	if post.Image != oldImage {
		s.dropImage(ctx, oldImage)
	}

	publish(ctx, s.publisher, events.SubjectPostUpdated, postEvent(post))
	return post, nil
}

// DeletePost removes a post, its comments and its image. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, postID, userID uint) (err error) {
	ctx, finish := observability.StartSpan(ctx, "PostService", "DeletePost")
	defer func() { finish(err) }()

	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != userID {
		return models.NewForbiddenError("Only the author can delete this post")
	}
	if err := s.postRepo.Delete(ctx, post.ID); err != nil {
		return err
	}
	s.dropImage(ctx, post.Image)

	publish(ctx, s.publisher, events.SubjectPostDeleted, postEvent(post))
	return nil
}

func postEvent(post *models.Post) events.PostEvent {
	return events.PostEvent{
		ID:       post.ID,
		AuthorID: post.AuthorID,
		GroupID:  post.GroupID,
		Excerpt:  post.Excerpt(80),
		HasImage: post.Image != "",
		At:       time.Now().UTC(),
	}
}

// publish hands an event to the broker. Delivery failures are logged and
// never fail the request that produced the event.
func publish(ctx context.Context, p events.Publisher, subject string, payload any) {
	if err := p.Publish(ctx, subject, payload); err != nil {
		slog.WarnContext(ctx, "failed to publish event", "subject", subject, "err", err)
	}
}
