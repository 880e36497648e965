package server

import (
	"io"
	"strconv"

	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// parseID reads a positive numeric route parameter. Anything else is a
// missing page.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

func postURL(id uint) string {
	return "/posts/" + strconv.FormatUint(uint64(id), 10) + "/"
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

// readUpload returns the file posted as field, or nil when none was sent.
func (s *Server) readUpload(c *fiber.Ctx, field string) (*service.Upload, error) {
	fh, err := c.FormFile(field)
	if err != nil || fh.Size == 0 {
		return nil, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadBytes()+1))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &service.Upload{Filename: fh.Filename, Content: content}, nil
}

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.Index(c.UserContext(), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/index", fiber.Map{
		"title":    "Latest posts",
		"page_obj": page,
	})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.GroupFeed(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/group_list", fiber.Map{
		"title":    feed.Group.Title,
		"group":    feed.Group,
		"page_obj": feed.Page,
	})
}

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.AuthorFeed(c.UserContext(), c.Params("username"), viewerID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/profile", fiber.Map{
		"title":           "Profile of " + feed.Author.FullName(),
		"author":          feed.Author,
		"page_obj":        feed.Page,
		"following":       feed.Following,
		"is_self":         feed.IsSelf,
		"follower_count":  feed.FollowerCount,
		"following_count": feed.FollowingCount,
	})
}

// PostDetail handles GET /posts/:id/
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	detail, err := s.postService.GetPost(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}
	return s.render(c, "posts/post_detail", fiber.Map{
		"title":             "Post " + detail.Post.String(),
		"post":              detail.Post,
		"comments":          detail.Comments,
		"author_post_count": detail.AuthorPostCount,
		"can_edit":          detail.CanEdit,
	})
}

func (s *Server) renderPostForm(c *fiber.Ctx, form *service.PostForm) error {
	groups, err := s.postService.ListGroups(c.UserContext())
	if err != nil {
		return err
	}
	title := "New post"
	if form.IsEdit {
		title = "Edit post"
	}
	return s.render(c, "posts/create_post", fiber.Map{
		"title":   title,
		"form":    form,
		"groups":  groups,
		"is_edit": form.IsEdit,
	})
}

// PostCreateForm handles GET /create/
func (s *Server) PostCreateForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, service.NewCreateForm())
}

// PostCreate handles POST /create/. On success the author lands on their profile.
func (s *Server) PostCreate(c *fiber.Ctx) error {
	user := currentUser(c)
	form := service.NewCreateForm()
	form.Text = c.FormValue("text")
	form.SetGroup(c.FormValue("group"))

	upload, err := s.readUpload(c, "image")
	if err != nil {
		return err
	}

	if form.Valid() {
		_, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
			AuthorID: user.ID,
			Text:     form.Text,
			GroupID:  form.GroupID,
			Image:    upload,
		})
		if err == nil {
			return c.Redirect(profileURL(user.Username))
		}
		if !models.HasCode(err, models.CodeValidation) {
			return err
		}
		form.BindError(err)
	}
	return s.renderPostForm(c, form)
}

// PostEditForm handles GET /posts/:id/edit/. Non-authors are sent back to the post.
func (s *Server) PostEditForm(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := s.postService.GetEditablePost(c.UserContext(), id, viewerID(c))
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(id))
		}
		return err
	}
	return s.renderPostForm(c, service.NewEditForm(post))
}

// PostEdit handles POST /posts/:id/edit/
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.UserContext()
	post, err := s.postService.GetEditablePost(ctx, id, viewerID(c))
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(id))
		}
		return err
	}

	form := service.NewEditForm(post)
	form.Text = c.FormValue("text")
	form.SetGroup(c.FormValue("group"))

	upload, err := s.readUpload(c, "image")
	if err != nil {
		return err
	}

	if form.Valid() {
		_, err := s.postService.UpdatePost(ctx, service.UpdatePostInput{
			UserID:     viewerID(c),
			PostID:     id,
			Text:       form.Text,
			GroupID:    form.GroupID,
			Image:      upload,
			ClearImage: c.FormValue("image-clear") != "",
		})
		if err == nil {
			return c.Redirect(postURL(id))
		}
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(id))
		}
		if !models.HasCode(err, models.CodeValidation) {
			return err
		}
		form.BindError(err)
	}
	return s.renderPostForm(c, form)
}

// AddComment handles /posts/:id/comment/. The visitor always returns to the
// post; an empty comment is dropped without a message.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if c.Method() == fiber.MethodPost {
		_, err = s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
			UserID: viewerID(c),
			PostID: id,
			Text:   c.FormValue("text"),
		})
		if err != nil && !models.HasCode(err, models.CodeValidation) {
			return err
		}
	}
	return c.Redirect(postURL(id))
}

// PostDelete handles POST /posts/:id/delete/
func (s *Server) PostDelete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	err = s.postService.DeletePost(c.UserContext(), id, viewerID(c))
	if err != nil {
		if models.HasCode(err, models.CodeForbidden) {
			return c.Redirect(postURL(id))
		}
		return err
	}
	return c.Redirect(profileURL(currentUser(c).Username))
}
