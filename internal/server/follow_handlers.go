package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// FollowIndex handles GET /follow/: posts by the authors the viewer follows.
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.FollowFeed(c.UserContext(), viewerID(c), c.Query("page"))
	if err != nil {
		return err
	}
	return s.render(c, "posts/follow", fiber.Map{
		"title":    "Following",
		"page_obj": page,
	})
}

// ProfileFollow handles GET /profile/:username/follow/. Following yourself
// or an author you already follow is a no-op.
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Follow(c.UserContext(), viewerID(c), username); err != nil {
		if !models.HasCode(err, models.CodeValidation) {
			return err
		}
	}
	return c.Redirect(profileURL(username))
}

// ProfileUnfollow handles GET /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Unfollow(c.UserContext(), viewerID(c), username); err != nil {
		if !models.HasCode(err, models.CodeValidation) {
			return err
		}
	}
	return c.Redirect(profileURL(username))
}
