// Package events publishes domain events (post created, follow changed, ...)
// to NATS so other services can react to activity on the blog.
package events

import (
	"context"
	"time"
)

// Subjects used on the broker.
const (
	SubjectPostCreated    = "inkwell.post.created"
	SubjectPostUpdated    = "inkwell.post.updated"
	SubjectPostDeleted    = "inkwell.post.deleted"
	SubjectCommentCreated = "inkwell.comment.created"
	SubjectFollowCreated  = "inkwell.follow.created"
	SubjectFollowDeleted  = "inkwell.follow.deleted"
)

// PostEvent describes a post lifecycle change.
type PostEvent struct {
	ID       uint      `json:"id"`
	AuthorID uint      `json:"author_id"`
	GroupID  *uint     `json:"group_id,omitempty"`
	Excerpt  string    `json:"excerpt,omitempty"`
	HasImage bool      `json:"has_image"`
	At       time.Time `json:"at"`
}

// CommentEvent describes a new comment.
type CommentEvent struct {
	ID       uint      `json:"id"`
	PostID   uint      `json:"post_id"`
	AuthorID uint      `json:"author_id"`
	At       time.Time `json:"at"`
}

// FollowEvent describes a subscription being created or removed.
type FollowEvent struct {
	UserID   uint      `json:"user_id"`
	AuthorID uint      `json:"author_id"`
	At       time.Time `json:"at"`
}

// Publisher hands events to a broker. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

// Noop discards every event. It is used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }

func (Noop) Close() {}
