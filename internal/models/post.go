package models

import "time"

// Post is a short text entry by an author, optionally filed under a group
// and optionally carrying an image. Feeds list posts newest first.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"autoCreateTime;index:idx_posts_pub_date;not null" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	// GroupID is cleared when the group is deleted.
	GroupID *uint  `gorm:"index" json:"group_id,omitempty"`
	Group   *Group `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image is a path relative to the media root, e.g. "posts/cat.png".
	Image    string    `gorm:"size:255;not null;default:''" json:"image,omitempty"`
	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"comments,omitempty"`
}

// Excerpt returns at most n runes of the post text.
func (p Post) Excerpt(n int) string {
	r := []rune(p.Text)
	if len(r) <= n {
		return p.Text
	}
	return string(r[:n])
}

func (p Post) String() string {
	return p.Excerpt(15)
}

// HasGroup reports whether the post is filed under a group.
func (p Post) HasGroup() bool {
	return p.GroupID != nil && p.Group != nil
}
