package models

// Group is a named community that posts may optionally belong to.
// Groups are listed in insertion (id) order.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Slug        string `gorm:"size:100;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text;not null;default:''" json:"description"`
}

func (g Group) String() string {
	return g.Title
}
