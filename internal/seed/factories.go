// Package seed creates demo data: built-in groups from a YAML fixture and
// fake users, posts, comments and follows. It is meant for development and
// tests only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"inkwell/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db       *gorm.DB
	rng      *rand.Rand
	password string
	// MaxDays spreads publication dates over this many days back from now.
	MaxDays int
}

// NewFactory creates a Factory bound to db. bcryptCost is used once to hash
// DefaultPassword for all users.
func NewFactory(db *gorm.DB, bcryptCost int) (*Factory, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{
		db: db,
		// #nosec G404: acceptable for seeding
		rng:      rand.New(rand.NewSource(seed)),
		password: string(hashed),
		MaxDays:  90,
	}, nil
}

// CreateUser persists a fake user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	user := &models.User{
		Username:  fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Email:     gofakeit.Email(),
		Password:  f.password,
		FirstName: first,
		LastName:  last,
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (f *Factory) pastDate() time.Time {
	maxDays := f.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreatePost persists a fake post by user, filed under group when not nil.
func (f *Factory) CreatePost(user *models.User, group *models.Group, overrides ...func(*models.Post)) (*models.Post, error) {
	post := &models.Post{
		Text:     gofakeit.Paragraph(1, 3, 12, "\n\n"),
		AuthorID: user.ID,
		PubDate:  f.pastDate(),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Omit(clause.Associations).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreateComment persists a fake comment by user on post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		Text:     gofakeit.Sentence(12),
		AuthorID: user.ID,
		PostID:   post.ID,
	}
	for _, override := range overrides {
		override(comment)
	}
	if err := f.db.Omit(clause.Associations).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateFollow subscribes user to author. Existing subscriptions are kept.
func (f *Factory) CreateFollow(user, author *models.User) error {
	if user.ID == author.ID {
		return nil
	}
	follow := &models.Follow{UserID: user.ID, AuthorID: author.ID}
	return f.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(follow).Error
}
