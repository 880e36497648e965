package seed

import (
	"fmt"
	"log"

	"inkwell/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options sizes a seeding run.
type Options struct {
	Users    int
	Posts    int
	Comments int
	// Follows is the number of authors each user follows.
	Follows int
	Clean   bool
	// Groups overrides the embedded group fixtures.
	Groups []GroupFixture
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

// Summary reports what a run created.
type Summary struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seed populates the database with groups and fake activity.
func Seed(db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Clean {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	fixtures := opts.Groups
	if fixtures == nil {
		fixtures = DefaultGroups()
	}
	groups, err := Groups(db, fixtures)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Groups: len(groups)}
	log.Printf("seed: %d groups ready", len(groups))

	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	f, err := NewFactory(db, cost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	summary.Users = len(users)
	if len(users) == 0 {
		return summary, nil
	}

	posts := make([]*models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[f.rng.Intn(len(users))]
		// Roughly one post in four is left without a group.
		var group *models.Group
		if len(groups) > 0 && f.rng.Intn(4) != 0 {
			group = &groups[f.rng.Intn(len(groups))]
		}
		p, err := f.CreatePost(author, group)
		if err != nil {
			return nil, fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, p)
	}
	summary.Posts = len(posts)

	if len(posts) > 0 {
		for i := 0; i < opts.Comments; i++ {
			if _, err := f.CreateComment(users[f.rng.Intn(len(users))], posts[f.rng.Intn(len(posts))]); err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			summary.Comments++
		}
	}

	for _, u := range users {
		for _, idx := range f.rng.Perm(len(users))[:min(opts.Follows, len(users))] {
			author := users[idx]
			if author.ID == u.ID {
				continue
			}
			if err := f.CreateFollow(u, author); err != nil {
				return nil, fmt.Errorf("create follow: %w", err)
			}
			summary.Follows++
		}
	}

	log.Printf("seed: %d users, %d posts, %d comments, %d follows",
		summary.Users, summary.Posts, summary.Comments, summary.Follows)
	return summary, nil
}

// clearData removes all rows in dependency order. Groups are kept; they are
// upserted by slug afterwards.
func clearData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
