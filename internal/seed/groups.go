package seed

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed groups.yml
var defaultGroupsYAML []byte

// GroupFixture is one group entry of a fixture file.
type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// DefaultGroups returns the built-in topic boards.
func DefaultGroups() []GroupFixture {
	groups, err := ParseGroups(strings.NewReader(string(defaultGroupsYAML)))
	if err != nil {
		panic(fmt.Sprintf("seed: invalid embedded groups.yml: %v", err))
	}
	return groups
}

// LoadGroupsFile reads a YAML fixture file of groups.
func LoadGroupsFile(path string) ([]GroupFixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseGroups(f)
}

// ParseGroups decodes and validates a YAML list of groups.
func ParseGroups(r io.Reader) ([]GroupFixture, error) {
	var groups []GroupFixture
	if err := yaml.NewDecoder(r).Decode(&groups); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode groups: %w", err)
	}

	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		if strings.TrimSpace(g.Title) == "" {
			return nil, fmt.Errorf("group #%d: title is required", i+1)
		}
		if err := validation.ValidateSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Title, err)
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %q: duplicate slug %q", g.Title, g.Slug)
		}
		seen[g.Slug] = true
	}
	return groups, nil
}

// Groups upserts fixtures by slug. Running it twice leaves one row per slug.
func Groups(db *gorm.DB, fixtures []GroupFixture) ([]models.Group, error) {
	out := make([]models.Group, 0, len(fixtures))
	for _, item := range fixtures {
		group := models.Group{
			Title:       item.Title,
			Slug:        item.Slug,
			Description: item.Description,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&group).Error
		if err != nil {
			return nil, fmt.Errorf("seed group %s: %w", item.Slug, err)
		}
		if group.ID == 0 {
			if err := db.Where("slug = ?", item.Slug).First(&group).Error; err != nil {
				return nil, err
			}
		}
		out = append(out, group)
	}
	return out, nil
}
