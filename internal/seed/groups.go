package seed

import (
	_ "embed"
	"fmt"
	"io"

	"postline/internal/models"
	"postline/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed groups.yml
var defaultGroupsYAML []byte

// GroupFixture is one entry of a groups YAML file.
type GroupFixture struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

// DefaultGroups returns the built-in group fixture.
func DefaultGroups() ([]GroupFixture, error) {
	return parseGroups(defaultGroupsYAML)
}

// LoadGroups reads a YAML list of groups.
func LoadGroups(r io.Reader) ([]GroupFixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read groups fixture: %w", err)
	}
	return parseGroups(data)
}

func parseGroups(data []byte) ([]GroupFixture, error) {
	var fixtures []GroupFixture
	if err := yaml.Unmarshal(data, &fixtures); err != nil {
		return nil, fmt.Errorf("parse groups fixture: %w", err)
	}

	seen := make(map[string]bool, len(fixtures))
	for i, g := range fixtures {
		if g.Title == "" {
			return nil, fmt.Errorf("group %d: title is required", i)
		}
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Title, err)
		}
		if seen[g.Slug] {
			return nil, fmt.Errorf("group %q: duplicate slug %q", g.Title, g.Slug)
		}
		seen[g.Slug] = true
	}
	return fixtures, nil
}

// Groups upserts fixtures by slug and returns the stored rows.
func Groups(db *gorm.DB, fixtures []GroupFixture) ([]models.Group, error) {
	out := make([]models.Group, 0, len(fixtures))
	for _, item := range fixtures {
		group := models.Group{
			Title:       item.Title,
			Slug:        item.Slug,
			Description: item.Description,
		}

		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "description"}),
		}).Create(&group).Error; err != nil {
			return nil, fmt.Errorf("upsert group %q: %w", item.Slug, err)
		}

		// Some drivers do not report the ID of an updated row.
		if group.ID == 0 {
			if err := db.Where("slug = ?", item.Slug).First(&group).Error; err != nil {
				return nil, err
			}
		}
		out = append(out, group)
	}
	return out, nil
}
