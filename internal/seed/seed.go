// Package seed populates a database with demo data for development.
package seed

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"postline/internal/models"
	"postline/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "Postline!Seed2024"

// Options controls how much data Seed creates.
type Options struct {
	NumUsers        int
	PostsPerUser    int
	CommentsPerPost int
	FollowsPerUser  int
	// MaxDays spreads post timestamps over this many days back from now.
	MaxDays int
	// RandSeed makes the generated content reproducible. Zero picks a random seed.
	RandSeed int64
}

// Result counts what Seed wrote.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seeder writes fake users, posts, comments and follow edges.
type Seeder struct {
	db      *gorm.DB
	follows repository.FollowRepository
	faker   *gofakeit.Faker
}

func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Seeder{
		db:      db,
		follows: repository.NewFollowRepository(db),
		faker:   gofakeit.New(randSeed),
	}
}

// ClearAll removes users, posts, comments and follows. Groups are kept.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tx := s.db.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{&models.Comment{}, &models.Follow{}, &models.Post{}, &models.User{}} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

// Seed creates users and their content, filing posts under groups at random.
func (s *Seeder) Seed(ctx context.Context, groups []models.Group, opts Options) (*Result, error) {
	res := &Result{}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return nil, err
	}
	res.Users = len(users)

	posts, err := s.createPosts(users, groups, opts.PostsPerUser, opts.MaxDays)
	if err != nil {
		return nil, err
	}
	res.Posts = len(posts)

	if res.Comments, err = s.createComments(users, posts, opts.CommentsPerPost); err != nil {
		return nil, err
	}
	if res.Follows, err = s.createFollows(ctx, users, opts.FollowsPerUser); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Seeder) createUsers(n int) ([]models.User, error) {
	if n <= 0 {
		return nil, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, n)
	for i := 0; i < n; i++ {
		username := s.username(i)
		users = append(users, models.User{
			Username:  username,
			Email:     username + "@example.com",
			Password:  string(hash),
			FirstName: s.faker.FirstName(),
			LastName:  s.faker.LastName(),
		})
	}
	if err := s.db.CreateInBatches(&users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	return users, nil
}

// username builds a unique name that passes username validation.
func (s *Seeder) username(i int) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, s.faker.Username())
	if len(base) < 3 {
		base = "user" + base
	}
	if len(base) > 20 {
		base = base[:20]
	}
	return base + strconv.Itoa(i+1)
}

func (s *Seeder) createPosts(users []models.User, groups []models.Group, perUser, maxDays int) ([]models.Post, error) {
	if perUser <= 0 || len(users) == 0 {
		return nil, nil
	}
	if maxDays <= 0 {
		maxDays = 90
	}

	now := time.Now()
	posts := make([]models.Post, 0, len(users)*perUser)
	for _, u := range users {
		for j := 0; j < perUser; j++ {
			post := models.Post{
				Text:      s.faker.Paragraph(1, s.faker.Number(1, 4), s.faker.Number(6, 14), "\n"),
				UserID:    u.ID,
				CreatedAt: s.faker.DateRange(now.AddDate(0, 0, -maxDays), now),
			}
			// Roughly a third of the posts stay outside any group.
			if len(groups) > 0 && s.faker.Number(0, 2) > 0 {
				gid := groups[s.faker.Number(0, len(groups)-1)].ID
				post.GroupID = &gid
			}
			posts = append(posts, post)
		}
	}
	if err := s.db.CreateInBatches(&posts, 200).Error; err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	return posts, nil
}

func (s *Seeder) createComments(users []models.User, posts []models.Post, perPost int) (int, error) {
	if perPost <= 0 || len(users) == 0 || len(posts) == 0 {
		return 0, nil
	}

	comments := make([]models.Comment, 0, len(posts)*perPost)
	for _, p := range posts {
		for j := 0; j < perPost; j++ {
			comments = append(comments, models.Comment{
				PostID:    p.ID,
				UserID:    users[s.faker.Number(0, len(users)-1)].ID,
				Text:      s.faker.Sentence(s.faker.Number(4, 12)),
				CreatedAt: p.CreatedAt.Add(time.Duration(j+1) * time.Minute),
			})
		}
	}
	if err := s.db.CreateInBatches(&comments, 200).Error; err != nil {
		return 0, fmt.Errorf("create comments: %w", err)
	}
	return len(comments), nil
}

// createFollows gives every user perUser distinct authors to follow, never themselves.
func (s *Seeder) createFollows(ctx context.Context, users []models.User, perUser int) (int, error) {
	if perUser <= 0 || len(users) < 2 {
		return 0, nil
	}
	if perUser > len(users)-1 {
		perUser = len(users) - 1
	}

	total := 0
	for i, u := range users {
		others := make([]int, 0, len(users)-1)
		for j := range users {
			if j != i {
				others = append(others, j)
			}
		}
		s.faker.ShuffleInts(others)

		for _, j := range others[:perUser] {
			if err := s.follows.Follow(ctx, u.ID, users[j].ID); err != nil {
				return total, fmt.Errorf("follow %s -> %s: %w", u.Username, users[j].Username, err)
			}
			total++
		}
	}
	return total, nil
}
