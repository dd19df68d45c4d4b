// Command seed fills the database with groups and demo content.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"postline/internal/config"
	"postline/internal/database"
	"postline/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	postsPerUser := flag.Int("posts", 8, "Posts per user")
	commentsPerPost := flag.Int("comments", 2, "Comments per post")
	followsPerUser := flag.Int("follows", 5, "Authors each user follows")
	groupsFile := flag.String("groups", "", "YAML groups fixture (defaults to the built-in list)")
	shouldClean := flag.Bool("clean", true, "Remove users, posts, comments and follows before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fixtures, err := loadFixtures(*groupsFile)
	if err != nil {
		log.Fatalf("Failed to load groups: %v", err)
	}

	groups, err := seed.Groups(db, fixtures)
	if err != nil {
		log.Fatalf("Group seeding failed: %v", err)
	}
	log.Printf("%d groups available", len(groups))

	s := seed.NewSeeder(db, *randSeed)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	res, err := s.Seed(context.Background(), groups, seed.Options{
		NumUsers:        *numUsers,
		PostsPerUser:    *postsPerUser,
		CommentsPerPost: *commentsPerPost,
		FollowsPerUser:  *followsPerUser,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Created %d users, %d posts, %d comments, %d follows", res.Users, res.Posts, res.Comments, res.Follows)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}

func loadFixtures(path string) ([]seed.GroupFixture, error) {
	if path == "" {
		return seed.DefaultGroups()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return seed.LoadGroups(f)
}
