// Command seed fills the database with groups and fake activity.
package main

import (
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 120, "Number of posts to create")
	numComments := flag.Int("comments", 200, "Number of comments to create")
	numFollows := flag.Int("follows", 5, "Number of authors each user follows")
	shouldClean := flag.Bool("clean", false, "Delete users, posts, comments and follows first")
	groupsFile := flag.String("groups-file", "", "YAML file of groups to use instead of the built-in list")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	opts := seed.Options{
		Users:    *numUsers,
		Posts:    *numPosts,
		Comments: *numComments,
		Follows:  *numFollows,
		Clean:    *shouldClean,
	}
	if *groupsFile != "" {
		groups, err := seed.LoadGroupsFile(*groupsFile)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *groupsFile, err)
		}
		opts.Groups = groups
	}

	summary, err := seed.Seed(db, opts)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Done: %d groups, %d users, %d posts, %d comments, %d follows",
		summary.Groups, summary.Users, summary.Posts, summary.Comments, summary.Follows)
	log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
}
