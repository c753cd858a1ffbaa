// Command main runs the database seeder for Stories Of Struggles.
package main

import (
	"context"
	"flag"
	"log"

	"struggles/internal/bootstrap"
	"struggles/internal/config"
	"struggles/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	storiesPerUser := flag.Int("stories", 3, "Stories per user")
	chatsPerUser := flag.Int("chats", 2, "Chats opened per user")
	messagesPerChat := flag.Int("messages", 8, "Messages per chat")
	numTeams := flag.Int("teams", 5, "Number of teams")
	followsPerUser := flag.Int("follows", 4, "Follows per user")
	maxDays := flag.Int("days", 60, "Spread generated timestamps over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	fixture := flag.String("fixture", "", "Load a YAML fixture instead of generating data")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 picks one)")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{Migrate: true, SkipRedis: true})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer rt.Close()

	opts := seed.Options{
		NumUsers:        *numUsers,
		StoriesPerUser:  *storiesPerUser,
		ChatsPerUser:    *chatsPerUser,
		MessagesPerChat: *messagesPerChat,
		NumTeams:        *numTeams,
		FollowsPerUser:  *followsPerUser,
		MaxDays:         *maxDays,
		ShouldClean:     *shouldClean,
		RandSeed:        *randSeed,
	}

	var res *seed.Result
	if *fixture != "" {
		log.Printf("Applying fixture %s (clean=%v)", *fixture, *shouldClean)
		if *shouldClean {
			if err := seed.Clean(rt.DB); err != nil {
				log.Fatalf("Cleanup failed: %v", err)
			}
		}
		fx, err := seed.LoadFixtureFile(*fixture)
		if err != nil {
			log.Fatalf("Fixture load failed: %v", err)
		}
		res, err = seed.ApplyFixture(ctx, rt.DB, fx, opts)
		if err != nil {
			log.Fatalf("Fixture seeding failed: %v", err)
		}
	} else {
		log.Printf("Target: %d users, %d stories each, clean=%v", *numUsers, *storiesPerUser, *shouldClean)
		res, err = seed.Seed(ctx, rt.DB, opts)
		if err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Printf("Created %d users, %d stories, %d chats, %d messages, %d teams, %d follows",
		res.Users, res.Stories, res.Chats, res.Messages, res.Teams, res.Follows)
	log.Println("All generated users have the password: password123")
}
