// Package main provides member management utilities for Stories Of Struggles.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"struggles/internal/bootstrap"
	"struggles/internal/cache"
	"struggles/internal/config"
	"struggles/internal/repository"
	"struggles/internal/service"
)

type services struct {
	users   *service.UserService
	stories *service.StoryService
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin users                          - List all members")
	fmt.Println("  go run ./cmd/admin stories <username>             - List a member's stories")
	fmt.Println("  go run ./cmd/admin rename <username> <new name>   - Change a display name and its story bylines")
	fmt.Println("  go run ./cmd/admin resync-authors <username>      - Rewrite story bylines from the current profile")
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer rt.Close()

	store := cache.NewStore(rt.Redis)
	directory := service.NewUserDirectoryCache(cfg.UserCacheTTL())
	svc := services{
		users:   service.NewUserService(repository.NewUserRepository(rt.DB, store), directory),
		stories: service.NewStoryService(repository.NewStoryRepository(rt.DB, store), directory),
	}

	switch os.Args[1] {
	case "users":
		err = listUsers(ctx, svc)
	case "stories":
		if len(os.Args) < 3 {
			usage()
		}
		err = listStories(ctx, svc, os.Args[2])
	case "rename":
		if len(os.Args) < 4 {
			usage()
		}
		err = rename(ctx, svc, os.Args[2], strings.Join(os.Args[3:], " "))
	case "resync-authors":
		if len(os.Args) < 3 {
			usage()
		}
		err = resyncAuthors(ctx, svc, os.Args[2])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		usage()
	}
	if err != nil {
		rt.Close()
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func listUsers(ctx context.Context, svc services) error {
	users, err := svc.users.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No members yet")
		return nil
	}
	fmt.Println("Members:")
	fmt.Println("-------------------------------------")
	for _, u := range users {
		fmt.Printf("ID: %s | Username: %s | Name: %s\n", u.ID, u.Username, u.Name)
	}
	fmt.Println("-------------------------------------")
	return nil
}

func listStories(ctx context.Context, svc services, username string) error {
	stories, err := svc.stories.ListByAuthorUsername(ctx, username)
	if err != nil {
		return err
	}
	fmt.Printf("%d stories by %s\n", len(stories), username)
	for _, s := range stories {
		fmt.Printf("%s | %s | byline: %s | %s\n", s.ID, s.CreatedAt.Format("2006-01-02"), s.Author.Name, s.Title)
	}
	return nil
}

func rename(ctx context.Context, svc services, username, name string) error {
	user, err := svc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	updated, err := svc.users.UpdateProfile(ctx, service.UpdateProfileInput{
		UserID:  user.ID,
		Name:    name,
		Bio:     user.Bio,
		Website: user.Website,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Renamed %s: %q -> %q\n", updated.Username, user.Name, updated.Name)
	return nil
}

func resyncAuthors(ctx context.Context, svc services, username string) error {
	user, err := svc.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if err := svc.stories.RenameAuthorEverywhere(ctx, user.ID, user.Name); err != nil {
		return err
	}
	fmt.Printf("Story bylines for %s set to %q\n", user.Username, user.Name)
	return nil
}
