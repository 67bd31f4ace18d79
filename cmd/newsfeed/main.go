package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/Amund211/newsfeed/internal/adapters/cache"
	"github.com/Amund211/newsfeed/internal/adapters/contentgenerator"
	"github.com/Amund211/newsfeed/internal/adapters/store"
	"github.com/Amund211/newsfeed/internal/app"
	"github.com/Amund211/newsfeed/internal/logging"
)

const usage = `usage: newsfeed <command> <subjectID> [timeoutSeconds]

commands:
  request  get the newsfeed, generating it or waiting for a concurrent generation
  prime    regenerate the newsfeed regardless of what is cached
  login    generate the newsfeed unless it is cached

REDIS_URL selects the store, CONTENT_GENERATOR_URL the generator.
Without REDIS_URL an in-process store is used.`

func main() {
	if len(os.Args) < 3 {
		log.Fatal(usage)
	}

	command := os.Args[1]
	subjectID := os.Args[2]

	var timeout time.Duration
	if len(os.Args) > 3 {
		seconds, err := strconv.ParseFloat(os.Args[3], 64)
		if err != nil {
			log.Fatalf("Invalid timeout %q: %v", os.Args[3], err)
		}
		timeout = time.Duration(seconds * float64(time.Second))
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := logging.AddToContext(context.Background(), logger)

	var contentStore cache.Store
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		client, err := store.NewRedisClient(ctx, redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		contentStore = store.NewRedisStore(client)
	} else {
		ttlStore, stop := store.NewTTLStore()
		defer stop()
		contentStore = ttlStore
	}

	generator := contentgenerator.NewPlaceholder()
	if generatorURL := os.Getenv("CONTENT_GENERATOR_URL"); generatorURL != "" {
		upstream, err := contentgenerator.NewUpstream(contentgenerator.NewRetryingHTTPClient(logger), generatorURL, 1, 1)
		if err != nil {
			log.Fatalf("Failed to initialize content generator: %v", err)
		}
		generator = upstream
	}

	coordinator, err := cache.NewCoordinator(contentStore, generator.Generate)
	if err != nil {
		log.Fatalf("Failed to initialize coordinator: %v", err)
	}

	switch command {
	case "request":
		newsfeed, found, err := app.BuildRequestNewsfeed(coordinator)(ctx, subjectID, timeout)
		if err != nil {
			log.Fatalf("Failed to request newsfeed: %v", err)
		}
		if !found {
			fmt.Println("newsfeed not ready, try again later")
			os.Exit(2)
		}
		fmt.Println(string(newsfeed.Content))
	case "prime":
		err := app.BuildPrimeNewsfeed(coordinator)(ctx, subjectID)
		if err != nil {
			log.Fatalf("Failed to prime newsfeed: %v", err)
		}
		fmt.Println("primed")
	case "login":
		generated, err := app.BuildHandleLogin(coordinator)(ctx, subjectID)
		if err != nil {
			log.Fatalf("Failed to handle login: %v", err)
		}
		fmt.Printf("generated: %t\n", generated)
	default:
		log.Fatalf("Unknown command %q\n\n%s", command, usage)
	}
}
