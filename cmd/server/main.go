// Command server runs the LeadScout API with the poll scheduler
// embedded. For deployments that split the API from the scheduler, run
// cmd/worker alongside with ENABLE_SCHEDULED_POLLING only on one side.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadscout/internal/api"
	"github.com/ignite/leadscout/internal/config"
	"github.com/ignite/leadscout/internal/email"
	"github.com/ignite/leadscout/internal/llm"
	"github.com/ignite/leadscout/internal/pkg/distlock"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/poll"
	"github.com/ignite/leadscout/internal/reddit"
	"github.com/ignite/leadscout/internal/scoring"
	"github.com/ignite/leadscout/internal/service/campaign"
	"github.com/ignite/leadscout/internal/store"
	"github.com/ignite/leadscout/internal/usage"
	"github.com/ignite/leadscout/internal/worker"
)

func main() {
	log.Println("LeadScout API server starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	db := mustOpenDB(cfg.Database)
	defer db.Close()

	st := store.New(db)
	recorder := usage.NewCounter(db)

	provider := buildProvider(cfg.Reddit)
	llmClient := buildLLM(cfg.LLM)

	scorer := scoring.NewService(llmClient, recorder, cfg.Polling.DefaultBatchSize, cfg.Polling.MaxConcurrent)
	plans := plan.NewTable(cfg.Polling.StarterHours(), cfg.Polling.PremiumHours())

	var sender email.Sender = email.NopSender{}
	if cfg.Email.Enabled {
		sender = email.NewSESSender(cfg.Email)
		log.Printf("[Email] SES sender enabled, from %s", cfg.Email.FromEmail)
	}
	digest, err := email.NewDigest()
	if err != nil {
		log.Fatalf("Failed to parse digest template: %v", err)
	}

	engine := poll.NewEngine(st, provider, scorer, recorder, plans, sender, digest, poll.Options{
		MinRelevancyScore:       cfg.Polling.MinRelevancyScore,
		AutoSuggestionThreshold: cfg.Polling.AutoSuggestionThreshold,
	})

	campaigns := campaign.NewService(st, llmClient, recorder, provider, plans, engine)

	lock := distlock.NewLock(buildRedis(cfg.Redis), db, "leadscout:poll-sweep", time.Hour)
	scheduler := worker.NewPollScheduler(st, engine, plans, lock, cfg.Polling.EnableScheduled)
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(cfg.Server, campaigns, engine, st, scorer, recorder, provider)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("LeadScout API server stopped")
}

func mustOpenDB(cfg config.DatabaseConfig) *sql.DB {
	if cfg.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("[DB] connected")
	return db
}

// buildRedis returns a Redis client when configured, nil otherwise.
// Without Redis the scheduler lock falls back to a PG advisory lock.
func buildRedis(cfg config.RedisConfig) *redis.Client {
	if cfg.URL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		log.Printf("[Redis] invalid REDIS_URL, falling back to PG advisory lock: %v", err)
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("[Redis] unreachable, falling back to PG advisory lock: %v", err)
		return nil
	}
	log.Println("[Redis] connected")
	return client
}

func buildProvider(cfg config.RedditConfig) reddit.Provider {
	switch cfg.Provider {
	case "scraper":
		log.Println("[Reddit] using scraper provider")
		return reddit.NewScraperProvider(cfg.Apify)
	default:
		log.Println("[Reddit] using direct provider")
		return reddit.NewDirectProvider(cfg.RapidAPI)
	}
}

func buildLLM(cfg config.LLMConfig) llm.Client {
	switch cfg.Provider {
	case "openai":
		log.Printf("[LLM] using OpenAI %s", cfg.OpenAI.Model)
		return llm.NewOpenAIClient(cfg.OpenAI)
	case "bedrock":
		client, err := llm.NewBedrockClient(context.Background(), cfg.Bedrock)
		if err != nil {
			log.Fatalf("Failed to initialize Bedrock client: %v", err)
		}
		log.Printf("[LLM] using Bedrock %s", cfg.Bedrock.ModelID)
		return client
	default:
		log.Printf("[LLM] using Gemini %s", cfg.Gemini.Model)
		return llm.NewGeminiClient(cfg.Gemini)
	}
}
