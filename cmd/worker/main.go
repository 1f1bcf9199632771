// Command worker runs the poll scheduler without the HTTP API, for
// deployments that separate background polling from request serving. It
// also sweeps up unscored leads left behind by interrupted runs.
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

	"github.com/ignite/leadscout/internal/config"
	"github.com/ignite/leadscout/internal/email"
	"github.com/ignite/leadscout/internal/llm"
	"github.com/ignite/leadscout/internal/pkg/distlock"
	"github.com/ignite/leadscout/internal/plan"
	"github.com/ignite/leadscout/internal/poll"
	"github.com/ignite/leadscout/internal/reddit"
	"github.com/ignite/leadscout/internal/scoring"
	"github.com/ignite/leadscout/internal/store"
	"github.com/ignite/leadscout/internal/usage"
	"github.com/ignite/leadscout/internal/worker"
)

// rescoreInterval is how often the worker retries leads that a crashed
// or interrupted run left unscored.
const rescoreInterval = 15 * time.Minute

// rescoreBatchLimit caps how many leads one sweep picks up.
const rescoreBatchLimit = 200

func main() {
	log.Println("LeadScout poll worker starting")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	cancel()

	st := store.New(db)
	recorder := usage.NewCounter(db)

	var provider reddit.Provider
	if cfg.Reddit.Provider == "scraper" {
		provider = reddit.NewScraperProvider(cfg.Reddit.Apify)
	} else {
		provider = reddit.NewDirectProvider(cfg.Reddit.RapidAPI)
	}

	var llmClient llm.Client
	switch cfg.LLM.Provider {
	case "openai":
		llmClient = llm.NewOpenAIClient(cfg.LLM.OpenAI)
	case "bedrock":
		llmClient, err = llm.NewBedrockClient(context.Background(), cfg.LLM.Bedrock)
		if err != nil {
			log.Fatalf("Failed to initialize Bedrock client: %v", err)
		}
	default:
		llmClient = llm.NewGeminiClient(cfg.LLM.Gemini)
	}

	scorer := scoring.NewService(llmClient, recorder, cfg.Polling.DefaultBatchSize, cfg.Polling.MaxConcurrent)
	plans := plan.NewTable(cfg.Polling.StarterHours(), cfg.Polling.PremiumHours())

	var sender email.Sender = email.NopSender{}
	if cfg.Email.Enabled {
		sender = email.NewSESSender(cfg.Email)
	}
	digest, err := email.NewDigest()
	if err != nil {
		log.Fatalf("Failed to parse digest template: %v", err)
	}

	engine := poll.NewEngine(st, provider, scorer, recorder, plans, sender, digest, poll.Options{
		MinRelevancyScore:       cfg.Polling.MinRelevancyScore,
		AutoSuggestionThreshold: cfg.Polling.AutoSuggestionThreshold,
	})

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		if opts, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			redisClient = redis.NewClient(opts)
		} else {
			log.Printf("[Redis] invalid REDIS_URL, using PG advisory lock: %v", err)
		}
	}
	lock := distlock.NewLock(redisClient, db, "leadscout:poll-sweep", time.Hour)

	scheduler := worker.NewPollScheduler(st, engine, plans, lock, cfg.Polling.EnableScheduled)
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rescoreLoop(ctx, engine)

	scheduler.Stop()
	log.Println("LeadScout poll worker stopped")
}

// rescoreLoop periodically retries unscored leads until the context is
// canceled.
func rescoreLoop(ctx context.Context, engine *poll.Engine) {
	ticker := time.NewTicker(rescoreInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
			scored, deleted, err := engine.RescorePending(sweepCtx, rescoreBatchLimit)
			cancel()
			if err != nil {
				log.Printf("[Worker] rescore sweep: %v", err)
				continue
			}
			if scored > 0 || deleted > 0 {
				log.Printf("[Worker] rescore sweep: scored=%d deleted=%d", scored, deleted)
			}
		}
	}
}
