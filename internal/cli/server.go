package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"learnfront-session-service/internal/config"
	"learnfront-session-service/internal/domain"
	"learnfront-session-service/internal/engine"
	"learnfront-session-service/internal/infra/api"
	"learnfront-session-service/internal/infra/memory"
	pginfra "learnfront-session-service/internal/infra/postgres"
	redisinfra "learnfront-session-service/internal/infra/redis"
	transport "learnfront-session-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	itemTTL := config.TTLDuration(cfg.Session.ItemTTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Collaborator wiring, most remote first: the LearnFront backend owns
	// grading and scheduling when configured; otherwise Postgres stands in;
	// otherwise everything runs in process on sample content.
	var (
		loader    batchLoader
		reporter  engine.ReviewReporter
		submitter engine.QuizSubmitter
		stats     engine.StatsProvider
	)
	switch {
	case cfg.Backend.URL != "":
		client := api.New(api.Config{
			BaseURL: cfg.Backend.URL,
			Token:   cfg.Backend.Token,
			Timeout: config.TTLDuration(cfg.Backend.Timeout, 15*time.Second),
		})
		loader, reporter, submitter, stats = client, client, client, client
	case pool != nil:
		itemLoader := pginfra.NewItemLoader(pool, cfg.Session.ReviewBatchSize)
		reviewStore := pginfra.NewReviewStore(pool)
		loader = itemLoader
		reporter = reviewStore
		submitter = pginfra.NewResultStore(pool, itemLoader)
		stats = reviewStore
	default:
		static := memory.NewStaticBatchLoader(sampleBatches())
		reviewStore := memory.NewReviewStore()
		loader = static
		reporter = reviewStore
		submitter = memory.NewGrader(static)
		stats = reviewStore
	}

	var source engine.ItemSource
	if redisClient != nil {
		source = redisinfra.NewItemSource(redisClient, loader, itemTTL)
	} else {
		source = memory.NewItemSource(loader, itemTTL)
	}

	var sessions engine.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	service := engine.NewSessionService(source, reporter, submitter, stats, sessions)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// batchLoader is what both caching layers accept as their fallback.
type batchLoader interface {
	LoadBatch(ctx context.Context, mode domain.GradingMode, scope string) (domain.ItemBatch, error)
}

// sampleBatches provides minimal demo content; configure Postgres or the
// remote backend for real data.
func sampleBatches() map[string]domain.ItemBatch {
	return map[string]domain.ItemBatch{
		"quiz-1": {
			ID: "quiz-1",
			Items: []domain.Item{
				{
					ID:     "q1",
					Prompt: "What is the capital of France?",
					Candidates: []domain.Candidate{
						{Text: "Lyon"},
						{Text: "Paris", Correct: true},
						{Text: "Marseille"},
					},
					Explanation: "Paris has been the capital since 987.",
					Difficulty:  domain.DifficultyEasy,
					Position:    1,
				},
				{
					ID:     "q2",
					Prompt: "What is 7 x 8?",
					Candidates: []domain.Candidate{
						{Text: "54"},
						{Text: "56", Correct: true},
						{Text: "58"},
					},
					Difficulty: domain.DifficultyMedium,
					Position:   2,
				},
			},
		},
		"u-demo": {
			ID: "review:u-demo",
			Items: []domain.Item{
				{
					ID:     "r1",
					Prompt: "Which keyword starts a goroutine?",
					Candidates: []domain.Candidate{
						{Text: "go", Correct: true},
						{Text: "async"},
						{Text: "spawn"},
					},
					Explanation: "The go statement runs a function concurrently.",
					Difficulty:  domain.DifficultyEasy,
				},
			},
		},
	}
}
