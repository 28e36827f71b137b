package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"treasurehunt-service/internal/app"
	"treasurehunt-service/internal/config"
	"treasurehunt-service/internal/domain"
	"treasurehunt-service/internal/infra/memory"
	pgloader "treasurehunt-service/internal/infra/postgres"
	redisinfra "treasurehunt-service/internal/infra/redis"
	transport "treasurehunt-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the treasure hunt server",
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 0)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.GameLoader = sampleGame(cfg.Scoring)
	if pool != nil {
		loader = pgloader.NewGameLoader(pool)
	}

	contentTTL := config.TTLDuration(cfg.Game.ContentTTL, 10*time.Minute)
	var gameRepo app.GameRepository
	if redisClient != nil {
		gameRepo = redisinfra.NewGameRepository(redisClient, loader, contentTTL)
	} else {
		gameRepo = memory.NewGameRepository(loader, contentTTL)
	}

	teams, err := loader.LoadTeams(ctx)
	if err != nil {
		return err
	}
	var store app.TeamRepository
	if redisClient != nil {
		redisStore := redisinfra.NewTeamStore(redisClient, redisTTL)
		if err := redisStore.Seed(ctx, teams); err != nil {
			return err
		}
		store = redisStore
	} else {
		memStore := memory.NewTeamStore()
		memStore.Seed(teams)
		store = memStore
	}

	stuckAfter := config.TTLDuration(cfg.Game.StuckAfter, 15*time.Minute)
	service := app.NewGameService(store, gameRepo, app.WithStuckThreshold(stuckAfter))
	wsHandler := transport.NewWSHandler(service)
	apiHandler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting treasure hunt service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleGame provides a minimal playable game; swap this loader with the
// Postgres-backed one in production.
func sampleGame(scoring domain.Settings) *memory.StaticGameLoader {
	if !scoring.Valid() {
		scoring = domain.Settings{
			BasePoints:       20,
			BonusPerMinute:   5,
			PenaltyPerMinute: 3,
			RoundTimeMinutes: 5,
		}
	}
	return &memory.StaticGameLoader{
		Checkpoints: []domain.Checkpoint{
			{ID: "cp-start", Name: "Town Square", ArrivalCode: "START-1", Puzzle: "Where every journey begins.", IsEntry: true},
			{ID: "cp-bridge", Name: "Old Bridge", ArrivalCode: "BRDG-7", Puzzle: "Cross the water without getting wet."},
			{ID: "cp-tower", Name: "Clock Tower", ArrivalCode: "TWR-3", Puzzle: "Time is always watching."},
		},
		Questions: []domain.Question{
			{
				ID:     "q-bridge-year",
				Prompt: "When was the old bridge built?",
				Options: []domain.Option{
					{ID: "o1", Text: "1680", Points: 10},
					{ID: "o2", Text: "1750", Points: 5},
					{ID: "o3", Text: "1890", Points: 0},
				},
			},
			{
				ID:     "q-tower-bells",
				Prompt: "How many bells hang in the clock tower?",
				Options: []domain.Option{
					{ID: "o1", Text: "Two", Points: 0},
					{ID: "o2", Text: "Four", Points: 10},
					{ID: "o3", Text: "Six", Points: 3},
				},
			},
		},
		GameSettings: scoring,
		Teams: []domain.Team{
			{ID: "team-red", Name: "Red Foxes", Roadmap: []string{"cp-start", "cp-bridge", "cp-tower"}},
			{ID: "team-blue", Name: "Blue Owls", Roadmap: []string{"cp-start", "cp-tower", "cp-bridge"}},
		},
	}
}
