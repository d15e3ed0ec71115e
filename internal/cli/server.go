package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"hardbrain-quiz/internal/app"
	"hardbrain-quiz/internal/config"
	"hardbrain-quiz/internal/domain"
	"hardbrain-quiz/internal/infra/backend"
	"hardbrain-quiz/internal/infra/memory"
	"hardbrain-quiz/internal/infra/postgres"
	redisinfra "hardbrain-quiz/internal/infra/redis"
	"hardbrain-quiz/internal/logging"
	transport "hardbrain-quiz/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port, offline)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "serve the built-in sample songs instead of a song backend")
	return cmd
}

type songSource interface {
	app.QuestionSource
	app.AudioSource
}

func runServer(ctx context.Context, configPath, portFlag string, offline bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" && !offline {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var songs songSource
	switch {
	case offline:
		songs = memory.NewCatalog(sampleSongs())
		log.Info().Msg("serving built-in sample songs")
	case cfg.Postgres.URL != "":
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		songs = postgres.NewSongCatalog(pool, log)
	default:
		client := backend.NewClient(cfg.Backend.Hostname, cfg.Backend.Port, cfg.Backend.HTTPS,
			config.TTLDuration(cfg.Backend.Timeout, 10*time.Second), log)
		log.Info().Str("backend", client.BaseURL()).Msg("using song backend")
		songs = client
	}

	audioTTL := config.TTLDuration(cfg.Quiz.AudioCacheTTL, 10*time.Minute)
	var audio app.AudioSource
	var store app.SessionRepository
	if redisClient != nil {
		audio = redisinfra.NewAudioCache(redisClient, songs, audioTTL, log)
		store = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		audio = memory.NewAudioCache(songs, audioTTL)
		store = memory.NewSessionStore()
	}

	hub := transport.NewHub(log)
	q := cfg.Quiz
	service := app.NewQuizService(store, songs, audio, hub, app.ServiceConfig{
		Limits: app.Limits{
			MinRounds:        q.MinRounds,
			MaxRounds:        q.MaxRounds,
			DefaultRounds:    q.DefaultRounds,
			MinTimeLimit:     config.TTLDuration(q.MinTimeLimit, 5*time.Second),
			MaxTimeLimit:     config.TTLDuration(q.MaxTimeLimit, 60*time.Second),
			DefaultTimeLimit: config.TTLDuration(q.DefaultTimeLimit, 30*time.Second),
		},
		PointsPerRound: q.PointsPerRound,
		ScoreboardSize: q.ScoreboardSize,
		MatchThreshold: q.MatchThreshold,
		PollInterval:   config.TTLDuration(q.PollInterval, 50*time.Millisecond),
	}, app.WithLogger(log), app.WithBaseContext(ctx))
	wsHandler := transport.NewWSHandler(service, hub, transport.HandlerConfig{
		BotName:     q.BotName,
		AnswerRate:  q.AnswerRate,
		AnswerBurst: q.AnswerBurst,
	}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sampleSongs is a tiny catalog for running without a song backend; the audio is silence.
func sampleSongs() []memory.Song {
	silence := make([]byte, 4096)
	raw := []domain.SongRecord{
		{SongID: "06001", Title: "Bad Apple!!", AltTitles: "Bad Apple", Artist: "ZUN", Genre: "Stage 3 Boss"},
		{SongID: "07002", Title: "Necrofantasia", Genre: "Extra Boss", Artist: "ZUN"},
		{SongID: "08003", Title: "Flight of the Bamboo Cutter ~ Lunatic Princess", AltTitles: "Lunatic Princess, Flight of the Bamboo Cutter", Genre: "Final Boss", Artist: "ZUN"},
		{SongID: "10004", Title: "Faith Is for the Transient People", AltTitles: "Faith Is For The Transient People", Genre: "Final Boss", Artist: "ZUN"},
		{SongID: "12005", Title: "Emotional Skyscraper ~ Cosmic Mind", AltTitles: "Cosmic Mind, Emotional Skyscraper", Genre: "Final Boss", Artist: "ZUN"},
	}
	songs := make([]memory.Song, 0, len(raw))
	for _, rec := range raw {
		q, err := rec.ToQuestion()
		if err != nil {
			continue
		}
		songs = append(songs, memory.Song{Question: q, Audio: silence})
	}
	return songs
}
