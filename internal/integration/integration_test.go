package integration

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"hardbrain-quiz/internal/app"
	"hardbrain-quiz/internal/domain"
	"hardbrain-quiz/internal/infra/postgres"
	pgmigrations "hardbrain-quiz/internal/infra/postgres/migrations"
	infraredis "hardbrain-quiz/internal/infra/redis"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type songRow struct {
	bun.BaseModel `bun:"table:songs"`

	ID        string `bun:"id,pk"`
	Filename  string `bun:"filename"`
	Title     string `bun:"title"`
	AltTitles string `bun:"alt_titles"`
	Genre     string `bun:"genre"`
	Artist    string `bun:"artist"`
	Audio     []byte `bun:"audio"`
}

type speaker struct {
	mu      sync.Mutex
	playing bool
	clips   [][]byte
}

func (s *speaker) Connect(context.Context, string) (app.Voice, error) { return s, nil }

func (s *speaker) Play(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.clips = append(s.clips, data)
	return nil
}

func (s *speaker) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *speaker) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	return nil
}

func (s *speaker) Disconnect() error { return s.Stop() }

type chat chan domain.Message

func (c chat) Send(_ context.Context, msg domain.Message) error {
	c <- msg
	return nil
}

func (c chat) waitFor(t *testing.T, title string) domain.Message {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case msg := <-c:
			if msg.Title == title {
				return msg
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", title)
		}
	}
}

func TestQuizEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedSongs(t, ctx, pgURL, []songRow{
		{ID: "31001", Title: "Alpha", AltTitles: "First Song", Genre: "Stage 1", Artist: "ZUN", Audio: []byte("clip-31001")},
		{ID: "25001", Title: "Beta", Genre: "Stage 2", Artist: "ZUN", Audio: []byte("clip-25001")},
	})

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	catalog := postgres.NewSongCatalog(pool, zerolog.Nop())

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()
	audio := infraredis.NewAudioCache(redisClient, catalog, 5*time.Minute, zerolog.Nop())
	sessionStore := infraredis.NewSessionStore(redisClient, 5*time.Minute)

	voice := &speaker{}
	service := app.NewQuizService(sessionStore, catalog, audio, voice, app.ServiceConfig{
		PollInterval: 10 * time.Millisecond,
	})

	messages := make(chat, 32)
	session, err := service.StartSession(ctx, app.StartRequest{
		ChannelID: "general",
		Rounds:    2,
		TimeLimit: 10 * time.Second,
		Versions:  "31",
		Notifier:  messages,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if live, err := sessionStore.Live(ctx, "general"); err != nil || !live {
		t.Fatalf("expected liveness marker, got live=%v err=%v", live, err)
	}

	// only one song matches version 31, so the quiz is a single round
	messages.waitFor(t, "Round 1/1")
	if err := service.SubmitAnswer(ctx, "general", "Alice", "first song"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	result := messages.waitFor(t, "Alice got the correct answer")
	if result.Description != "3 points go to Alice" {
		t.Fatalf("unexpected result %+v", result)
	}
	final := messages.waitFor(t, "Game ending. Thank you for playing!")
	if len(final.Fields) != 1 || final.Fields[0].Value != "#1: Alice - `3`" {
		t.Fatalf("unexpected final scores %+v", final.Fields)
	}

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
	}

	cached, err := redisClient.Get(ctx, "quiz:audio:31001").Bytes()
	if err != nil || string(cached) != "clip-31001" {
		t.Fatalf("expected cached clip, got %q err=%v", cached, err)
	}
	if len(voice.clips) != 1 || string(voice.clips[0]) != "clip-31001" {
		t.Fatalf("unexpected clips played: %q", voice.clips)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		live, err := sessionStore.Live(ctx, "general")
		if err != nil {
			t.Fatalf("live: %v", err)
		}
		if !live {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("liveness marker not cleared")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedSongs(t *testing.T, ctx context.Context, dsn string, songs []songRow) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := db.NewInsert().Model(&songs).On("CONFLICT (id) DO UPDATE").Set("title = EXCLUDED.title").Exec(ctx); err != nil {
		t.Fatalf("insert songs: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
