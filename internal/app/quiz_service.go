package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hardbrain-quiz/internal/clock"
	"hardbrain-quiz/internal/domain"
	"hardbrain-quiz/internal/match"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Limits bounds the options a player may pick when starting a quiz.
type Limits struct {
	MinRounds        int
	MaxRounds        int
	DefaultRounds    int
	MinTimeLimit     time.Duration
	MaxTimeLimit     time.Duration
	DefaultTimeLimit time.Duration
}

// DefaultLimits mirrors the bot's slash command bounds.
func DefaultLimits() Limits {
	return Limits{
		MinRounds:        1,
		MaxRounds:        100,
		DefaultRounds:    5,
		MinTimeLimit:     5 * time.Second,
		MaxTimeLimit:     60 * time.Second,
		DefaultTimeLimit: 30 * time.Second,
	}
}

// ServiceConfig holds game-wide constants.
type ServiceConfig struct {
	Limits         Limits
	PointsPerRound int
	ScoreboardSize int
	MatchThreshold int
	PollInterval   time.Duration
}

// StartRequest describes a quiz to start in a channel.
type StartRequest struct {
	ChannelID   string
	VoiceTarget string
	Rounds      int
	TimeLimit   time.Duration
	// Versions is forwarded to the question backend to restrict song versions.
	Versions string
	// Questions, when set, are played as-is instead of being fetched.
	Questions []domain.Question
	Notifier  Notifier
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithClock injects the clock used for round timers.
func WithClock(c clock.Clock) Option {
	return func(s *QuizService) { s.clock = c }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *QuizService) { s.log = l }
}

// WithBaseContext sets the context sessions run under; cancelling it stops every session.
func WithBaseContext(ctx context.Context) Option {
	return func(s *QuizService) { s.baseCtx = ctx }
}

// QuizService is the command surface used by chat front-ends.
type QuizService struct {
	sessions  SessionRepository
	questions QuestionSource
	audio     AudioSource
	playback  Playback
	cfg       ServiceConfig
	matcher   *match.Matcher
	clock     clock.Clock
	log       zerolog.Logger
	baseCtx   context.Context
}

func NewQuizService(store SessionRepository, questions QuestionSource, audio AudioSource, playback Playback, cfg ServiceConfig, opts ...Option) *QuizService {
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits()
	}
	if cfg.PointsPerRound <= 0 {
		cfg.PointsPerRound = 3
	}
	if cfg.ScoreboardSize <= 0 {
		cfg.ScoreboardSize = 5
	}
	s := &QuizService{
		sessions:  store,
		questions: questions,
		audio:     audio,
		playback:  playback,
		cfg:       cfg,
		matcher:   match.NewMatcher(cfg.MatchThreshold),
		clock:     clock.Real(),
		log:       zerolog.Nop(),
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScoreboardSize is how many players a scoreboard message lists.
func (s *QuizService) ScoreboardSize() int {
	return s.cfg.ScoreboardSize
}

// StartSession validates the request, loads questions and runs the quiz in the background.
func (s *QuizService) StartSession(ctx context.Context, req StartRequest) (*Session, error) {
	if err := s.applyDefaults(&req); err != nil {
		return nil, err
	}
	if existing, ok := s.sessions.Get(req.ChannelID); ok && !existing.Finished() {
		return nil, domain.ErrAlreadyInProgress
	}

	questions := req.Questions
	if len(questions) == 0 {
		fetched, err := s.questions.FetchQuestions(ctx, req.Rounds, req.Versions)
		if err != nil {
			s.log.Error().Err(err).Str("session", req.ChannelID).Msg("fetching questions failed")
			return nil, fmt.Errorf("fetch questions: %w", err)
		}
		questions = fetched
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}

	session := NewSession(req.ChannelID, req.VoiceTarget, questions, Settings{
		RoundDuration:  req.TimeLimit,
		PointsPerRound: s.cfg.PointsPerRound,
		ScoreboardSize: s.cfg.ScoreboardSize,
		PollInterval:   s.cfg.PollInterval,
	}, SessionDeps{
		Audio:    s.audio,
		Playback: s.playback,
		Notifier: req.Notifier,
		Matcher:  s.matcher,
		Clock:    s.clock,
		Logger:   s.log.With().Str("run", uuid.NewString()).Logger(),
	})
	if !s.sessions.Add(req.ChannelID, session) {
		return nil, domain.ErrAlreadyInProgress
	}

	go func() {
		defer s.sessions.Remove(req.ChannelID, session)
		if err := session.Start(s.baseCtx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Str("session", req.ChannelID).Msg("quiz stopped")
			if req.Notifier != nil {
				_ = req.Notifier.Send(context.Background(), domain.Message{Text: "The quiz stopped unexpectedly: " + err.Error()})
			}
		}
	}()
	return session, nil
}

// SubmitAnswer forwards a guess to the channel's quiz. Guesses outside a round are ignored.
func (s *QuizService) SubmitAnswer(ctx context.Context, channelID, player, text string) error {
	session, ok := s.sessions.Get(channelID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SubmitAnswer(ctx, player, text)
}

// SkipRound ends the current round without a winner.
func (s *QuizService) SkipRound(ctx context.Context, channelID string) error {
	session, ok := s.sessions.Get(channelID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SkipRound(ctx)
}

// EndSession cancels the channel's quiz.
func (s *QuizService) EndSession(ctx context.Context, channelID string) error {
	session, ok := s.sessions.Get(channelID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if err := session.End(ctx); err != nil {
		return err
	}
	s.sessions.Remove(channelID, session)
	return nil
}

// GetScores returns the channel's scoreboard.
func (s *QuizService) GetScores(ctx context.Context, channelID string) ([]domain.ScoreEntry, error) {
	session, ok := s.sessions.Get(channelID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Scores(ctx)
}

func (s *QuizService) applyDefaults(req *StartRequest) error {
	if req.ChannelID == "" {
		return fmt.Errorf("%w: missing channel", domain.ErrInvalidOptions)
	}
	if req.VoiceTarget == "" {
		req.VoiceTarget = req.ChannelID
	}
	l := s.cfg.Limits
	if req.Rounds == 0 {
		req.Rounds = l.DefaultRounds
	}
	if req.TimeLimit == 0 {
		req.TimeLimit = l.DefaultTimeLimit
	}
	if req.Rounds < l.MinRounds || req.Rounds > l.MaxRounds {
		return fmt.Errorf("%w: number of rounds must be between %d and %d", domain.ErrInvalidOptions, l.MinRounds, l.MaxRounds)
	}
	if req.TimeLimit < l.MinTimeLimit || req.TimeLimit > l.MaxTimeLimit {
		return fmt.Errorf("%w: time limit must be between %d and %d seconds", domain.ErrInvalidOptions,
			int(l.MinTimeLimit.Seconds()), int(l.MaxTimeLimit.Seconds()))
	}
	return nil
}
