package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"hardbrain-quiz/internal/clock"
	"hardbrain-quiz/internal/domain"
	"hardbrain-quiz/internal/ledger"
	"hardbrain-quiz/internal/match"
	"hardbrain-quiz/internal/round"
	"hardbrain-quiz/internal/timer"

	"github.com/rs/zerolog"
)

// Settings are fixed for the lifetime of a session.
type Settings struct {
	RoundDuration  time.Duration
	PointsPerRound int
	ScoreboardSize int
	// PollInterval is how often lingering playback is checked before a round starts.
	PollInterval time.Duration
}

// SessionDeps are the collaborators a session drives.
type SessionDeps struct {
	Audio    AudioSource
	Playback Playback
	Notifier Notifier
	Matcher  *match.Matcher
	Clock    clock.Clock
	Logger   zerolog.Logger
}

type answerCmd struct {
	round  int64
	player string
	text   string
}

type skipCmd struct {
	reply chan error
}

type endCmd struct {
	reply chan struct{}
}

type scoresCmd struct {
	reply chan []domain.ScoreEntry
}

type audioReady struct {
	index int
	audio []byte
	err   error
}

// Session runs one quiz over an ordered list of questions.
//
// All round and score state is owned by the goroutine executing Start. Answers and
// commands are delivered to it over channels, so resolution never needs a lock.
type Session struct {
	id        string
	target    string
	questions []domain.Question
	settings  Settings

	audio    AudioSource
	playback Playback
	notifier Notifier
	matcher  *match.Matcher
	clock    clock.Clock
	log      zerolog.Logger

	answers  chan answerCmd
	control  chan any
	prepared chan audioReady
	expired  chan *round.State
	done     chan struct{}

	started    atomic.Bool
	looping    atomic.Bool
	inProgress atomic.Bool
	// armed holds the number of the round accepting answers, 0 when none.
	armed     atomic.Int64
	closeOnce sync.Once

	// loop-owned
	ledger        *ledger.Ledger
	index         int
	round         *round.State
	timer         *timer.Timer
	voice         Voice
	cancelPrepare context.CancelFunc
	over          bool

	// written once before done is closed
	final []domain.ScoreEntry
}

// NewSession builds a session for channel id. target names where audio is played.
func NewSession(id, target string, questions []domain.Question, settings Settings, deps SessionDeps) *Session {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Matcher == nil {
		deps.Matcher = match.NewMatcher(match.DefaultThreshold)
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = 50 * time.Millisecond
	}
	return &Session{
		id:        id,
		target:    target,
		questions: questions,
		settings:  settings,
		audio:     deps.Audio,
		playback:  deps.Playback,
		notifier:  deps.Notifier,
		matcher:   deps.Matcher,
		clock:     deps.Clock,
		log:       deps.Logger.With().Str("session", id).Logger(),
		answers:   make(chan answerCmd, 256),
		control:   make(chan any),
		prepared:  make(chan audioReady, 1),
		expired:   make(chan *round.State, 1),
		done:      make(chan struct{}),
		ledger:    ledger.New(),
	}
}

// ID returns the channel id the session plays in.
func (s *Session) ID() string {
	return s.id
}

// InProgress reports whether rounds are still being played.
func (s *Session) InProgress() bool {
	return s.inProgress.Load()
}

// Done is closed once the session has torn down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finished reports whether the session has torn down.
func (s *Session) Finished() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Start connects playback and plays every round, returning when the last round
// resolves, the session is ended, or ctx is cancelled.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		if s.Finished() {
			return domain.ErrSessionClosed
		}
		return domain.ErrAlreadyInProgress
	}
	defer s.close()

	if len(s.questions) == 0 {
		return domain.ErrNoQuestions
	}
	voice, err := s.playback.Connect(ctx, s.target)
	if err != nil {
		return fmt.Errorf("connect playback: %w", err)
	}
	s.voice = voice
	s.inProgress.Store(true)
	s.looping.Store(true)
	s.log.Info().Int("questions", len(s.questions)).Str("target", s.target).Msg("starting quiz")

	return s.run(ctx)
}

// SubmitAnswer queues player's guess for the armed round. It is a no-op when no round is armed.
func (s *Session) SubmitAnswer(ctx context.Context, player, text string) error {
	num := s.armed.Load()
	if num == 0 {
		return nil
	}
	select {
	case s.answers <- answerCmd{round: num, player: player, text: text}:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SkipRound resolves the current round with no winner and moves on.
func (s *Session) SkipRound(ctx context.Context) error {
	if !s.inProgress.Load() {
		return domain.ErrNoActiveRound
	}
	reply := make(chan error, 1)
	select {
	case s.control <- skipCmd{reply: reply}:
	case <-s.done:
		return domain.ErrNoActiveRound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End stops the session. Calling it again, or after the session finished, does nothing.
func (s *Session) End(ctx context.Context) error {
	if s.started.CompareAndSwap(false, true) {
		s.close()
		return nil
	}
	reply := make(chan struct{})
	select {
	case s.control <- endCmd{reply: reply}:
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-reply:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Scores returns the scoreboard ordered by descending score.
func (s *Session) Scores(ctx context.Context) ([]domain.ScoreEntry, error) {
	if !s.looping.Load() {
		// no round has been played yet, or Start gave up before the loop ran
		select {
		case <-s.done:
			return append([]domain.ScoreEntry(nil), s.final...), nil
		default:
			return []domain.ScoreEntry{}, nil
		}
	}
	reply := make(chan []domain.ScoreEntry, 1)
	select {
	case s.control <- scoresCmd{reply: reply}:
	case <-s.done:
		return append([]domain.ScoreEntry(nil), s.final...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case scores := <-reply:
		return scores, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.inProgress.Store(false)
		close(s.done)
	})
}

func (s *Session) run(ctx context.Context) error {
	s.prepare(ctx)
	for !s.over {
		select {
		case a := <-s.answers:
			s.handleAnswer(ctx, a)
		case cmd := <-s.control:
			s.handleControl(ctx, cmd)
		case p := <-s.prepared:
			s.handlePrepared(ctx, p)
		case r := <-s.expired:
			s.handleExpired(ctx, r)
		case <-ctx.Done():
			s.log.Info().Msg("context cancelled, stopping quiz")
			s.teardown()
			return ctx.Err()
		}
	}
	return nil
}

// prepare waits out any lingering playback and fetches audio for the current question
// off the loop, delivering the result on s.prepared.
func (s *Session) prepare(ctx context.Context) {
	idx := s.index
	q := s.questions[idx]
	pctx, cancel := context.WithCancel(ctx)
	s.cancelPrepare = cancel

	go func() {
		audio, err := s.fetchWhenIdle(pctx, q)
		select {
		case s.prepared <- audioReady{index: idx, audio: audio, err: err}:
		case <-s.done:
		}
	}()
}

func (s *Session) fetchWhenIdle(ctx context.Context, q domain.Question) ([]byte, error) {
	for s.voice.IsPlaying() {
		t := s.clock.NewTimer(s.settings.PollInterval)
		select {
		case <-t.C():
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	return s.audio.FetchAudio(ctx, q.ID)
}

func (s *Session) handlePrepared(ctx context.Context, p audioReady) {
	if p.index != s.index || s.round != nil || ctx.Err() != nil {
		return
	}
	s.cancelPrepare()
	s.cancelPrepare = nil

	q := s.questions[p.index]
	if p.err != nil {
		s.log.Error().Err(p.err).Str("song", q.ID).Msg("fetching audio failed, skipping round")
		s.notify(ctx, domain.Message{Text: audioFailedNotice})
		s.advance(ctx)
		return
	}
	if err := s.voice.Play(bytes.NewReader(p.audio)); err != nil {
		s.log.Error().Err(err).Str("song", q.ID).Msg("starting playback failed, skipping round")
		s.notify(ctx, domain.Message{Text: audioFailedNotice})
		s.advance(ctx)
		return
	}
	s.arm(ctx, q)
}

func (s *Session) arm(ctx context.Context, q domain.Question) {
	num := s.index + 1
	r := round.New(num, q)
	t := timer.New(s.clock, s.settings.RoundDuration, func() error {
		select {
		case s.expired <- r:
			return nil
		case <-s.done:
			return domain.ErrSessionClosed
		}
	})
	if err := t.Start(); err != nil {
		panic(fmt.Sprintf("round %d timer: %v", num, err))
	}
	s.round, s.timer = r, t
	s.armed.Store(int64(num))

	s.log.Debug().Int("round", num).Str("song", q.ID).Msg("round armed")
	s.notify(ctx, RoundStartMessage(num, len(s.questions), s.settings.RoundDuration))
}

func (s *Session) handleAnswer(ctx context.Context, a answerCmd) {
	r := s.round
	if r == nil || r.Resolved() || int64(r.Number()) != a.round {
		return
	}
	if !s.matcher.IsCorrect(r.Question().Answers(), a.text) {
		return
	}
	s.cancelTimer()
	if !r.Win(a.player, a.text) {
		return
	}
	s.ledger.AddPoints(a.player, s.settings.PointsPerRound)
	s.log.Info().Int("round", r.Number()).Str("player", a.player).Msg("round won")
	s.finishRound(ctx)
}

func (s *Session) handleExpired(ctx context.Context, r *round.State) {
	if r != s.round || !r.TimeOut() {
		return
	}
	s.log.Info().Int("round", r.Number()).Msg("round timed out")
	s.finishRound(ctx)
}

func (s *Session) handleControl(ctx context.Context, cmd any) {
	switch c := cmd.(type) {
	case skipCmd:
		s.skip(ctx)
		c.reply <- nil
	case endCmd:
		s.log.Info().Msg("quiz ended by command")
		s.teardown()
		close(c.reply)
	case scoresCmd:
		c.reply <- s.ledger.Scores()
	}
}

func (s *Session) skip(ctx context.Context) {
	if s.round != nil {
		s.log.Info().Int("round", s.round.Number()).Msg("skipping round")
		s.cancelTimer()
		s.round.TimeOut()
		s.finishRound(ctx)
		return
	}
	// Audio is still being prepared; drop this question.
	s.log.Info().Int("round", s.index+1).Msg("skipping round before it started")
	if s.cancelPrepare != nil {
		s.cancelPrepare()
		s.cancelPrepare = nil
	}
	s.advance(ctx)
}

func (s *Session) finishRound(ctx context.Context) {
	r := s.round
	out, _ := r.Outcome()
	s.armed.Store(0)
	s.round, s.timer = nil, nil

	s.notify(ctx, RoundResultMessage(r.Question(), out, s.settings.PointsPerRound))
	s.stopPlayback()
	s.advance(ctx)
}

func (s *Session) advance(ctx context.Context) {
	s.index++
	if s.index < len(s.questions) {
		s.prepare(ctx)
		return
	}
	s.log.Info().Msg("all rounds played")
	s.notify(ctx, ScoresMessage(finalScoresTitle, s.ledger.Scores(), s.settings.ScoreboardSize))
	s.teardown()
}

// cancelTimer stops the round timer. A timer that has already fired is fine:
// its expiry reaches the loop after the round is resolved and is ignored.
func (s *Session) cancelTimer() {
	if s.timer == nil {
		return
	}
	if err := s.timer.Cancel(); err != nil && !errors.Is(err, timer.ErrInvalidState) {
		s.log.Warn().Err(err).Msg("cancel round timer")
	}
}

func (s *Session) teardown() {
	s.cancelTimer()
	if s.round != nil {
		s.round.TimeOut()
	}
	s.armed.Store(0)
	s.round, s.timer = nil, nil
	if s.cancelPrepare != nil {
		s.cancelPrepare()
		s.cancelPrepare = nil
	}

	s.stopPlayback()
	if err := s.voice.Disconnect(); err != nil {
		s.log.Warn().Err(err).Msg("disconnect playback")
	}
	s.final = s.ledger.Scores()
	s.inProgress.Store(false)
	s.over = true
}

func (s *Session) stopPlayback() {
	if !s.voice.IsPlaying() {
		return
	}
	if err := s.voice.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("stop playback")
	}
}

func (s *Session) notify(ctx context.Context, msg domain.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("title", msg.Title).Msg("send notification")
	}
}
