package app_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"hardbrain-quiz/internal/app"
	"hardbrain-quiz/internal/clock"
	"hardbrain-quiz/internal/domain"
	"hardbrain-quiz/internal/match"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const roundDuration = 30 * time.Second

var errAudio = errors.New("audio backend down")

type fakeAudio struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]bool
}

func (a *fakeAudio) FetchAudio(_ context.Context, songID string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, songID)
	if a.failing[songID] {
		return nil, errAudio
	}
	return []byte("audio:" + songID), nil
}

func (a *fakeAudio) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

type fakeVoice struct {
	mu          sync.Mutex
	playing     bool
	plays       int
	stops       int
	disconnects int
}

func (v *fakeVoice) Connect(context.Context, string) (app.Voice, error) {
	return v, nil
}

func (v *fakeVoice) Play(audio io.Reader) error {
	if _, err := io.ReadAll(audio); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = true
	v.plays++
	return nil
}

func (v *fakeVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

func (v *fakeVoice) Stop() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = false
	v.stops++
	return nil
}

func (v *fakeVoice) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnects++
	return nil
}

func (v *fakeVoice) setPlaying(p bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = p
}

func (v *fakeVoice) counts() (plays, disconnects int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.plays, v.disconnects
}

type recordingNotifier struct {
	msgs chan domain.Message
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{msgs: make(chan domain.Message, 64)}
}

func (n *recordingNotifier) Send(_ context.Context, msg domain.Message) error {
	n.msgs <- msg
	return nil
}

// next returns the next announced message.
func (n *recordingNotifier) next(t *testing.T) domain.Message {
	t.Helper()
	select {
	case msg := <-n.msgs:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a message")
		return domain.Message{}
	}
}

func (n *recordingNotifier) expectTitle(t *testing.T, title string) domain.Message {
	t.Helper()
	msg := n.next(t)
	require.Equal(t, title, msg.Title, "message %+v", msg)
	return msg
}

func songs(t *testing.T, titles ...string) []domain.Question {
	t.Helper()
	out := make([]domain.Question, len(titles))
	for i, title := range titles {
		q, err := domain.NewQuestion("3100"+string(rune('1'+i)), title, nil)
		require.NoError(t, err)
		out[i] = q
	}
	return out
}

type harness struct {
	clock    *clock.Fake
	audio    *fakeAudio
	voice    *fakeVoice
	notifier *recordingNotifier
	session  *app.Session
	result   chan error
}

func newHarness(t *testing.T, questions []domain.Question) *harness {
	t.Helper()
	h := &harness{
		clock:    clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		audio:    &fakeAudio{failing: map[string]bool{}},
		voice:    &fakeVoice{},
		notifier: newRecordingNotifier(),
		result:   make(chan error, 1),
	}
	h.session = app.NewSession("channel-1", "voice-1", questions, app.Settings{
		RoundDuration:  roundDuration,
		PointsPerRound: 3,
		ScoreboardSize: 5,
		PollInterval:   50 * time.Millisecond,
	}, app.SessionDeps{
		Audio:    h.audio,
		Playback: h.voice,
		Notifier: h.notifier,
		Matcher:  match.NewMatcher(match.DefaultThreshold),
		Clock:    h.clock,
		Logger:   zerolog.Nop(),
	})
	return h
}

func (h *harness) start() {
	go func() { h.result <- h.session.Start(context.Background()) }()
}

func (h *harness) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-h.result:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
		return nil
	}
}
