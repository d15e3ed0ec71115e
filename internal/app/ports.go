package app

import (
	"context"
	"io"

	"hardbrain-quiz/internal/domain"
)

// QuestionSource supplies the songs for a quiz.
type QuestionSource interface {
	FetchQuestions(ctx context.Context, count int, versions string) ([]domain.Question, error)
}

// AudioSource supplies the clip played for a song.
type AudioSource interface {
	FetchAudio(ctx context.Context, songID string) ([]byte, error)
}

// Playback connects to wherever audio is heard (a voice channel, a set of sockets).
type Playback interface {
	Connect(ctx context.Context, target string) (Voice, error)
}

// Voice is a connected playback handle. IsPlaying may be called concurrently with the other methods.
type Voice interface {
	Play(audio io.Reader) error
	IsPlaying() bool
	Stop() error
	Disconnect() error
}

// Notifier announces round and score updates to a channel.
type Notifier interface {
	Send(ctx context.Context, msg domain.Message) error
}

// SessionRepository tracks the running session of each channel (in-memory, Redis, etc).
type SessionRepository interface {
	// Add registers s for channelID unless a live session is already registered.
	Add(channelID string, s *Session) bool
	Get(channelID string) (*Session, bool)
	// Remove drops the registration if it still points at s.
	Remove(channelID string, s *Session)
}
