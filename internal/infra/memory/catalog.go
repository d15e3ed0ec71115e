package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"hardbrain-quiz/internal/domain"
)

// Song is a catalogue entry: question metadata plus its clip.
type Song struct {
	Question domain.Question
	Audio    []byte
}

// Catalog is a static song source backed by a slice (useful for tests/demos).
type Catalog struct {
	songs []Song

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalog(songs []Song) *Catalog {
	return &Catalog{songs: songs, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// FetchQuestions picks up to count random songs. versions is a comma separated list of
// two-digit version codes; empty means every version.
func (c *Catalog) FetchQuestions(_ context.Context, count int, versions string) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: number of songs must be greater than 0", domain.ErrInvalidOptions)
	}
	allowed := domain.ParseVersions(versions)

	var pool []domain.Question
	for _, s := range c.songs {
		if len(allowed) > 0 && !allowed[domain.VersionCode(s.Question.ID)] {
			continue
		}
		pool = append(pool, s.Question)
	}

	c.mu.Lock()
	c.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	c.mu.Unlock()
	if len(pool) > count {
		pool = pool[:count]
	}
	return pool, nil
}

func (c *Catalog) FetchAudio(_ context.Context, songID string) ([]byte, error) {
	for _, s := range c.songs {
		if s.Question.ID == songID {
			return s.Audio, nil
		}
	}
	return nil, fmt.Errorf("%w: song %s not found", domain.ErrBackendUnavailable, songID)
}
