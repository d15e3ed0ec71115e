package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"hardbrain-quiz/internal/app"
	"golang.org/x/sync/singleflight"
)

// AudioCache keeps fetched clips in memory with a TTL so replayed songs skip the backend.
type AudioCache struct {
	source app.AudioSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedAudio
}

type cachedAudio struct {
	audio     []byte
	expiresAt time.Time
}

func NewAudioCache(source app.AudioSource, ttl time.Duration) *AudioCache {
	return &AudioCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedAudio),
	}
}

func (c *AudioCache) FetchAudio(ctx context.Context, songID string) ([]byte, error) {
	if audio, ok := c.lookup(songID); ok {
		return audio, nil
	}

	// The shared fetch outlives any single caller; each caller only stops waiting on its own ctx.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(songID, func() (interface{}, error) {
		if audio, ok := c.lookup(songID); ok {
			return audio, nil
		}

		audio, err := c.source.FetchAudio(fetchCtx, songID)
		if err != nil {
			return nil, err
		}

		expiresAt := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		c.cache[songID] = cachedAudio{audio: audio, expiresAt: expiresAt}
		c.mu.Unlock()
		return audio, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *AudioCache) lookup(songID string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[songID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return entry.audio, true
}

func (c *AudioCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
