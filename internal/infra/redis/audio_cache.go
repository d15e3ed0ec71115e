package redis

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"hardbrain-quiz/internal/app"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// AudioCache caches song clips in Redis and falls back to the source on a miss.
// Clips are stored as: SET quiz:audio:{songID} <bytes> EX ttl
type AudioCache struct {
	client *redis.Client
	source app.AudioSource
	ttl    time.Duration
	log    zerolog.Logger
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewAudioCache(client *redis.Client, source app.AudioSource, ttl time.Duration, log zerolog.Logger) *AudioCache {
	return &AudioCache{
		client: client,
		source: source,
		ttl:    ttl,
		log:    log,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AudioCache) FetchAudio(ctx context.Context, songID string) ([]byte, error) {
	key := c.audioKey(songID)
	if audio, err := c.client.Get(ctx, key).Bytes(); err == nil {
		return audio, nil
	}

	// The shared fetch outlives any single caller; each caller only stops waiting on its own ctx.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.sf.DoChan(songID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		audio, err := c.client.Get(fetchCtx, key).Bytes()
		if err == nil {
			return audio, nil
		}
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("song", songID).Msg("redis audio lookup failed")
		}

		audio, err = c.source.FetchAudio(fetchCtx, songID)
		if err != nil {
			return nil, err
		}
		// best-effort fill; a failed write only costs a refetch
		if err := c.client.Set(fetchCtx, key, audio, c.ttlWithJitter()).Err(); err != nil {
			c.log.Warn().Err(err).Str("song", songID).Msg("redis audio store failed")
		}
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

func (c *AudioCache) audioKey(songID string) string {
	return "quiz:audio:" + songID
}

func (c *AudioCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
