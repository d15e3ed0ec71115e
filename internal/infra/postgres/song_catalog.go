package postgres

import (
	"context"
	"errors"
	"fmt"

	"hardbrain-quiz/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
)

// SongCatalog serves questions and clips from the songs table.
type SongCatalog struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewSongCatalog(pool *pgxpool.Pool, log zerolog.Logger) *SongCatalog {
	return &SongCatalog{pool: pool, log: log}
}

const selectSongsSQL = `
SELECT id, filename, title, alt_titles, genre, artist
FROM songs
WHERE cardinality($2::text[]) = 0 OR left(id, 2) = ANY($2::text[])
ORDER BY random()
LIMIT $1`

// FetchQuestions picks count random songs, optionally restricted to version codes ("25,26").
func (c *SongCatalog) FetchQuestions(ctx context.Context, count int, versions string) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: number of songs must be greater than 0", domain.ErrInvalidOptions)
	}
	codes := make([]string, 0)
	for code := range domain.ParseVersions(versions) {
		codes = append(codes, code)
	}

	rows, err := c.pool.Query(ctx, selectSongsSQL, count, codes)
	if err != nil {
		return nil, fmt.Errorf("%w: query songs: %v", domain.ErrBackendUnavailable, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var r domain.SongRecord
		if err := rows.Scan(&r.SongID, &r.Filename, &r.Title, &r.AltTitles, &r.Genre, &r.Artist); err != nil {
			return nil, fmt.Errorf("%w: scan song: %v", domain.ErrBackendUnavailable, err)
		}
		q, err := r.ToQuestion()
		if err != nil {
			c.log.Warn().Err(err).Str("song", r.SongID).Msg("dropping malformed song")
			continue
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read songs: %v", domain.ErrBackendUnavailable, err)
	}
	return questions, nil
}

// FetchAudio loads the clip stored for songID.
func (c *SongCatalog) FetchAudio(ctx context.Context, songID string) ([]byte, error) {
	var audio []byte
	err := c.pool.QueryRow(ctx, `SELECT audio FROM songs WHERE id=$1`, songID).Scan(&audio)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: song %s not found", domain.ErrBackendUnavailable, songID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load audio: %v", domain.ErrBackendUnavailable, err)
	}
	return audio, nil
}
