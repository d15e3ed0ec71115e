// Package backend talks to the song question/audio API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"hardbrain-quiz/internal/domain"

	"github.com/rs/zerolog"
)

// maxAudioBytes caps a single clip download.
const maxAudioBytes = 32 << 20

// Client implements app.QuestionSource and app.AudioSource over HTTP.
// It never retries; failures are reported as domain.ErrBackendUnavailable.
type Client struct {
	baseURL    string
	http       *http.Client
	log        zerolog.Logger
	audioLimit int64
}

// NewClient builds a client for hostname:port. An empty hostname means localhost.
func NewClient(hostname string, port int, useHTTPS bool, timeout time.Duration, log zerolog.Logger) *Client {
	if hostname == "" {
		hostname = "localhost"
	}
	if port == 0 {
		port = 8000
	}
	scheme := "http"
	if useHTTPS {
		scheme = "https"
	}
	return NewClientWithURL(fmt.Sprintf("%s://%s:%d", scheme, hostname, port), timeout, log)
}

// NewClientWithURL builds a client for an explicit base URL.
func NewClientWithURL(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: timeout},
		log:        log,
		audioLimit: maxAudioBytes,
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchQuestions requests count random songs. Malformed songs are dropped.
func (c *Client) FetchQuestions(ctx context.Context, count int, versions string) ([]domain.Question, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: number of songs must be greater than 0", domain.ErrInvalidOptions)
	}
	params := url.Values{}
	params.Set("number_of_songs", strconv.Itoa(count))
	if versions != "" {
		params.Set("version_string", versions)
	}

	body, err := c.get(ctx, "/question?"+params.Encode(), 1<<20)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode questions: %v", domain.ErrBackendUnavailable, err)
	}

	questions := make([]domain.Question, 0, len(records))
	for _, r := range records {
		q, err := r.ToQuestion()
		if err != nil {
			c.log.Warn().Err(err).Str("song", r.SongID).Msg("dropping malformed song")
			continue
		}
		questions = append(questions, q)
	}
	if len(records) > 0 && len(questions) == 0 {
		return nil, fmt.Errorf("%w: every song in the response was malformed", domain.ErrInvalidQuestion)
	}
	return questions, nil
}

// FetchAudio downloads the clip for songID.
func (c *Client) FetchAudio(ctx context.Context, songID string) ([]byte, error) {
	return c.get(ctx, "/audio/"+url.PathEscape(songID), c.audioLimit)
}

func (c *Client) get(ctx context.Context, path string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s returned %s", domain.ErrBackendUnavailable, path, resp.Status)
	}
	// read one byte past the limit so an oversized body is rejected instead of truncated
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrBackendUnavailable, path, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: GET %s body exceeds %d bytes", domain.ErrBackendUnavailable, path, limit)
	}
	return body, nil
}

// decodeRecords accepts either a list of songs or a single song object.
func decodeRecords(body []byte) ([]domain.SongRecord, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one domain.SongRecord
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, err
		}
		return []domain.SongRecord{one}, nil
	}
	var many []domain.SongRecord
	if err := json.Unmarshal(trimmed, &many); err != nil {
		return nil, err
	}
	return many, nil
}
