package domain

import (
	"strings"
)

// Question is one song round. Answers is derived once by NewQuestion and never mutated afterwards.
type Question struct {
	ID        string   `json:"id"`
	Filename  string   `json:"filename"`
	Title     string   `json:"title"`
	AltTitles []string `json:"altTitles"`
	Genre     string   `json:"genre"`
	Artist    string   `json:"artist"`

	answers map[string]struct{}
}

// NewQuestion validates a song and derives its canonical-answer set:
// the lower-cased title plus every non-empty alternate title.
func NewQuestion(id, title string, altTitles []string) (Question, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Question{}, invalidQuestion("missing song id")
	}
	if strings.TrimSpace(title) == "" {
		return Question{}, invalidQuestion("song " + id + " has no title")
	}

	q := Question{ID: id, Title: title, answers: make(map[string]struct{}, len(altTitles)+1)}
	q.answers[strings.ToLower(strings.TrimSpace(title))] = struct{}{}
	for _, alt := range altTitles {
		trimmed := strings.TrimSpace(alt)
		if trimmed == "" {
			continue
		}
		q.AltTitles = append(q.AltTitles, trimmed)
		q.answers[strings.ToLower(trimmed)] = struct{}{}
	}
	return q, nil
}

// Answers returns the canonical-answer set. The returned map must not be modified.
func (q Question) Answers() map[string]struct{} {
	return q.answers
}

// Version is the game version the song first appeared in.
func (q Question) Version() string {
	return GameVersion(q.ID)
}

// ScoreEntry is one row of a scoreboard.
type ScoreEntry struct {
	Player string `json:"player"`
	Score  int    `json:"score"`
}

// Field is a named block of a rich message.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Message is what gets announced to a channel: plain text, rich content, or both.
type Message struct {
	Text        string  `json:"text,omitempty"`
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// SongRecord is the raw song payload returned by the question backend and stored in the catalogue.
type SongRecord struct {
	SongID    string `json:"song_id"`
	Filename  string `json:"filename"`
	Title     string `json:"title"`
	AltTitles string `json:"alt_titles"`
	Genre     string `json:"genre"`
	Artist    string `json:"artist"`
}

// ToQuestion converts a backend record into a validated Question.
// Alternate titles arrive as a single ", " separated string.
func (r SongRecord) ToQuestion() (Question, error) {
	var alts []string
	if r.AltTitles != "" {
		alts = strings.Split(r.AltTitles, ", ")
	}
	q, err := NewQuestion(r.SongID, r.Title, alts)
	if err != nil {
		return Question{}, err
	}
	q.Filename = r.Filename
	q.Genre = r.Genre
	q.Artist = r.Artist
	return q, nil
}
