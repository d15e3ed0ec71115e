// Package ledger keeps cumulative quiz scores.
package ledger

import (
	"sort"

	"hardbrain-quiz/internal/domain"
)

type entry struct {
	score int
	// seq orders players by when they reached their current score.
	seq uint64
}

// Ledger maps players to points. It only grows.
//
// A Ledger is not safe for concurrent mutation; the session that owns it
// serialises every call through its event loop.
type Ledger struct {
	players map[string]*entry
	seq     uint64
}

func New() *Ledger {
	return &Ledger{players: make(map[string]*entry)}
}

// AddPoints credits amount to player. Non-positive amounts are ignored.
func (l *Ledger) AddPoints(player string, amount int) {
	if amount <= 0 {
		return
	}
	l.seq++
	e, ok := l.players[player]
	if !ok {
		e = &entry{}
		l.players[player] = e
	}
	e.score += amount
	e.seq = l.seq
}

// Score returns the player's points.
func (l *Ledger) Score(player string) int {
	if e, ok := l.players[player]; ok {
		return e.score
	}
	return 0
}

// Len reports how many players have scored.
func (l *Ledger) Len() int {
	return len(l.players)
}

// Scores returns every player by descending score. Ties go to whoever reached
// the score first, then by name.
func (l *Ledger) Scores() []domain.ScoreEntry {
	names := make([]string, 0, len(l.players))
	for name := range l.players {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := l.players[names[i]], l.players[names[j]]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.seq != b.seq {
			return a.seq < b.seq
		}
		return names[i] < names[j]
	})

	out := make([]domain.ScoreEntry, len(names))
	for i, name := range names {
		out[i] = domain.ScoreEntry{Player: name, Score: l.players[name].score}
	}
	return out
}

// Top returns at most n leading entries.
func (l *Ledger) Top(n int) []domain.ScoreEntry {
	all := l.Scores()
	if n < 0 {
		n = 0
	}
	if n < len(all) {
		return all[:n]
	}
	return all
}
