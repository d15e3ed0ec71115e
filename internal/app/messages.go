package app

import (
	"fmt"
	"strings"
	"time"

	"hardbrain-quiz/internal/domain"
	"hardbrain-quiz/internal/round"
)

const (
	finalScoresTitle   = "Game ending. Thank you for playing!"
	currentScoresTitle = "Current Scores"
	audioFailedNotice  = "An error occurred while loading the next song, skipping round"
)

// RoundStartMessage announces round current of total.
func RoundStartMessage(current, total int, limit time.Duration) domain.Message {
	return domain.Message{
		Title:       fmt.Sprintf("Round %d/%d", current, total),
		Description: fmt.Sprintf("You have %d seconds to type the name of the song", int(limit.Seconds())),
	}
}

// RoundResultMessage reveals the song and who, if anyone, guessed it.
func RoundResultMessage(q domain.Question, out round.Outcome, points int) domain.Message {
	msg := domain.Message{Title: "No one got the correct answer..."}
	if out.Status == round.Won {
		msg.Title = out.Winner + " got the correct answer"
		msg.Description = fmt.Sprintf("%d points go to %s", points, out.Winner)
	}

	msg.Fields = append(msg.Fields,
		domain.Field{Name: "Song Title", Value: q.Title},
		domain.Field{Name: "Song Artist", Value: q.Artist},
		domain.Field{Name: "Genre", Value: q.Genre},
	)
	if len(q.AltTitles) > 0 {
		quoted := make([]string, len(q.AltTitles))
		for i, alt := range q.AltTitles {
			quoted[i] = "`" + alt + "`"
		}
		msg.Fields = append(msg.Fields, domain.Field{Name: "Alternate Titles", Value: strings.Join(quoted, ", ")})
	}
	msg.Fields = append(msg.Fields, domain.Field{Name: "Game Version", Value: q.Version()})
	return msg
}

// ScoresMessage renders the leading entries of a scoreboard.
func ScoresMessage(title string, entries []domain.ScoreEntry, limit int) domain.Message {
	if len(entries) == 0 {
		return domain.Message{
			Title:  title,
			Fields: []domain.Field{{Name: "Results", Value: "No one got any points!"}},
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("#%d: %s - `%d`", i+1, e.Player, e.Score)
	}
	name := fmt.Sprintf("Top %d Player", len(entries))
	if len(entries) != 1 {
		name += "s"
	}
	return domain.Message{
		Title:  title,
		Fields: []domain.Field{{Name: name, Value: strings.Join(lines, "\n")}},
	}
}

// CurrentScoresMessage is the scoreboard shown on request mid-game.
func CurrentScoresMessage(entries []domain.ScoreEntry, limit int) domain.Message {
	return ScoresMessage(currentScoresTitle, entries, limit)
}
