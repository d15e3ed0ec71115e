package round

import (
	"sync"
	"sync/atomic"
	"testing"

	"hardbrain-quiz/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func question(t *testing.T) domain.Question {
	t.Helper()
	q, err := domain.NewQuestion("20001", "Song A", nil)
	require.NoError(t, err)
	return q
}

func TestWinResolvesOnce(t *testing.T) {
	r := New(1, question(t))
	assert.Equal(t, Armed, r.Status())
	_, resolved := r.Outcome()
	assert.False(t, resolved)

	assert.True(t, r.Win("alice", "song a"))
	assert.False(t, r.Win("bob", "song a"))
	assert.False(t, r.TimeOut())

	out, resolved := r.Outcome()
	require.True(t, resolved)
	assert.Equal(t, Outcome{Status: Won, Winner: "alice", Answer: "song a"}, out)
}

func TestTimeOut(t *testing.T) {
	r := New(2, question(t))
	assert.True(t, r.TimeOut())
	assert.True(t, r.Resolved())
	assert.False(t, r.Win("alice", "song a"))

	out, _ := r.Outcome()
	assert.Equal(t, TimedOut, out.Status)
	assert.Empty(t, out.Winner)
}

func TestConcurrentResolutionHasSingleWinner(t *testing.T) {
	r := New(1, question(t))
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 && r.Win("p", "song a") {
				wins.Add(1)
			}
			if i%2 == 1 && r.TimeOut() {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}
