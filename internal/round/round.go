// Package round holds the state of a single question round.
package round

import (
	"sync/atomic"

	"hardbrain-quiz/internal/domain"
)

// Status is the lifecycle of a round.
type Status int32

const (
	Armed Status = iota
	Won
	TimedOut
)

func (s Status) String() string {
	switch s {
	case Armed:
		return "armed"
	case Won:
		return "won"
	case TimedOut:
		return "timed_out"
	}
	return "unknown"
}

// Outcome describes how a round was resolved.
type Outcome struct {
	Status Status
	Winner string
	Answer string
}

// State tracks one round. It is created armed and resolves exactly once.
type State struct {
	number   int
	question domain.Question

	status  atomic.Int32
	outcome atomic.Pointer[Outcome]
}

// New returns an armed round for question. number is 1-based.
func New(number int, question domain.Question) *State {
	return &State{number: number, question: question}
}

func (s *State) Number() int {
	return s.number
}

func (s *State) Question() domain.Question {
	return s.question
}

// Status reports the current status.
func (s *State) Status() Status {
	return Status(s.status.Load())
}

// Resolved reports whether the round has left Armed.
func (s *State) Resolved() bool {
	return s.Status() != Armed
}

// Win resolves the round in favour of player. It returns false if the round was already resolved.
func (s *State) Win(player, answer string) bool {
	return s.resolve(Outcome{Status: Won, Winner: player, Answer: answer})
}

// TimeOut resolves the round with no winner. It returns false if the round was already resolved.
func (s *State) TimeOut() bool {
	return s.resolve(Outcome{Status: TimedOut})
}

// Outcome returns the resolution and whether the round is resolved.
func (s *State) Outcome() (Outcome, bool) {
	o := s.outcome.Load()
	if o == nil {
		return Outcome{Status: s.Status()}, false
	}
	return *o, true
}

func (s *State) resolve(o Outcome) bool {
	if !s.status.CompareAndSwap(int32(Armed), int32(o.Status)) {
		return false
	}
	s.outcome.Store(&o)
	return true
}
