package engine

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrAlreadySubmitted is returned by mutating session operations after
// Submit has produced a result.
var ErrAlreadySubmitted = errors.New("session already submitted")

// Session owns the per-sitting state for one learner taking one test:
// a timer, an answer store, and a navigation cursor. It is constructed
// once per sitting by the host and passed around explicitly — there are
// no package-level singletons.
//
// Submit is atomic from the caller's perspective: the timer stops, the
// store freezes, and grading runs under one lock, so no answer write or
// navigation can interleave between "stop timer" and "produce result".
type Session struct {
	mu     sync.Mutex
	def    *TestDefinition
	timer  *Timer
	store  *AnswerStore
	cursor *Cursor
	result *TestResult
}

// NewSession validates the definition and assembles a fresh session.
// The timer is created paused at the full duration; call Begin to start
// the countdown.
func NewSession(def *TestDefinition) (*Session, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &Session{
		def:    def,
		timer:  NewTimer(def.DurationMinutes),
		store:  NewAnswerStore(),
		cursor: NewCursor(def),
	}, nil
}

// Definition returns the immutable definition this session grades against.
func (s *Session) Definition() *TestDefinition { return s.def }

// Timer returns the session countdown.
func (s *Session) Timer() *Timer { return s.timer }

// Cursor returns the session navigation cursor.
func (s *Session) Cursor() *Cursor { return s.cursor }

// Begin starts the countdown.
func (s *Session) Begin() {
	s.timer.Start()
}

// Answer records a wholesale selection replacement for a question.
func (s *Session) Answer(questionID uuid.UUID, optionIDs ...uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result != nil {
		return ErrAlreadySubmitted
	}
	return s.store.Set(questionID, optionIDs...)
}

// Store returns the session answer store for progress queries.
func (s *Session) Store() *AnswerStore { return s.store }

// Submitted reports whether a result has been produced.
func (s *Session) Submitted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result != nil
}

// Submit stops the timer, freezes the answer store, grades the frozen
// snapshot once, and stores the result immutably. Submission is not
// cancellable; a repeat call returns the stored result. Timer expiry is
// handled identically — the host calls Submit with whatever answers
// exist.
func (s *Session) Submit() (*TestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.result != nil {
		return s.result, nil
	}

	s.timer.Pause()
	s.store.Freeze()

	result, err := Grade(s.def, s.store.Snapshot())
	if err != nil {
		return nil, err
	}
	s.result = result
	return result, nil
}

// Result returns the stored result, or nil before submission.
func (s *Session) Result() *TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}
