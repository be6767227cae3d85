package engine

import (
	"errors"

	"github.com/google/uuid"
)

// ErrStoreFrozen is returned when writing to a store that has been
// frozen for submission.
var ErrStoreFrozen = errors.New("answer store is frozen")

// Selection is the set of option ids a learner currently has selected
// for one question.
type Selection map[uuid.UUID]struct{}

// NewSelection builds a Selection from a list of option ids, dropping
// duplicates.
func NewSelection(optionIDs ...uuid.UUID) Selection {
	sel := make(Selection, len(optionIDs))
	for _, id := range optionIDs {
		sel[id] = struct{}{}
	}
	return sel
}

// Equal reports set equality in both directions.
func (s Selection) Equal(other Selection) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if _, ok := other[id]; !ok {
			return false
		}
	}
	return true
}

// SectionProgress summarizes answer coverage for one section.
type SectionProgress struct {
	TotalQuestions    int  `json:"total_questions"`
	AnsweredQuestions int  `json:"answered_questions"`
	IsCompleted       bool `json:"is_completed"`
}

// OverallProgress summarizes answer coverage for the whole test.
type OverallProgress struct {
	Total      int     `json:"total"`
	Answered   int     `json:"answered"`
	Percentage float64 `json:"percentage"`
}

// AnswerStore records the learner's current selections per question.
// It does not validate correctness; that is the grader's job. Writes are
// last-write-wins: re-answering replaces the selection wholesale.
type AnswerStore struct {
	answers     map[uuid.UUID]Selection
	frozen      bool
	subscribers []func()
}

// NewAnswerStore creates an empty store.
func NewAnswerStore() *AnswerStore {
	return &AnswerStore{answers: make(map[uuid.UUID]Selection)}
}

// OnChange registers a callback invoked after every successful Set.
func (s *AnswerStore) OnChange(fn func()) {
	s.subscribers = append(s.subscribers, fn)
}

// Set replaces the selection set for a question. An explicitly recorded
// empty selection still creates an entry. Returns ErrStoreFrozen after
// Freeze.
func (s *AnswerStore) Set(questionID uuid.UUID, optionIDs ...uuid.UUID) error {
	if s.frozen {
		return ErrStoreFrozen
	}
	s.answers[questionID] = NewSelection(optionIDs...)
	for _, fn := range s.subscribers {
		fn()
	}
	return nil
}

// Get returns the current selection for a question, or nil if the
// question has no entry.
func (s *AnswerStore) Get(questionID uuid.UUID) Selection {
	return s.answers[questionID]
}

// IsAnswered reports whether an entry exists for the question, even if
// its selection set is empty.
func (s *AnswerStore) IsAnswered(questionID uuid.UUID) bool {
	_, ok := s.answers[questionID]
	return ok
}

// Freeze makes the store read-only. Called once at submission; there is
// no thaw.
func (s *AnswerStore) Freeze() {
	s.frozen = true
}

// Frozen reports whether the store has been frozen.
func (s *AnswerStore) Frozen() bool {
	return s.frozen
}

// Snapshot returns a deep copy of the current answers, safe to grade
// against while the original keeps (or stops) changing.
func (s *AnswerStore) Snapshot() map[uuid.UUID]Selection {
	snap := make(map[uuid.UUID]Selection, len(s.answers))
	for qid, sel := range s.answers {
		cp := make(Selection, len(sel))
		for id := range sel {
			cp[id] = struct{}{}
		}
		snap[qid] = cp
	}
	return snap
}

// SectionProgress aggregates how many of a section's questions have
// store entries.
func (s *AnswerStore) SectionProgress(sec *Section) SectionProgress {
	answered := 0
	for i := range sec.Questions {
		if s.IsAnswered(sec.Questions[i].ID) {
			answered++
		}
	}
	return SectionProgress{
		TotalQuestions:    len(sec.Questions),
		AnsweredQuestions: answered,
		IsCompleted:       answered == len(sec.Questions),
	}
}

// OverallProgress aggregates coverage across the whole definition. The
// denominator is the live question count; a test with zero questions is
// a definition error caught by Validate, not handled here.
func (s *AnswerStore) OverallProgress(def *TestDefinition) OverallProgress {
	total := def.TotalQuestions()
	answered := 0
	for si := range def.Sections {
		for qi := range def.Sections[si].Questions {
			if s.IsAnswered(def.Sections[si].Questions[qi].ID) {
				answered++
			}
		}
	}
	p := OverallProgress{Total: total, Answered: answered}
	if total > 0 {
		p.Percentage = float64(answered) / float64(total) * 100
	}
	return p
}
