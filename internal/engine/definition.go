// Package engine implements the test-taking core: an immutable test
// definition, a countdown timer, an answer store, a navigation cursor,
// and a pure grading function. It has no transport, storage, or UI
// dependencies; the surrounding service drives it and persists what it
// produces.
package engine

import (
	"fmt"

	"github.com/google/uuid"
)

// QuestionKind enumerates the supported question types.
type QuestionKind string

const (
	KindSingleChoice   QuestionKind = "SINGLE_CHOICE"
	KindMultipleChoice QuestionKind = "MULTIPLE_CHOICE"
)

// TestDefinition is the immutable, server-supplied description of a test.
// Sections are ordered and the order is significant for navigation.
type TestDefinition struct {
	ID                  uuid.UUID `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	DurationMinutes     int       `json:"duration_minutes"`
	PassingScorePercent float64   `json:"passing_score_percent"`
	QuestionCount       int       `json:"question_count"`
	Sections            []Section `json:"sections"`
}

// Section is an ordered grouping of questions within a test.
type Section struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// Question is a single gradable item. IDs are unique within the test.
type Question struct {
	ID            uuid.UUID      `json:"id"`
	Kind          QuestionKind   `json:"kind"`
	Text          string         `json:"text"`
	Points        int            `json:"points"`
	AnswerOptions []AnswerOption `json:"answer_options"`
}

// AnswerOption is one selectable choice. IDs are unique within the question.
type AnswerOption struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsCorrect bool      `json:"is_correct"`
}

// InvalidDefinitionError reports a TestDefinition that violates the data
// model invariants. Grading refuses to run against such a definition.
type InvalidDefinitionError struct {
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return "invalid test definition: " + e.Reason
}

// CorrectOptionIDs returns the set of option ids marked correct.
func (q *Question) CorrectOptionIDs() map[uuid.UUID]struct{} {
	correct := make(map[uuid.UUID]struct{})
	for _, opt := range q.AnswerOptions {
		if opt.IsCorrect {
			correct[opt.ID] = struct{}{}
		}
	}
	return correct
}

// TotalQuestions counts questions across all sections.
func (d *TestDefinition) TotalQuestions() int {
	total := 0
	for i := range d.Sections {
		total += len(d.Sections[i].Questions)
	}
	return total
}

// Validate checks the definition against the data model invariants.
// It must be called at load time; a definition that fails here must never
// reach Grade. Returns *InvalidDefinitionError describing the first
// violation found, or nil.
func (d *TestDefinition) Validate() error {
	if d.DurationMinutes <= 0 {
		return &InvalidDefinitionError{Reason: "duration must be positive"}
	}
	if d.PassingScorePercent < 0 || d.PassingScorePercent > 100 {
		return &InvalidDefinitionError{
			Reason: fmt.Sprintf("passing score %.1f outside [0,100]", d.PassingScorePercent),
		}
	}
	if len(d.Sections) == 0 {
		return &InvalidDefinitionError{Reason: "test has no sections"}
	}

	// The declared question count must match the live count; a mismatch is
	// a definition error, never silently trusted.
	if live := d.TotalQuestions(); d.QuestionCount != live {
		return &InvalidDefinitionError{
			Reason: fmt.Sprintf("declared question count %d does not match actual %d", d.QuestionCount, live),
		}
	}

	seenQuestions := make(map[uuid.UUID]struct{}, d.QuestionCount)
	for si := range d.Sections {
		sec := &d.Sections[si]
		if len(sec.Questions) == 0 {
			return &InvalidDefinitionError{
				Reason: fmt.Sprintf("section %q has no questions", sec.Title),
			}
		}
		for qi := range sec.Questions {
			q := &sec.Questions[qi]

			if _, dup := seenQuestions[q.ID]; dup {
				return &InvalidDefinitionError{
					Reason: fmt.Sprintf("duplicate question id %s", q.ID),
				}
			}
			seenQuestions[q.ID] = struct{}{}

			if q.Kind != KindSingleChoice && q.Kind != KindMultipleChoice {
				return &InvalidDefinitionError{
					Reason: fmt.Sprintf("question %s has unknown kind %q", q.ID, q.Kind),
				}
			}
			// Zero-point questions are legal (they still count toward the
			// correct-answer tally); negative points are not.
			if q.Points < 0 {
				return &InvalidDefinitionError{
					Reason: fmt.Sprintf("question %s has negative points %d", q.ID, q.Points),
				}
			}
			if len(q.AnswerOptions) == 0 {
				return &InvalidDefinitionError{
					Reason: fmt.Sprintf("question %s has no answer options", q.ID),
				}
			}

			seenOptions := make(map[uuid.UUID]struct{}, len(q.AnswerOptions))
			correctCount := 0
			for _, opt := range q.AnswerOptions {
				if _, dup := seenOptions[opt.ID]; dup {
					return &InvalidDefinitionError{
						Reason: fmt.Sprintf("question %s has duplicate option id %s", q.ID, opt.ID),
					}
				}
				seenOptions[opt.ID] = struct{}{}
				if opt.IsCorrect {
					correctCount++
				}
			}

			if correctCount == 0 {
				return &InvalidDefinitionError{
					Reason: fmt.Sprintf("question %s has no correct option", q.ID),
				}
			}
			if q.Kind == KindSingleChoice && correctCount != 1 {
				return &InvalidDefinitionError{
					Reason: fmt.Sprintf("single-choice question %s has %d correct options", q.ID, correctCount),
				}
			}
		}
	}

	return nil
}
