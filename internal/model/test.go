package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/estudy/estudy-backend/internal/engine"
)

// TestStatus enumerates the lifecycle states of a test.
type TestStatus string

const (
	TestStatusDraft     TestStatus = "DRAFT"
	TestStatusPublished TestStatus = "PUBLISHED"
	TestStatusArchived  TestStatus = "ARCHIVED"
)

// Test is the stored aggregate a learner sits. Sections, questions, and
// options live in their own tables; QuestionCount is maintained to match
// the live count and revalidated at publish time.
type Test struct {
	ID                  uuid.UUID  `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	AuthorID            int        `json:"author_id"`
	DurationMinutes     int        `json:"duration_minutes"`
	PassingScorePercent float64    `json:"passing_score_percent"`
	QuestionCount       int        `json:"question_count"`
	EntryToken          string     `json:"entry_token,omitempty"`
	Status              TestStatus `json:"status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// CreateTestRequest is the payload for creating a new draft test.
type CreateTestRequest struct {
	Title               string  `json:"title" binding:"required,min=3,max=255"`
	Description         string  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes     int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	PassingScorePercent float64 `json:"passing_score_percent" binding:"min=0,max=100"`
	EntryToken          string  `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// UpdateTestRequest is the payload for updating a draft test.
type UpdateTestRequest struct {
	Title               string   `json:"title" binding:"omitempty,min=3,max=255"`
	Description         *string  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes     int      `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	PassingScorePercent *float64 `json:"passing_score_percent" binding:"omitempty,min=0,max=100"`
	EntryToken          string   `json:"entry_token" binding:"omitempty,min=4,max=20"`
}

// ReplaceStructureRequest bulk-replaces a draft test's sections,
// questions, and options in one shot.
type ReplaceStructureRequest struct {
	Sections []SectionInput `json:"sections" binding:"required,min=1,dive"`
}

// SectionInput is one section in a structure replacement.
type SectionInput struct {
	Title       string          `json:"title" binding:"required,min=1,max=255"`
	Description string          `json:"description" binding:"omitempty,max=2000"`
	Questions   []QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

// QuestionInput is one question in a structure replacement.
type QuestionInput struct {
	Kind    string        `json:"kind" binding:"required,oneof=SINGLE_CHOICE MULTIPLE_CHOICE"`
	Text    string        `json:"text" binding:"required,min=1,max=2000"`
	Points  int           `json:"points" binding:"min=0,max=100"`
	Options []OptionInput `json:"options" binding:"required,min=2,dive"`
}

// OptionInput is one answer option in a structure replacement.
type OptionInput struct {
	Text      string `json:"text" binding:"required,min=1,max=1000"`
	IsCorrect bool   `json:"is_correct"`
}

// ─── Learner-facing payload (no correct answers) ────────────────────

// TestPayload is the Redis-cached snapshot sent to learners. Option
// correctness is stripped; the grading definition is cached separately.
type TestPayload struct {
	TestID              uuid.UUID        `json:"test_id"`
	Title               string           `json:"title"`
	Description         string           `json:"description,omitempty"`
	DurationMinutes     int              `json:"duration_minutes"`
	PassingScorePercent float64          `json:"passing_score_percent"`
	QuestionCount       int              `json:"question_count"`
	Sections            []SectionPayload `json:"sections"`
}

// SectionPayload is a learner-safe section.
type SectionPayload struct {
	ID          uuid.UUID         `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Questions   []QuestionPayload `json:"questions"`
}

// QuestionPayload is a learner-safe question.
type QuestionPayload struct {
	ID      uuid.UUID       `json:"id"`
	Kind    string          `json:"kind"`
	Text    string          `json:"text"`
	Points  int             `json:"points"`
	Options []OptionPayload `json:"options"`
}

// OptionPayload is a learner-safe answer option.
type OptionPayload struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// PayloadFromDefinition strips grading data from a full definition.
func PayloadFromDefinition(def *engine.TestDefinition) *TestPayload {
	payload := &TestPayload{
		TestID:              def.ID,
		Title:               def.Title,
		Description:         def.Description,
		DurationMinutes:     def.DurationMinutes,
		PassingScorePercent: def.PassingScorePercent,
		QuestionCount:       def.QuestionCount,
		Sections:            make([]SectionPayload, 0, len(def.Sections)),
	}
	for si := range def.Sections {
		sec := &def.Sections[si]
		sp := SectionPayload{
			ID:          sec.ID,
			Title:       sec.Title,
			Description: sec.Description,
			Questions:   make([]QuestionPayload, 0, len(sec.Questions)),
		}
		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			qp := QuestionPayload{
				ID:      q.ID,
				Kind:    string(q.Kind),
				Text:    q.Text,
				Points:  q.Points,
				Options: make([]OptionPayload, 0, len(q.AnswerOptions)),
			}
			for _, opt := range q.AnswerOptions {
				qp.Options = append(qp.Options, OptionPayload{ID: opt.ID, Text: opt.Text})
			}
			sp.Questions = append(sp.Questions, qp)
		}
		payload.Sections = append(payload.Sections, sp)
	}
	return payload
}
