package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/estudy/estudy-backend/internal/engine"
)

// AttemptStatus enumerates attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt represents one learner's sitting of one test. Result columns
// stay NULL until the result worker persists the graded outcome.
type Attempt struct {
	ID           uuid.UUID       `json:"id"`
	TestID       uuid.UUID       `json:"test_id"`
	LearnerID    int             `json:"learner_id"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
	Status       AttemptStatus   `json:"status"`
	ScorePercent *float64        `json:"score_percent,omitempty"`
	Passed       *bool           `json:"passed,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
}

// BeginAttemptRequest is the payload for a learner beginning a test.
type BeginAttemptRequest struct {
	EntryToken string `json:"entry_token" binding:"required,min=4,max=20"`
}

// SaveAnswerRequest replaces the selection set for one question
// wholesale; re-answering overwrites. An empty list is a valid explicit
// selection.
type SaveAnswerRequest struct {
	QuestionID uuid.UUID   `json:"question_id" binding:"required"`
	OptionIDs  []uuid.UUID `json:"option_ids"`
}

// AttemptState is the reload snapshot for an in-progress attempt:
// everything the client needs to restore the sitting after a refresh.
type AttemptState struct {
	TestID           uuid.UUID              `json:"test_id"`
	LearnerID        int                    `json:"learner_id"`
	SavedAnswers     map[string][]uuid.UUID `json:"saved_answers"`
	SecondsRemaining int                    `json:"seconds_remaining"`
	WarningLevel     engine.WarningLevel    `json:"warning_level"`
	Progress         engine.OverallProgress `json:"progress"`
}

// LobbyStatus is the state of a test as shown in the learner lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusCompleted  LobbyStatus = "COMPLETED"
)

// LobbyTest is a test as displayed in the learner lobby.
type LobbyTest struct {
	Test
	LobbyStatus   LobbyStatus    `json:"lobby_status"`
	AttemptStatus *AttemptStatus `json:"attempt_status,omitempty"`
	ScorePercent  *float64       `json:"score_percent,omitempty"`
	Passed        *bool          `json:"passed,omitempty"`
}
