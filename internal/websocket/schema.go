package websocket

import "github.com/estudy/estudy-backend/internal/engine"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestEnvelope carries every client message. Answer fields are only
// read for ActionAnswer.
type RequestEnvelope struct {
	Action     Action   `json:"action"`
	QuestionID string   `json:"question_id,omitempty"`
	OptionIDs  []string `json:"option_ids,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventPong   Event = "pong"
)

// SavedResponse acknowledges a persisted answer.
type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
}

// GradedResponse delivers the full graded result after submit.
type GradedResponse struct {
	Event  Event              `json:"event"`
	Result *engine.TestResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
