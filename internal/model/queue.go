package model

import "encoding/json"

// PersistAnswerPayload is the persist_answers_queue message shape. Producers
// (the portal and websocket save paths) and the autosave worker must agree on it.
type PersistAnswerPayload struct {
	LearnerID  int      `json:"learner_id"`
	TestID     string   `json:"test_id"`
	QuestionID string   `json:"question_id"`
	OptionIDs  []string `json:"option_ids"`
}

// PersistResultPayload is the persist_results_queue message shape consumed
// by the result worker.
type PersistResultPayload struct {
	LearnerID    int             `json:"learner_id"`
	TestID       string          `json:"test_id"`
	ScorePercent float64         `json:"score_percent"`
	Passed       bool            `json:"passed"`
	Result       json.RawMessage `json:"result"`
}
