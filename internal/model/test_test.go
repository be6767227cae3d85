package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/estudy/estudy-backend/internal/engine"
)

func sampleDefinition() *engine.TestDefinition {
	return &engine.TestDefinition{
		ID:                  uuid.New(),
		Title:               "Sample",
		DurationMinutes:     30,
		PassingScorePercent: 70,
		QuestionCount:       1,
		Sections: []engine.Section{
			{
				ID:    uuid.New(),
				Title: "Only section",
				Questions: []engine.Question{
					{
						ID:     uuid.New(),
						Kind:   engine.KindSingleChoice,
						Text:   "Pick one",
						Points: 5,
						AnswerOptions: []engine.AnswerOption{
							{ID: uuid.New(), Text: "right", IsCorrect: true},
							{ID: uuid.New(), Text: "wrong"},
						},
					},
				},
			},
		},
	}
}

func TestPayloadFromDefinitionStripsCorrectness(t *testing.T) {
	def := sampleDefinition()
	payload := PayloadFromDefinition(def)

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if strings.Contains(string(raw), "is_correct") {
		t.Fatal("learner payload must not contain correctness flags")
	}

	if payload.TestID != def.ID {
		t.Errorf("test id = %s, want %s", payload.TestID, def.ID)
	}
	if len(payload.Sections) != 1 || len(payload.Sections[0].Questions) != 1 {
		t.Fatalf("payload structure does not mirror definition")
	}

	q := payload.Sections[0].Questions[0]
	if q.Kind != string(engine.KindSingleChoice) {
		t.Errorf("kind = %s, want %s", q.Kind, engine.KindSingleChoice)
	}
	if len(q.Options) != 2 {
		t.Errorf("options = %d, want 2", len(q.Options))
	}
	for _, opt := range q.Options {
		if opt.Text == "" || opt.ID == (uuid.UUID{}) {
			t.Errorf("option lost id or text: %+v", opt)
		}
	}
}

func TestPayloadFromDefinitionPreservesOrder(t *testing.T) {
	def := sampleDefinition()
	def.Sections = append(def.Sections, engine.Section{
		ID:    uuid.New(),
		Title: "Second section",
		Questions: []engine.Question{
			{
				ID:     uuid.New(),
				Kind:   engine.KindMultipleChoice,
				Text:   "Pick many",
				Points: 5,
				AnswerOptions: []engine.AnswerOption{
					{ID: uuid.New(), Text: "a", IsCorrect: true},
					{ID: uuid.New(), Text: "b", IsCorrect: true},
				},
			},
		},
	})
	def.QuestionCount = 2

	payload := PayloadFromDefinition(def)
	if len(payload.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(payload.Sections))
	}
	for i := range def.Sections {
		if payload.Sections[i].ID != def.Sections[i].ID {
			t.Errorf("section %d out of order", i)
		}
	}
}
