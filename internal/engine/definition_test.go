package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(def *TestDefinition)
		wantErr string // substring of the error, empty means valid
	}{
		{
			name:   "valid definition",
			mutate: func(def *TestDefinition) {},
		},
		{
			name:    "declared count mismatch",
			mutate:  func(def *TestDefinition) { def.QuestionCount = 7 },
			wantErr: "does not match",
		},
		{
			name:    "zero duration",
			mutate:  func(def *TestDefinition) { def.DurationMinutes = 0 },
			wantErr: "duration",
		},
		{
			name:    "passing score above 100",
			mutate:  func(def *TestDefinition) { def.PassingScorePercent = 101 },
			wantErr: "passing score",
		},
		{
			name:    "no sections",
			mutate:  func(def *TestDefinition) { def.Sections = nil; def.QuestionCount = 0 },
			wantErr: "no sections",
		},
		{
			name: "empty section",
			mutate: func(def *TestDefinition) {
				def.Sections = append(def.Sections, Section{ID: uuid.New(), Title: "empty"})
			},
			wantErr: "no questions",
		},
		{
			name: "duplicate question id across sections",
			mutate: func(def *TestDefinition) {
				dup := def.Sections[0].Questions[0]
				def.Sections = append(def.Sections, Section{
					ID: uuid.New(), Title: "extra", Questions: []Question{dup},
				})
				def.QuestionCount = 3
			},
			wantErr: "duplicate question id",
		},
		{
			name: "unknown question kind",
			mutate: func(def *TestDefinition) {
				def.Sections[0].Questions[0].Kind = "ESSAY"
			},
			wantErr: "unknown kind",
		},
		{
			name: "negative points",
			mutate: func(def *TestDefinition) {
				def.Sections[0].Questions[0].Points = -1
			},
			wantErr: "negative points",
		},
		{
			name: "question without options",
			mutate: func(def *TestDefinition) {
				def.Sections[0].Questions[0].AnswerOptions = nil
			},
			wantErr: "no answer options",
		},
		{
			name: "no correct option",
			mutate: func(def *TestDefinition) {
				opts := def.Sections[0].Questions[1].AnswerOptions
				for i := range opts {
					opts[i].IsCorrect = false
				}
			},
			wantErr: "no correct option",
		},
		{
			name: "single-choice with two correct options",
			mutate: func(def *TestDefinition) {
				def.Sections[0].Questions[0].AnswerOptions[0].IsCorrect = true
				def.Sections[0].Questions[0].AnswerOptions[1].IsCorrect = true
			},
			wantErr: "correct options",
		},
		{
			name: "duplicate option id within question",
			mutate: func(def *TestDefinition) {
				q := &def.Sections[0].Questions[0]
				q.AnswerOptions[1].ID = q.AnswerOptions[0].ID
			},
			wantErr: "duplicate option id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			def := definitionWith(
				singleChoiceQuestion(2, optB),
				multiChoiceQuestion(3, optA, optC),
			)
			tc.mutate(def)

			err := def.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid definition, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			var invalid *InvalidDefinitionError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected *InvalidDefinitionError, got %T", err)
			}
			if !strings.Contains(invalid.Reason, tc.wantErr) {
				t.Fatalf("expected reason containing %q, got %q", tc.wantErr, invalid.Reason)
			}
		})
	}
}
