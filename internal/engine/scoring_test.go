package engine

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

// fixed ids so tests read deterministically
var (
	optA = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	optB = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	optC = uuid.MustParse("00000000-0000-0000-0000-00000000000c")
	optD = uuid.MustParse("00000000-0000-0000-0000-00000000000d")
)

func singleChoiceQuestion(points int, correct uuid.UUID) Question {
	q := Question{
		ID:     uuid.New(),
		Kind:   KindSingleChoice,
		Text:   "pick one",
		Points: points,
	}
	for _, id := range []uuid.UUID{optA, optB, optC, optD} {
		q.AnswerOptions = append(q.AnswerOptions, AnswerOption{
			ID:        id,
			Text:      id.String(),
			IsCorrect: id == correct,
		})
	}
	return q
}

func multiChoiceQuestion(points int, correct ...uuid.UUID) Question {
	correctSet := NewSelection(correct...)
	q := Question{
		ID:     uuid.New(),
		Kind:   KindMultipleChoice,
		Text:   "pick all that apply",
		Points: points,
	}
	for _, id := range []uuid.UUID{optA, optB, optC, optD} {
		_, ok := correctSet[id]
		q.AnswerOptions = append(q.AnswerOptions, AnswerOption{
			ID:        id,
			Text:      id.String(),
			IsCorrect: ok,
		})
	}
	return q
}

func definitionWith(questions ...Question) *TestDefinition {
	return &TestDefinition{
		ID:                  uuid.New(),
		Title:               "unit test",
		DurationMinutes:     1,
		PassingScorePercent: 70,
		QuestionCount:       len(questions),
		Sections: []Section{
			{ID: uuid.New(), Title: "Section 1", Questions: questions},
		},
	}
}

func TestGradeSingleChoice(t *testing.T) {
	tests := []struct {
		name      string
		selected  []uuid.UUID
		isCorrect bool
	}{
		{name: "correct option", selected: []uuid.UUID{optB}, isCorrect: true},
		{name: "wrong option", selected: []uuid.UUID{optA}, isCorrect: false},
		{name: "no selection", selected: nil, isCorrect: false},
		{name: "two selections including the correct one", selected: []uuid.UUID{optA, optB}, isCorrect: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := singleChoiceQuestion(2, optB)
			def := definitionWith(q)

			answers := map[uuid.UUID]Selection{}
			if tc.selected != nil {
				answers[q.ID] = NewSelection(tc.selected...)
			}

			result, err := Grade(def, answers)
			if err != nil {
				t.Fatalf("Grade returned error: %v", err)
			}

			qr := result.Sections[0].Questions[0]
			if qr.IsCorrect != tc.isCorrect {
				t.Fatalf("expected is_correct=%v, got=%v", tc.isCorrect, qr.IsCorrect)
			}
			wantPoints := 0
			if tc.isCorrect {
				wantPoints = 2
			}
			if qr.EarnedPoints != wantPoints {
				t.Fatalf("expected earned=%d, got=%d", wantPoints, qr.EarnedPoints)
			}
		})
	}
}

func TestGradeMultipleChoiceExactSetEquality(t *testing.T) {
	tests := []struct {
		name      string
		selected  []uuid.UUID
		isCorrect bool
	}{
		{name: "exact match", selected: []uuid.UUID{optA, optB}, isCorrect: true},
		{name: "different order", selected: []uuid.UUID{optB, optA}, isCorrect: true},
		{name: "subset", selected: []uuid.UUID{optA}, isCorrect: false},
		{name: "superset", selected: []uuid.UUID{optA, optB, optC}, isCorrect: false},
		{name: "disjoint", selected: []uuid.UUID{optC, optD}, isCorrect: false},
		{name: "no selection", selected: nil, isCorrect: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := multiChoiceQuestion(3, optA, optB)
			def := definitionWith(q)

			answers := map[uuid.UUID]Selection{}
			if tc.selected != nil {
				answers[q.ID] = NewSelection(tc.selected...)
			}

			result, err := Grade(def, answers)
			if err != nil {
				t.Fatalf("Grade returned error: %v", err)
			}

			qr := result.Sections[0].Questions[0]
			if qr.IsCorrect != tc.isCorrect {
				t.Fatalf("expected is_correct=%v, got=%v", tc.isCorrect, qr.IsCorrect)
			}
		})
	}
}

func TestGradeOverallAggregates(t *testing.T) {
	q1 := singleChoiceQuestion(2, optB)
	q2 := multiChoiceQuestion(3, optA, optD)
	q3 := singleChoiceQuestion(5, optC)

	def := &TestDefinition{
		ID:                  uuid.New(),
		Title:               "aggregates",
		DurationMinutes:     10,
		PassingScorePercent: 50,
		QuestionCount:       3,
		Sections: []Section{
			{ID: uuid.New(), Title: "A", Questions: []Question{q1, q2}},
			{ID: uuid.New(), Title: "B", Questions: []Question{q3}},
		},
	}

	answers := map[uuid.UUID]Selection{
		q1.ID: NewSelection(optB),       // correct, 2 pts
		q2.ID: NewSelection(optA, optB), // wrong set
		// q3 unanswered
	}

	result, err := Grade(def, answers)
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}

	if result.EarnedPoints != 2 || result.TotalPoints != 10 {
		t.Fatalf("expected 2/10 points, got %d/%d", result.EarnedPoints, result.TotalPoints)
	}
	if result.Percentage != 20 {
		t.Fatalf("expected percentage 20, got %v", result.Percentage)
	}
	if result.Passed {
		t.Fatal("expected passed=false at 20%% against a 50%% threshold")
	}
	if result.AnsweredQuestions != 2 {
		t.Fatalf("expected 2 answered, got %d", result.AnsweredQuestions)
	}
	if result.CorrectAnswers != 1 || result.IncorrectAnswers != 1 {
		t.Fatalf("expected 1 correct / 1 incorrect, got %d/%d", result.CorrectAnswers, result.IncorrectAnswers)
	}

	secA := result.Sections[0]
	if secA.EarnedPoints != 2 || secA.TotalPoints != 5 {
		t.Fatalf("section A expected 2/5 points, got %d/%d", secA.EarnedPoints, secA.TotalPoints)
	}
	if secA.Percentage != 40 {
		t.Fatalf("section A expected 40%%, got %v", secA.Percentage)
	}
}

func TestGradePassBoundary(t *testing.T) {
	q := singleChoiceQuestion(2, optB)
	def := definitionWith(q)
	def.PassingScorePercent = 100

	result, err := Grade(def, map[uuid.UUID]Selection{q.ID: NewSelection(optB)})
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if result.Percentage != 100 || !result.Passed {
		t.Fatalf("expected 100%% and passed, got %v / %v", result.Percentage, result.Passed)
	}

	wrong, err := Grade(def, map[uuid.UUID]Selection{q.ID: NewSelection(optA)})
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if wrong.Percentage != 0 || wrong.Passed {
		t.Fatalf("expected 0%% and failed, got %v / %v", wrong.Percentage, wrong.Passed)
	}
}

func TestGradeZeroPointQuestions(t *testing.T) {
	q := singleChoiceQuestion(0, optB)
	def := definitionWith(q)

	result, err := Grade(def, map[uuid.UUID]Selection{q.ID: NewSelection(optB)})
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	// Zero total points never divides by zero.
	if result.TotalPoints != 0 || result.Percentage != 0 {
		t.Fatalf("expected 0 total points and 0%%, got %d / %v", result.TotalPoints, result.Percentage)
	}
	if result.CorrectAnswers != 1 {
		t.Fatalf("zero-point correct answer should still count, got %d", result.CorrectAnswers)
	}
}

func TestGradeEmptySelectionNotAnswered(t *testing.T) {
	q := singleChoiceQuestion(2, optB)
	def := definitionWith(q)

	// An entry with an empty selection set does not count as answered.
	result, err := Grade(def, map[uuid.UUID]Selection{q.ID: NewSelection()})
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if result.AnsweredQuestions != 0 {
		t.Fatalf("expected 0 answered, got %d", result.AnsweredQuestions)
	}
	if result.IncorrectAnswers != 0 {
		t.Fatalf("unanswered question must not count as incorrect, got %d", result.IncorrectAnswers)
	}
}

func TestGradeIdempotent(t *testing.T) {
	q1 := singleChoiceQuestion(2, optB)
	q2 := multiChoiceQuestion(3, optA, optB)
	def := definitionWith(q1, q2)
	answers := map[uuid.UUID]Selection{
		q1.ID: NewSelection(optB),
		q2.ID: NewSelection(optB, optA),
	}

	first, err := Grade(def, answers)
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	second, err := Grade(def, answers)
	if err != nil {
		t.Fatalf("Grade returned error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical results from repeated grading")
	}
}

func TestGradeRefusesInvalidDefinition(t *testing.T) {
	q := singleChoiceQuestion(2, optB)
	def := definitionWith(q)
	def.QuestionCount = 99 // declared count no longer matches

	_, err := Grade(def, nil)
	if err == nil {
		t.Fatal("expected error for invalid definition")
	}
	if _, ok := err.(*InvalidDefinitionError); !ok {
		t.Fatalf("expected *InvalidDefinitionError, got %T", err)
	}
}
