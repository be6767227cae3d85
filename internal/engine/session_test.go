package engine

import (
	"errors"
	"testing"
)

func TestSessionRejectsInvalidDefinition(t *testing.T) {
	def := definitionWith(singleChoiceQuestion(2, optB))
	def.QuestionCount = 42

	_, err := NewSession(def)
	var invalid *InvalidDefinitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected *InvalidDefinitionError, got %v", err)
	}
}

func TestSessionSubmitFlow(t *testing.T) {
	q := singleChoiceQuestion(2, optB)
	def := definitionWith(q)
	def.PassingScorePercent = 60

	sess, err := NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	sess.Begin()
	if !sess.Timer().Active() {
		t.Fatal("expected timer running after Begin")
	}

	if err := sess.Answer(q.ID, optB); err != nil {
		t.Fatalf("Answer returned error: %v", err)
	}

	result, err := sess.Submit()
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if !result.Passed || result.EarnedPoints != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if sess.Timer().Active() {
		t.Fatal("submit must stop the timer")
	}
	if !sess.Store().Frozen() {
		t.Fatal("submit must freeze the answer store")
	}

	// Mutation after submission is rejected.
	if err := sess.Answer(q.ID, optA); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}

	// A repeat submit returns the stored result, not a regrade.
	again, err := sess.Submit()
	if err != nil {
		t.Fatalf("repeat Submit returned error: %v", err)
	}
	if again != result {
		t.Fatal("repeat submit must return the same stored result")
	}
}

func TestSessionExpiryForcesSubmitWithPartialAnswers(t *testing.T) {
	q1 := singleChoiceQuestion(2, optB)
	q2 := singleChoiceQuestion(2, optC)
	def := definitionWith(q1, q2)
	def.PassingScorePercent = 50

	sess, err := NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	sess.Begin()
	sess.Answer(q1.ID, optB)

	// Drive the countdown to zero; the session only signals, the host
	// reacts by submitting whatever answers exist.
	for !sess.Timer().Expired() {
		sess.Timer().Tick()
	}

	result, err := sess.Submit()
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.AnsweredQuestions != 1 {
		t.Fatalf("expected 1 answered at expiry, got %d", result.AnsweredQuestions)
	}
	if result.EarnedPoints != 2 || !result.Passed {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSessionNavigationIndependentOfAnswers(t *testing.T) {
	q1 := singleChoiceQuestion(1, optA)
	q2 := singleChoiceQuestion(1, optB)
	def := definitionWith(q1, q2)

	sess, err := NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}

	sess.Cursor().Next()
	_, current := sess.Cursor().Current()
	if current.ID != q2.ID {
		t.Fatal("cursor did not advance")
	}

	// Answering never moves the cursor.
	sess.Answer(q1.ID, optA)
	if si, qi := sess.Cursor().Position(); si != 0 || qi != 1 {
		t.Fatalf("answer write moved the cursor to (%d,%d)", si, qi)
	}
}

func TestSessionResultNilBeforeSubmit(t *testing.T) {
	def := definitionWith(singleChoiceQuestion(1, optA))
	sess, err := NewSession(def)
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if sess.Result() != nil || sess.Submitted() {
		t.Fatal("no result may exist before submission")
	}
}
