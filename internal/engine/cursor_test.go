package engine

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

// two sections: 2 questions + 1 question
func cursorFixture() *TestDefinition {
	q1 := singleChoiceQuestion(1, optA)
	q2 := singleChoiceQuestion(1, optB)
	q3 := singleChoiceQuestion(1, optC)
	def := definitionWith(q1, q2)
	def.Sections = append(def.Sections, Section{
		ID:        uuid.New(),
		Title:     "Section 2",
		Questions: []Question{q3},
	})
	def.QuestionCount = 3
	return def
}

func TestCursorForwardTraversal(t *testing.T) {
	cur := NewCursor(cursorFixture())

	steps := [][2]int{{0, 1}, {1, 0}, {1, 0}, {1, 0}}
	for i, want := range steps {
		cur.Next()
		si, qi := cur.Position()
		if si != want[0] || qi != want[1] {
			t.Fatalf("step %d: expected (%d,%d), got (%d,%d)", i, want[0], want[1], si, qi)
		}
	}
	if !cur.AtEnd() {
		t.Fatal("expected cursor at terminal position")
	}
}

func TestCursorBackwardTraversal(t *testing.T) {
	cur := NewCursor(cursorFixture())
	if err := cur.JumpTo(1, 0); err != nil {
		t.Fatalf("JumpTo returned error: %v", err)
	}

	// Crossing a section boundary lands on the last question of the
	// previous section.
	cur.Previous()
	si, qi := cur.Position()
	if si != 0 || qi != 1 {
		t.Fatalf("expected (0,1), got (%d,%d)", si, qi)
	}

	cur.Previous()
	cur.Previous() // at (0,0): no-op
	cur.Previous()
	si, qi = cur.Position()
	if si != 0 || qi != 0 {
		t.Fatalf("previous at origin must be a no-op, got (%d,%d)", si, qi)
	}
}

func TestCursorJumpToOutOfRange(t *testing.T) {
	tests := []struct {
		name     string
		section  int
		question int
	}{
		{name: "negative section", section: -1, question: 0},
		{name: "section too large", section: 2, question: 0},
		{name: "negative question", section: 0, question: -1},
		{name: "question too large for section", section: 1, question: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cur := NewCursor(cursorFixture())
			err := cur.JumpTo(tc.section, tc.question)
			var oor *OutOfRangeError
			if !errors.As(err, &oor) {
				t.Fatalf("expected *OutOfRangeError, got %v", err)
			}
			// The cursor must be left untouched.
			if si, qi := cur.Position(); si != 0 || qi != 0 {
				t.Fatalf("failed jump corrupted cursor: (%d,%d)", si, qi)
			}
		})
	}
}

func TestCursorCurrent(t *testing.T) {
	def := cursorFixture()
	cur := NewCursor(def)
	cur.Next()

	sec, q := cur.Current()
	if sec.Title != def.Sections[0].Title {
		t.Fatalf("unexpected section %q", sec.Title)
	}
	if q.ID != def.Sections[0].Questions[1].ID {
		t.Fatal("Current returned the wrong question")
	}
}

func TestCursorNotifiesSubscribers(t *testing.T) {
	cur := NewCursor(cursorFixture())
	fired := 0
	cur.OnChange(func() { fired++ })

	cur.Next()
	cur.Previous()
	_ = cur.JumpTo(1, 0)
	if fired != 3 {
		t.Fatalf("expected 3 notifications, got %d", fired)
	}

	// Boundary no-ops and failed jumps do not notify.
	fired = 0
	cur.Next() // already at the terminal position
	_ = cur.JumpTo(5, 5)
	if fired != 0 {
		t.Fatalf("no-op navigation must not notify, got %d", fired)
	}
}
