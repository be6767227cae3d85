package engine

import "fmt"

// OutOfRangeError reports a JumpTo target outside the definition's
// bounds. The cursor is left unchanged.
type OutOfRangeError struct {
	SectionIndex  int
	QuestionIndex int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("cursor target out of range: section %d, question %d", e.SectionIndex, e.QuestionIndex)
}

// Cursor is the current (section, question) position within a test.
// Navigation is bounded, not circular: there is no wraparound from the
// last question back to the first.
type Cursor struct {
	def           *TestDefinition
	sectionIndex  int
	questionIndex int
	subscribers   []func()
}

// NewCursor positions a cursor at the first question of the first
// section of a validated definition.
func NewCursor(def *TestDefinition) *Cursor {
	return &Cursor{def: def}
}

// OnChange registers a callback invoked after every position change.
func (c *Cursor) OnChange(fn func()) {
	c.subscribers = append(c.subscribers, fn)
}

// Position returns the current (sectionIndex, questionIndex).
func (c *Cursor) Position() (int, int) {
	return c.sectionIndex, c.questionIndex
}

// Current returns the section and question under the cursor.
func (c *Cursor) Current() (*Section, *Question) {
	sec := &c.def.Sections[c.sectionIndex]
	return sec, &sec.Questions[c.questionIndex]
}

// Next advances one question, crossing into the next section when the
// current one is exhausted. No-op at the last question of the last
// section.
func (c *Cursor) Next() {
	sec := &c.def.Sections[c.sectionIndex]
	switch {
	case c.questionIndex < len(sec.Questions)-1:
		c.questionIndex++
	case c.sectionIndex < len(c.def.Sections)-1:
		c.sectionIndex++
		c.questionIndex = 0
	default:
		return
	}
	c.notify()
}

// Previous retreats one question, landing on the last question of the
// previous section at a section boundary. No-op at (0, 0).
func (c *Cursor) Previous() {
	switch {
	case c.questionIndex > 0:
		c.questionIndex--
	case c.sectionIndex > 0:
		c.sectionIndex--
		c.questionIndex = len(c.def.Sections[c.sectionIndex].Questions) - 1
	default:
		return
	}
	c.notify()
}

// JumpTo sets the position directly. Invalid indices return an
// *OutOfRangeError and never corrupt the cursor.
func (c *Cursor) JumpTo(sectionIndex, questionIndex int) error {
	if sectionIndex < 0 || sectionIndex >= len(c.def.Sections) {
		return &OutOfRangeError{SectionIndex: sectionIndex, QuestionIndex: questionIndex}
	}
	if questionIndex < 0 || questionIndex >= len(c.def.Sections[sectionIndex].Questions) {
		return &OutOfRangeError{SectionIndex: sectionIndex, QuestionIndex: questionIndex}
	}
	c.sectionIndex = sectionIndex
	c.questionIndex = questionIndex
	c.notify()
	return nil
}

// AtEnd reports whether the cursor is at the last question of the last
// section.
func (c *Cursor) AtEnd() bool {
	return c.sectionIndex == len(c.def.Sections)-1 &&
		c.questionIndex == len(c.def.Sections[c.sectionIndex].Questions)-1
}

func (c *Cursor) notify() {
	for _, fn := range c.subscribers {
		fn()
	}
}
