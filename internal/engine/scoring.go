package engine

import "github.com/google/uuid"

// QuestionResult is the graded outcome for one question.
type QuestionResult struct {
	QuestionID   uuid.UUID `json:"question_id"`
	IsCorrect    bool      `json:"is_correct"`
	EarnedPoints int       `json:"earned_points"`
	Points       int       `json:"points"`
	Answered     bool      `json:"answered"`
}

// SectionResult aggregates graded questions within one section.
type SectionResult struct {
	SectionID    uuid.UUID        `json:"section_id"`
	Title        string           `json:"title"`
	EarnedPoints int              `json:"earned_points"`
	TotalPoints  int              `json:"total_points"`
	Percentage   float64          `json:"percentage"`
	Questions    []QuestionResult `json:"questions"`
}

// TestResult is the immutable grading report for one submission.
type TestResult struct {
	TestID            uuid.UUID       `json:"test_id"`
	EarnedPoints      int             `json:"earned_points"`
	TotalPoints       int             `json:"total_points"`
	Percentage        float64         `json:"percentage"`
	Passed            bool            `json:"passed"`
	CorrectAnswers    int             `json:"correct_answers"`
	IncorrectAnswers  int             `json:"incorrect_answers"`
	AnsweredQuestions int             `json:"answered_questions"`
	TotalQuestions    int             `json:"total_questions"`
	Sections          []SectionResult `json:"sections"`
}

// Grade scores the collected answers against the definition. It is a
// pure function: same inputs, same output, no hidden state. The
// definition is validated first and grading refuses to run against an
// invalid one rather than produce a misleading score.
//
// Correctness rules:
//   - single-choice: exactly one option selected, and it is the correct one;
//   - multiple-choice: the selected set equals the correct set exactly —
//     neither a subset nor a superset earns anything.
//
// A question only counts as answered when its selection is non-empty;
// incorrect = answered and not correct.
func Grade(def *TestDefinition, answers map[uuid.UUID]Selection) (*TestResult, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	result := &TestResult{
		TestID:         def.ID,
		TotalQuestions: def.TotalQuestions(),
		Sections:       make([]SectionResult, 0, len(def.Sections)),
	}

	for si := range def.Sections {
		sec := &def.Sections[si]
		secResult := SectionResult{
			SectionID: sec.ID,
			Title:     sec.Title,
			Questions: make([]QuestionResult, 0, len(sec.Questions)),
		}

		for qi := range sec.Questions {
			q := &sec.Questions[qi]
			selection := answers[q.ID]

			qr := QuestionResult{
				QuestionID: q.ID,
				Points:     q.Points,
				Answered:   len(selection) > 0,
				IsCorrect:  isCorrect(q, selection),
			}
			if qr.IsCorrect {
				qr.EarnedPoints = q.Points
			}

			secResult.TotalPoints += q.Points
			secResult.EarnedPoints += qr.EarnedPoints
			if qr.Answered {
				result.AnsweredQuestions++
			}
			if qr.IsCorrect {
				result.CorrectAnswers++
			} else if qr.Answered {
				result.IncorrectAnswers++
			}

			secResult.Questions = append(secResult.Questions, qr)
		}

		if secResult.TotalPoints > 0 {
			secResult.Percentage = float64(secResult.EarnedPoints) / float64(secResult.TotalPoints) * 100
		}

		result.EarnedPoints += secResult.EarnedPoints
		result.TotalPoints += secResult.TotalPoints
		result.Sections = append(result.Sections, secResult)
	}

	if result.TotalPoints > 0 {
		result.Percentage = float64(result.EarnedPoints) / float64(result.TotalPoints) * 100
	}
	result.Passed = result.Percentage >= def.PassingScorePercent

	return result, nil
}

func isCorrect(q *Question, selection Selection) bool {
	correct := q.CorrectOptionIDs()

	switch q.Kind {
	case KindSingleChoice:
		if len(selection) != 1 {
			return false
		}
		for id := range selection {
			if _, ok := correct[id]; !ok {
				return false
			}
		}
		return true
	case KindMultipleChoice:
		return selection.Equal(correct)
	default:
		return false
	}
}
