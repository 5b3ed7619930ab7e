package quiz

import (
	"github.com/google/uuid"

	"reads-backend/internal/models"
)

// Tally is the outcome of grading one submission. Total is always the number
// of authoritative questions, never the number of answers received.
type Tally struct {
	Correct int
	Wrong   int
	Total   int
}

// Score is floor(correct*100/total), or 0 for an empty tally.
func (t Tally) Score() int {
	if t.Total == 0 {
		return 0
	}
	return t.Correct * 100 / t.Total
}

// Grade compares each question's correct option with the selection recorded
// for its id. Missing selections and answers to ids outside questions count
// as wrong. Keys are compared exactly.
func Grade(questions []models.QuizQuestion, answers map[uuid.UUID]string) Tally {
	t := Tally{Total: len(questions)}
	for _, q := range questions {
		selected, ok := answers[q.ID]
		if ok && selected == q.CorrectOption {
			t.Correct++
			continue
		}
		t.Wrong++
	}
	return t
}

// AnswerMap indexes a submission by question id. When a question id repeats,
// the last selection wins.
func AnswerMap(answers []models.AnswerSubmission) map[uuid.UUID]string {
	m := make(map[uuid.UUID]string, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a.Selected
	}
	return m
}
