package service

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"encoding/json"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// NormalizeAnswerValue turns a submitted value into the string that is stored
// and graded. Strings are accepted for every type; booleans only for true/false.
func NormalizeAnswerValue(q *model.Question, raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		if q.Type != model.QuestionTrueFalse {
			return "", errors.Wrapf(util.ErrInvalidAnswerValue, "boolean answer for %s question %d", q.Type, q.ID)
		}
		if v {
			return "true", nil
		}
		return "false", nil
	case json.RawMessage:
		var decoded interface{}
		if err := json.Unmarshal(v, &decoded); err != nil {
			return "", errors.Wrap(util.ErrInvalidAnswerValue, err.Error())
		}
		return NormalizeAnswerValue(q, decoded)
	default:
		return "", errors.Wrapf(util.ErrInvalidAnswerValue, "unsupported answer type %T for question %d", raw, q.ID)
	}
}

// GradeAnswer applies the grading rule for the question type.
func GradeAnswer(q *model.Question, value string) (bool, int) {
	correct := false
	switch q.Type {
	case model.QuestionMultipleChoice:
		if opt, ok := matchOption(q.Options, value); ok {
			correct = opt.IsCorrect
		}
	case model.QuestionTrueFalse:
		if strings.TrimSpace(q.CorrectAnswer) != "" {
			correct = sameText(value, q.CorrectAnswer)
		} else {
			for _, opt := range q.Options {
				if opt.IsCorrect {
					correct = sameText(value, opt.Text)
					break
				}
			}
		}
	case model.QuestionShortAnswer:
		correct = sameText(value, q.CorrectAnswer)
	case model.QuestionEssay:
		// full credit until a human grader overrides it
		correct = true
	}

	if correct {
		return true, q.Points
	}
	return false, 0
}

func matchOption(options []model.Option, value string) (model.Option, bool) {
	v := strings.TrimSpace(value)
	for _, opt := range options {
		if strings.TrimSpace(opt.Text) == v {
			return opt, true
		}
	}
	return model.Option{}, false
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ScoreAnswers sums awarded points and derives the rounded percentage.
func ScoreAnswers(answers []model.Answer, totalPoints int) (int, int) {
	score := 0
	for _, a := range answers {
		score += a.PointsAwarded
	}
	return score, Percentage(score, totalPoints)
}

// Percentage is round(score/total*100), or 0 when the assessment is worth nothing.
func Percentage(score, totalPoints int) int {
	if totalPoints <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(totalPoints) * 100))
}
