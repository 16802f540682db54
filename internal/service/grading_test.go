package service_test

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/service"
	"assessment_engine/internal/util"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGradeAnswer(t *testing.T) {
	mc := &model.Question{
		Type:   model.QuestionMultipleChoice,
		Points: 4,
		Options: []model.Option{
			{Text: "goroutine", IsCorrect: true},
			{Text: "thread"},
		},
	}
	tfByAnswer := &model.Question{Type: model.QuestionTrueFalse, Points: 2, CorrectAnswer: "True"}
	tfByOption := &model.Question{
		Type:    model.QuestionTrueFalse,
		Points:  2,
		Options: []model.Option{{Text: "True"}, {Text: "False", IsCorrect: true}},
	}
	short := &model.Question{Type: model.QuestionShortAnswer, Points: 3, CorrectAnswer: "Channel"}
	essay := &model.Question{Type: model.QuestionEssay, Points: 10}

	tests := []struct {
		name    string
		q       *model.Question
		value   string
		correct bool
		points  int
	}{
		{"multiple choice correct option", mc, "goroutine", true, 4},
		{"multiple choice wrong option", mc, "thread", false, 0},
		{"multiple choice unmatched value", mc, "process", false, 0},
		{"multiple choice trims", mc, "  goroutine ", true, 4},
		{"true/false against correctAnswer ignores case", tfByAnswer, "true", true, 2},
		{"true/false against correctAnswer wrong", tfByAnswer, "False", false, 0},
		{"true/false falls back to correct option", tfByOption, " false", true, 2},
		{"true/false option fallback wrong", tfByOption, "True", false, 0},
		{"short answer case-insensitive", short, "  channel ", true, 3},
		{"short answer wrong", short, "mutex", false, 0},
		{"essay always correct", essay, "", true, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			correct, points := service.GradeAnswer(tt.q, tt.value)
			assert.Equal(t, tt.correct, correct)
			assert.Equal(t, tt.points, points)
		})
	}
}

func TestNormalizeAnswerValue(t *testing.T) {
	tf := &model.Question{Type: model.QuestionTrueFalse}
	short := &model.Question{Type: model.QuestionShortAnswer}

	v, err := service.NormalizeAnswerValue(tf, false)
	require.NoError(t, err)
	assert.Equal(t, "false", v)

	v, err = service.NormalizeAnswerValue(tf, json.RawMessage(`true`))
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	v, err = service.NormalizeAnswerValue(short, json.RawMessage(`"defer"`))
	require.NoError(t, err)
	assert.Equal(t, "defer", v)

	for _, bad := range []interface{}{
		true,
		12,
		nil,
		[]string{"a"},
		json.RawMessage(`{"x":1}`),
		json.RawMessage(``),
	} {
		_, err := service.NormalizeAnswerValue(short, bad)
		assert.True(t, errors.Is(err, util.ErrInvalidAnswerValue), "value %#v", bad)
	}
}

func TestScoreAnswers(t *testing.T) {
	answers := []model.Answer{{PointsAwarded: 10}, {PointsAwarded: 0}, {PointsAwarded: 5}}
	score, pct := service.ScoreAnswers(answers, 30)
	assert.Equal(t, 15, score)
	assert.Equal(t, 50, pct)

	assert.Equal(t, 67, service.Percentage(2, 3))
	assert.Equal(t, 33, service.Percentage(1, 3))
	assert.Equal(t, 0, service.Percentage(0, 0))
	assert.Equal(t, 0, service.Percentage(5, 0))
}

func TestNormalizeOptions(t *testing.T) {
	opts, err := service.NormalizeOptions(json.RawMessage(`["A", "B", "C"]`), "b")
	require.NoError(t, err)
	assert.Equal(t, []model.Option{{Text: "A"}, {Text: "B", IsCorrect: true}, {Text: "C"}}, opts)

	opts, err = service.NormalizeOptions(json.RawMessage(`[{"text":"x","isCorrect":true},"y"]`), "")
	require.NoError(t, err)
	assert.Equal(t, []model.Option{{Text: "x", IsCorrect: true}, {Text: "y"}}, opts)

	opts, err = service.NormalizeOptions(nil, "")
	require.NoError(t, err)
	assert.Empty(t, opts)

	_, err = service.NormalizeOptions(json.RawMessage(`{"text":"x"}`), "")
	assert.True(t, errors.Is(err, util.ErrInvalidDefinition))

	_, err = service.NormalizeOptions(json.RawMessage(`[1, 2]`), "")
	assert.True(t, errors.Is(err, util.ErrInvalidDefinition))
}

func TestPresentQuestionsSeededByAttempt(t *testing.T) {
	a := &model.Assessment{ShuffleQuestions: true, ShuffleOptions: true}
	a.ID = 3
	for i := 1; i <= 8; i++ {
		q := model.Question{Position: i, Type: model.QuestionMultipleChoice, Prompt: "q", Points: 1,
			Options: []model.Option{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d", IsCorrect: true}}}
		q.ID = uint(i)
		a.Questions = append(a.Questions, q)
	}

	attempt := &model.Attempt{}
	attempt.ID = 11
	first := service.PresentQuestions(a, attempt)
	second := service.PresentQuestions(a, attempt)
	assert.Equal(t, first, second)

	// the definition itself is never reordered
	for i, q := range a.Questions {
		assert.Equal(t, uint(i+1), q.ID)
		assert.Equal(t, "a", q.Options[0].Text)
	}

	plain := &model.Assessment{Questions: a.Questions}
	views := service.PresentQuestions(plain, attempt)
	for i, v := range views {
		assert.Equal(t, uint(i+1), v.ID)
		assert.Equal(t, []string{"a", "b", "c", "d"}, v.Options)
	}
}
