package service

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/util"
	"bytes"
	"encoding/json"
	"math/rand/v2"

	"github.com/cockroachdb/errors"
)

// NormalizeOptions accepts options either as plain strings or as
// {text,isCorrect} objects and returns the single normalized shape. A plain
// string is correct when it matches correctAnswer.
func NormalizeOptions(raw json.RawMessage, correctAnswer string) ([]model.Option, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errors.Wrap(util.ErrInvalidDefinition, "options must be an array")
	}

	options := make([]model.Option, 0, len(items))
	for i, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			options = append(options, model.Option{Text: text, IsCorrect: correctAnswer != "" && sameText(text, correctAnswer)})
			continue
		}
		var opt model.Option
		if err := json.Unmarshal(item, &opt); err != nil {
			return nil, errors.Wrapf(util.ErrInvalidDefinition, "option %d is neither text nor {text,isCorrect}", i)
		}
		options = append(options, opt)
	}
	return options, nil
}

// QuestionView is what a learner sees: no correct answers, no explanations.
type QuestionView struct {
	ID       uint               `json:"id"`
	Position int                `json:"position"`
	Type     model.QuestionType `json:"type"`
	Prompt   string             `json:"prompt"`
	Points   int                `json:"points"`
	Options  []string           `json:"options,omitempty"`
}

// PresentQuestions orders questions for an attempt. Shuffled orders are seeded
// by the attempt id so reloads show the same order.
func PresentQuestions(a *model.Assessment, attempt *model.Attempt) []QuestionView {
	views := make([]QuestionView, len(a.Questions))
	for i, q := range a.Questions {
		opts := make([]string, len(q.Options))
		for j, o := range q.Options {
			opts[j] = o.Text
		}
		views[i] = QuestionView{
			ID:       q.ID,
			Position: q.Position,
			Type:     q.Type,
			Prompt:   q.Prompt,
			Points:   q.Points,
			Options:  opts,
		}
	}

	if attempt == nil || (!a.ShuffleQuestions && !a.ShuffleOptions) {
		return views
	}

	seed := uint64(attempt.ID)
	rng := rand.New(rand.NewPCG(seed, uint64(a.ID)))
	if a.ShuffleQuestions {
		rng.Shuffle(len(views), func(i, j int) { views[i], views[j] = views[j], views[i] })
	}
	if a.ShuffleOptions {
		for i := range views {
			opts := views[i].Options
			rng.Shuffle(len(opts), func(x, y int) { opts[x], opts[y] = opts[y], opts[x] })
		}
	}
	return views
}
