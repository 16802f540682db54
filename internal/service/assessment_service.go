package service

import (
	"assessment_engine/internal/model"
	"assessment_engine/internal/repository"
	"assessment_engine/internal/util"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

type AssessmentService struct {
	Repo *repository.AssessmentRepository
	Log  *zap.Logger
}

func NewAssessmentService(repo *repository.AssessmentRepository, log *zap.Logger) *AssessmentService {
	return &AssessmentService{Repo: repo, Log: log}
}

type QuestionRequest struct {
	Type          model.QuestionType `json:"type" binding:"required"`
	Prompt        string             `json:"prompt" binding:"required"`
	Points        int                `json:"points"`
	Options       json.RawMessage    `json:"options" swaggertype:"array,object"` // 字符串数组或 {text,isCorrect} 对象数组
	CorrectAnswer string             `json:"correctAnswer"`
	Explanation   string             `json:"explanation"`
}

type AssessmentRequest struct {
	CourseID         uint              `json:"courseId" binding:"required"`
	Title            string            `json:"title" binding:"required"`
	Description      string            `json:"description"`
	AvailableFrom    *time.Time        `json:"availableFrom"`
	AvailableUntil   *time.Time        `json:"availableUntil"`
	MaxAttempts      int               `json:"maxAttempts"`
	ShuffleQuestions bool              `json:"shuffleQuestions"`
	ShuffleOptions   bool              `json:"shuffleOptions"`
	XPReward         int               `json:"xpReward"`
	BonusXP          int               `json:"bonusXp"`
	Questions        []QuestionRequest `json:"questions"`
}

// build validates the request and converts it into a definition with
// normalized options.
func (req *AssessmentRequest) build() (*model.Assessment, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.Wrap(util.ErrInvalidDefinition, "title is required")
	}
	if len(req.Questions) == 0 {
		return nil, errors.Wrap(util.ErrInvalidDefinition, "at least one question is required")
	}
	if req.AvailableFrom != nil && req.AvailableUntil != nil && req.AvailableUntil.Before(*req.AvailableFrom) {
		return nil, errors.Wrap(util.ErrInvalidDefinition, "availableUntil is before availableFrom")
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	if maxAttempts < 1 {
		return nil, errors.Wrapf(util.ErrInvalidDefinition, "maxAttempts %d", req.MaxAttempts)
	}
	if req.XPReward < 0 || req.BonusXP < 0 {
		return nil, errors.Wrap(util.ErrInvalidDefinition, "xp rewards must not be negative")
	}

	a := &model.Assessment{
		CourseID:         req.CourseID,
		Title:            title,
		Description:      req.Description,
		AvailableFrom:    req.AvailableFrom,
		AvailableUntil:   req.AvailableUntil,
		MaxAttempts:      maxAttempts,
		ShuffleQuestions: req.ShuffleQuestions,
		ShuffleOptions:   req.ShuffleOptions,
		XPReward:         req.XPReward,
		BonusXP:          req.BonusXP,
		Questions:        make([]model.Question, 0, len(req.Questions)),
	}
	for i, qr := range req.Questions {
		q, err := qr.build(i)
		if err != nil {
			return nil, err
		}
		a.Questions = append(a.Questions, *q)
	}
	return a, nil
}

func (qr *QuestionRequest) build(position int) (*model.Question, error) {
	if !qr.Type.Valid() {
		return nil, errors.Wrapf(util.ErrInvalidDefinition, "question %d: unknown type %q", position+1, qr.Type)
	}
	if qr.Points <= 0 {
		return nil, errors.Wrapf(util.ErrInvalidDefinition, "question %d: points must be positive", position+1)
	}
	if strings.TrimSpace(qr.Prompt) == "" {
		return nil, errors.Wrapf(util.ErrInvalidDefinition, "question %d: prompt is required", position+1)
	}

	options, err := NormalizeOptions(qr.Options, qr.CorrectAnswer)
	if err != nil {
		return nil, errors.Wrapf(err, "question %d", position+1)
	}

	switch qr.Type {
	case model.QuestionMultipleChoice:
		if len(options) < 2 {
			return nil, errors.Wrapf(util.ErrInvalidDefinition, "question %d: multiple choice needs at least two options", position+1)
		}
	case model.QuestionTrueFalse:
		if qr.CorrectAnswer == "" && !hasCorrectOption(options) {
			return nil, errors.Wrapf(util.ErrInvalidDefinition, "question %d: true/false needs a correct answer", position+1)
		}
	case model.QuestionShortAnswer:
		if strings.TrimSpace(qr.CorrectAnswer) == "" {
			return nil, errors.Wrapf(util.ErrInvalidDefinition, "question %d: short answer needs a correct answer", position+1)
		}
	}

	return &model.Question{
		Position:      position + 1,
		Type:          qr.Type,
		Prompt:        qr.Prompt,
		Points:        qr.Points,
		Options:       options,
		CorrectAnswer: qr.CorrectAnswer,
		Explanation:   qr.Explanation,
	}, nil
}

func hasCorrectOption(options []model.Option) bool {
	for _, o := range options {
		if o.IsCorrect {
			return true
		}
	}
	return false
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, authorID uint, req AssessmentRequest) (*model.Assessment, error) {
	a, err := req.build()
	if err != nil {
		return nil, err
	}
	a.AuthorID = authorID
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create assessment")
	}
	s.Log.Info("assessment created",
		zap.Uint("assessmentId", a.ID),
		zap.Uint("courseId", a.CourseID),
		zap.Int("questions", len(a.Questions)),
	)
	return a, nil
}

// UpdateAssessment replaces the definition. It fails with ErrDefinitionLocked
// once any attempt exists; editorID must be the author unless isAdmin.
func (s *AssessmentService) UpdateAssessment(ctx context.Context, editorID uint, isAdmin bool, id uint, req AssessmentRequest) (*model.Assessment, error) {
	current, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && current.AuthorID != editorID {
		return nil, errors.Wrapf(util.ErrPermissionDenied, "assessment %d belongs to another author", id)
	}

	a, err := req.build()
	if err != nil {
		return nil, err
	}
	a.ID = current.ID
	a.AuthorID = current.AuthorID
	a.CourseID = current.CourseID
	if err := s.Repo.UpdateDefinition(ctx, a); err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, id)
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id uint) (*model.Assessment, error) {
	return s.Repo.FindByID(ctx, id)
}

func (s *AssessmentService) ListAssessments(ctx context.Context, courseID uint, page, limit int) ([]model.Assessment, int64, error) {
	return s.Repo.ListByCourse(ctx, courseID, page, limit)
}
