package controller

import (
	"assessment_engine/internal/service"
	"assessment_engine/internal/util"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Attempts   *service.AttemptService
	Completion *service.CompletionService
}

func NewAttemptController(attempts *service.AttemptService, completion *service.CompletionService) *AttemptController {
	return &AttemptController{Attempts: attempts, Completion: completion}
}

type AnswerRequest struct {
	QuestionID uint            `json:"questionId" binding:"required"`
	Value      json.RawMessage `json:"value" swaggertype:"string"` // 字符串；判断题也可以是布尔值
}

// @Summary 开始测验
// @Description 已有进行中的尝试时直接返回该尝试
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /assessments/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid assessment id")
		return
	}

	attempt, err := c.Attempts.StartAttempt(ctx.Request.Context(), user.UserID, assessmentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 获取当前尝试
// @Description 返回进行中的尝试，否则返回最近一次提交，附带题目
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /assessments/{id}/attempt [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid assessment id")
		return
	}

	view, err := c.Attempts.View(ctx.Request.Context(), user.UserID, assessmentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 尝试记录
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /assessments/{id}/attempts [get]
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid assessment id")
		return
	}

	attempts, err := c.Attempts.ListAttempts(ctx.Request.Context(), user.UserID, assessmentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// @Summary 提交答案
// @Description 立即判分，同一题目重复提交以最后一次为准
// @Tags 测验作答
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body AnswerRequest true "答案"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /assessments/{id}/attempt/answers [put]
func (c *AttemptController) SubmitAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid assessment id")
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.Attempts.SubmitAnswer(ctx.Request.Context(), user.UserID, assessmentID, req.QuestionID, req.Value)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// @Summary 交卷
// @Description 计算得分、刷新统计并发放经验值
// @Tags 测验作答
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /assessments/{id}/attempt/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	assessmentID, ok := util.ParamUint(ctx, "id")
	if !ok {
		util.BadRequest(ctx, "invalid assessment id")
		return
	}

	result, err := c.Completion.CompleteAttempt(ctx.Request.Context(), user.UserID, assessmentID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
