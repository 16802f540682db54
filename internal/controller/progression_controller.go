package controller

import (
	"assessment_engine/internal/service"
	"assessment_engine/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ProgressionController struct {
	Service *service.ProgressionService
}

func NewProgressionController(svc *service.ProgressionService) *ProgressionController {
	return &ProgressionController{Service: svc}
}

type AwardXPRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason" binding:"required"`
}

// @Summary 我的成长记录
// @Description 经验值、等级、连续记录与最近动态
// @Tags 成长体系
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.ProgressionRecord}
// @Router /progression [get]
func (c *ProgressionController) GetMine(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	rec, err := c.Service.GetProgressionRecord(ctx.Request.Context(), user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// @Summary 经验值排行榜
// @Tags 成长体系
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量" default(10)
// @Success 200 {object} util.Response
// @Router /progression/leaderboard [get]
func (c *ProgressionController) Leaderboard(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if limit > util.MaxLimit {
		limit = util.MaxLimit
	}

	entries, err := c.Service.Leaderboard(ctx.Request.Context(), limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// @Summary 连续记录加一
// @Description 由作业、签到等协作服务调用，学生不能修改自己的记录
// @Tags 成长体系
// @Produce json
// @Security ApiKeyAuth
// @Param learnerId path int true "学生ID"
// @Param name path string true "记录名，如 daily"
// @Success 200 {object} util.Response{data=model.ProgressionRecord}
// @Router /teacher/progression/{learnerId}/streaks/{name} [post]
func (c *ProgressionController) UpdateStreak(ctx *gin.Context) {
	learnerID, ok := util.ParamUint(ctx, "learnerId")
	if !ok {
		util.BadRequest(ctx, "invalid learner id")
		return
	}

	rec, err := c.Service.UpdateStreak(ctx.Request.Context(), learnerID, ctx.Param("name"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// @Summary 重置连续记录
// @Tags 成长体系
// @Produce json
// @Security ApiKeyAuth
// @Param learnerId path int true "学生ID"
// @Param name path string true "记录名"
// @Success 200 {object} util.Response{data=model.ProgressionRecord}
// @Router /teacher/progression/{learnerId}/streaks/{name} [delete]
func (c *ProgressionController) ResetStreak(ctx *gin.Context) {
	learnerID, ok := util.ParamUint(ctx, "learnerId")
	if !ok {
		util.BadRequest(ctx, "invalid learner id")
		return
	}

	rec, err := c.Service.ResetStreak(ctx.Request.Context(), learnerID, ctx.Param("name"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rec)
}

// @Summary 教师发放经验值
// @Tags 成长体系
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param learnerId path int true "学生ID"
// @Param body body AwardXPRequest true "经验值"
// @Success 200 {object} util.Response{data=service.AwardResult}
// @Router /teacher/progression/{learnerId}/xp [post]
func (c *ProgressionController) AwardXP(ctx *gin.Context) {
	learnerID, ok := util.ParamUint(ctx, "learnerId")
	if !ok {
		util.BadRequest(ctx, "invalid learner id")
		return
	}

	var req AwardXPRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.AwardXP(ctx.Request.Context(), learnerID, req.Amount, req.Reason)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
