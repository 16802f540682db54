package controller

import (
	"assessment_engine/internal/util"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{util.ErrAssessmentNotFound, http.StatusNotFound},
	{util.ErrAttemptNotFound, http.StatusNotFound},
	{util.ErrQuestionNotFound, http.StatusNotFound},
	{util.ErrPermissionDenied, http.StatusForbidden},
	{util.ErrNotEnrolled, http.StatusForbidden},
	{util.ErrNotAvailable, http.StatusForbidden},
	{util.ErrAttemptLimitExceeded, http.StatusConflict},
	{util.ErrNoActiveAttempt, http.StatusConflict},
	{util.ErrDefinitionLocked, http.StatusConflict},
	{util.ErrConcurrentUpdateFailed, http.StatusConflict},
	{util.ErrRewardAlreadyApplied, http.StatusConflict},
	{util.ErrInvalidAnswerValue, http.StatusBadRequest},
	{util.ErrInvalidDefinition, http.StatusBadRequest},
	{util.ErrInvalidXPAmount, http.StatusBadRequest},
	{util.ErrInvalidStreak, http.StatusBadRequest},
}

// respondError maps domain errors onto the response envelope. Anything
// unrecognised is logged and reported as a 500.
func respondError(ctx *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			util.Error(ctx, m.status, err.Error())
			return
		}
	}
	util.LogInternalError(ctx, err)
}
