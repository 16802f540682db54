package util

import "github.com/cockroachdb/errors"

// Domain errors returned by the attempt engine and the progression ledger.
// Callers compare with errors.Is; infrastructure failures are wrapped around them.
var (
	ErrPermissionDenied = errors.New("permission denied")

	ErrAssessmentNotFound   = errors.New("assessment not found")
	ErrInvalidDefinition    = errors.New("invalid assessment definition")
	ErrDefinitionLocked     = errors.New("assessment already has attempts and can no longer be edited")
	ErrNotAvailable         = errors.New("assessment is not available at this time")
	ErrNotEnrolled          = errors.New("student is not enrolled in the course")
	ErrAttemptLimitExceeded = errors.New("attempt limit exceeded")
	ErrNoActiveAttempt      = errors.New("no active attempt")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrInvalidAnswerValue   = errors.New("invalid answer value")

	ErrInvalidXPAmount = errors.New("xp amount must not be negative")
	ErrInvalidStreak   = errors.New("streak name required")
	// ErrRewardAlreadyApplied means the attempt's quiz reward is already in the ledger.
	ErrRewardAlreadyApplied = errors.New("attempt reward already applied")

	// ErrConcurrentUpdateFailed is surfaced once the bounded compare-and-swap retries run out.
	ErrConcurrentUpdateFailed = errors.New("concurrent update failed")
)
