package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern invalidates a pattern and only logs failures
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete deletes keys and only logs failures
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// AssessmentKey is the cache key of an assessment definition with questions
func AssessmentKey(assessmentID uint) string {
	return fmt.Sprintf("id:%d", assessmentID)
}

// StatsKey is the cache key of unfiltered result statistics
func StatsKey(assessmentID uint) string {
	return fmt.Sprintf("assessment:%d:all", assessmentID)
}

// InvalidateAssessmentCache drops the definition and every derived statistic
func InvalidateAssessmentCache(ctx context.Context, cm *CacheManager, assessmentID uint) {
	SafeDelete(ctx, cm.Assessment, AssessmentKey(assessmentID))
	InvalidateResultCache(ctx, cm, assessmentID)
}

// InvalidateResultCache drops cached statistics after results change
func InvalidateResultCache(ctx context.Context, cm *CacheManager, assessmentID uint) {
	SafeInvalidatePattern(ctx, cm.Stats, fmt.Sprintf("assessment:%d:*", assessmentID))
}
