package protoerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryStateTransition, CategoryOf(CodeInvalidStateTransition))
	assert.Equal(t, CategoryAuthorization, CategoryOf(CodeNotFounder))
	assert.Equal(t, CategoryInvestment, CategoryOf(CodeTierLotsExhausted))
	assert.Equal(t, CategoryMilestone, CategoryOf(CodeDeadlineExtensionExhausted))
	assert.Equal(t, CategoryTokenGeneration, CategoryOf(CodeVestingCliffNotReached))
	assert.Equal(t, CategoryPivot, CategoryOf(CodePivotWindowClosed))
	assert.Equal(t, CategoryRefund, CategoryOf(CodeExitWindowClosed))
	assert.Equal(t, CategoryScamReport, CategoryOf(CodeScamReportDuplicate))
	assert.Equal(t, CategoryUnknown, CategoryOf(42))
	assert.Equal(t, CategoryUnknown, CategoryOf(9999))
}

func TestErrorsIsByCode(t *testing.T) {
	err := New(CodeDuplicateVote, "投票人 %s 在第 %d 轮重复投票", "0xabc", 1)
	assert.True(t, errors.Is(err, New(CodeDuplicateVote, "")))
	assert.False(t, errors.Is(err, New(CodeVotingWindowClosed, "")))

	// 经过包装仍可按码识别
	wrapped := fmt.Errorf("cast vote: %w", err)
	assert.True(t, errors.Is(wrapped, New(CodeDuplicateVote, "")))
}

func TestFromLedgerCode(t *testing.T) {
	err := FromLedgerCode(CodeFundingGoalExceeded)
	assert.Equal(t, CodeFundingGoalExceeded, err.Code)
	assert.Equal(t, "投资金额超出剩余募资额度", err.Message)

	// 保留区间内的未知码仍按类别归类
	unknown := FromLedgerCode(codeRefundBase + 99)
	assert.Equal(t, CategoryRefund, unknown.Category())
	assert.NotEmpty(t, unknown.Message)
}
