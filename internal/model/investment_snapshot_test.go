package model

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 同一投资人可经由不同铸造标识多次投资，
// 快照唯一键必须是（项目，铸造标识）而不是（项目，投资人）
func TestInvestmentSnapshotUniqueKeyIncludesMint(t *testing.T) {
	typ := reflect.TypeOf(InvestmentSnapshotModel{})

	tag := func(name string) string {
		f, ok := typ.FieldByName(name)
		require.True(t, ok, "missing field %s", name)
		return f.Tag.Get("gorm")
	}

	assert.Contains(t, tag("ProjectId"), "uniqueIndex:idx_investment_project_mint")
	assert.Contains(t, tag("Mint"), "uniqueIndex:idx_investment_project_mint")
	assert.NotContains(t, tag("Investor"), "uniqueIndex")
}
