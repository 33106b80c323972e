package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zemyth-app/raise/internal/instruction"
	"github.com/zemyth-app/raise/internal/protoerr"
)

func TestSubmitRejectsEmptyInstructionSet(t *testing.T) {
	c := &Client{}

	_, err := c.Submit(context.Background(), nil)
	require.Error(t, err)

	_, err = c.Submit(context.Background(), &instruction.Composed{})
	require.Error(t, err)
}

func TestSubmitPropagatesSerializeError(t *testing.T) {
	// 超过255个账户的指令无法序列化，提交必须带错返回而不是继续上链
	composed := &instruction.Composed{
		Instructions: []instruction.Instruction{
			{Accounts: make([]instruction.AccountMeta, 256)},
		},
	}

	c := &Client{}
	_, err := c.Submit(context.Background(), composed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize")
}

func TestParseRevertExtractsCode(t *testing.T) {
	err := ParseRevert(errors.New("execution reverted: RAISE:6205"))

	var perr *protoerr.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 6205, perr.Code)
}

func TestParseRevertPassthrough(t *testing.T) {
	orig := errors.New("connection refused")
	assert.Equal(t, orig, ParseRevert(orig))
	assert.NoError(t, ParseRevert(nil))
}
