package event

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecoder(t *testing.T) *Decoder {
	t.Helper()
	d, err := NewDecoder()
	require.NoError(t, err)
	return d
}

// buildLog 按事件名组装日志：索引参数进topics，其余打包进data
func buildLog(t *testing.T, d *Decoder, name string, topics []common.Hash, nonIndexed ...interface{}) types.Log {
	t.Helper()
	ev, ok := d.abi.Events[name]
	require.True(t, ok, "unknown event %s", name)

	data, err := ev.Inputs.NonIndexed().Pack(nonIndexed...)
	require.NoError(t, err)

	return types.Log{
		Topics:      append([]common.Hash{ev.ID}, topics...),
		Data:        data,
		TxHash:      common.HexToHash("0xabc123"),
		BlockNumber: 777,
		Index:       3,
	}
}

func u64Topic(v uint64) common.Hash {
	return common.BytesToHash(new(big.Int).SetUint64(v).Bytes())
}

func addrTopic(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func TestDecodeInvestmentMade(t *testing.T) {
	d := mustDecoder(t)
	investor := common.HexToAddress("0x1111111111111111111111111111111111111111")
	mint := common.HexToAddress("0x2222222222222222222222222222222222222222")

	l := buildLog(t, d, "InvestmentMade",
		[]common.Hash{u64Topic(42), addrTopic(investor)},
		mint, big.NewInt(750), uint8(1), big.NewInt(900))

	got, err := d.Decode(l)
	require.NoError(t, err)

	assert.Equal(t, "InvestmentMade", got.Name)
	assert.Equal(t, uint64(42), got.ProjectID)
	assert.Equal(t, investor, got.Fields["investor"])
	assert.Equal(t, mint, got.Fields["mint"])
	assert.Equal(t, 0, got.Fields["amount"].(*big.Int).Cmp(big.NewInt(750)))
	assert.Equal(t, uint8(1), got.Fields["tierIndex"])
	assert.Equal(t, uint64(777), got.BlockNumber)
	assert.Equal(t, uint(3), got.LogIndex)
}

func TestDecodeTokensClaimed(t *testing.T) {
	d := mustDecoder(t)
	investor := common.HexToAddress("0x1111111111111111111111111111111111111111")
	mint := common.HexToAddress("0x2222222222222222222222222222222222222222")

	l := buildLog(t, d, "TokensClaimed",
		[]common.Hash{u64Topic(42), addrTopic(investor)},
		mint, uint8(1), big.NewInt(500))

	got, err := d.Decode(l)
	require.NoError(t, err)

	assert.Equal(t, "TokensClaimed", got.Name)
	assert.Equal(t, uint64(42), got.ProjectID)
	assert.Equal(t, investor, got.Fields["investor"])
	// 投资以铸造标识为键，事件必须携带mint才能定位到具体那条投资
	assert.Equal(t, mint, got.Fields["mint"])
	assert.Equal(t, uint8(1), got.Fields["milestoneIndex"])
}

func TestDecodeVotingFinalized(t *testing.T) {
	d := mustDecoder(t)

	l := buildLog(t, d, "VotingFinalized",
		[]common.Hash{u64Topic(7)},
		uint8(2), true, big.NewInt(60), big.NewInt(40), big.NewInt(100))

	got, err := d.Decode(l)
	require.NoError(t, err)

	assert.Equal(t, "VotingFinalized", got.Name)
	assert.Equal(t, uint64(7), got.ProjectID)
	assert.Equal(t, uint8(2), got.Fields["milestoneIndex"])
	assert.Equal(t, true, got.Fields["passed"])
	assert.Equal(t, 0, got.Fields["yesVotes"].(*big.Int).Cmp(big.NewInt(60)))
}

func TestDecodeProjectAbandoned(t *testing.T) {
	d := mustDecoder(t)

	l := buildLog(t, d, "ProjectAbandoned", []common.Hash{u64Topic(9)})

	got, err := d.Decode(l)
	require.NoError(t, err)
	assert.Equal(t, "ProjectAbandoned", got.Name)
	assert.Equal(t, uint64(9), got.ProjectID)
}

func TestDecodeUnknownSignature(t *testing.T) {
	d := mustDecoder(t)

	_, err := d.Decode(types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}})
	assert.ErrorContains(t, err, "unknown event signature")
}

func TestDecodeTopicCountMismatch(t *testing.T) {
	d := mustDecoder(t)
	ev := d.abi.Events["InvestmentMade"]

	// InvestmentMade 需要两个索引topic，只给一个
	_, err := d.Decode(types.Log{Topics: []common.Hash{ev.ID, u64Topic(1)}})
	assert.ErrorContains(t, err, "indexed topics")
}

func TestDecodeNoTopics(t *testing.T) {
	d := mustDecoder(t)

	_, err := d.Decode(types.Log{})
	assert.ErrorContains(t, err, "without topics")
}
