package pda

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgram = common.HexToAddress("0x1000000000000000000000000000000000000001")

func TestDeriveDeterministic(t *testing.T) {
	a1 := ProjectAddress(testProgram, 42)
	a2 := ProjectAddress(testProgram, 42)
	assert.Equal(t, a1, a2)

	a3 := ProjectAddress(testProgram, 43)
	assert.NotEqual(t, a1, a3)
}

func TestDeriveDistinctAcrossKinds(t *testing.T) {
	// 项目和托管账户使用相同的原始种子字节，前缀必须保证地址不同
	projectAddr, err := Derive(testProgram, KindProject, EncodeU64(7))
	require.NoError(t, err)
	escrowAddr, err := Derive(testProgram, KindEscrow, EncodeU64(7))
	require.NoError(t, err)
	assert.NotEqual(t, projectAddr, escrowAddr)

	// 金库/代币经济学/归属账户共享"项目地址"种子，同样不得碰撞
	vault := VaultAddress(testProgram, projectAddr)
	tokenomics := TokenomicsAddress(testProgram, projectAddr)
	vesting := FounderVestingAddress(testProgram, projectAddr)
	assert.NotEqual(t, vault, tokenomics)
	assert.NotEqual(t, vault, vesting)
	assert.NotEqual(t, tokenomics, vesting)
}

func TestDeriveDistinctAcrossPrograms(t *testing.T) {
	other := common.HexToAddress("0x2000000000000000000000000000000000000002")
	assert.NotEqual(t, ProjectAddress(testProgram, 1), ProjectAddress(other, 1))
}

func TestDeriveMalformedSeed(t *testing.T) {
	// 项目ID必须是8字节小端
	_, err := Derive(testProgram, KindProject, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedSeed)

	// 种子数量不符
	_, err = Derive(testProgram, KindMilestone, make([]byte, 32))
	assert.ErrorIs(t, err, ErrMalformedSeed)

	// 里程碑序号必须是1字节
	_, err = Derive(testProgram, KindMilestone, make([]byte, 32), []byte{0, 1})
	assert.ErrorIs(t, err, ErrMalformedSeed)

	// 管理员配置账户不接受种子
	_, err = Derive(testProgram, KindAdminConfig, []byte{1})
	assert.ErrorIs(t, err, ErrMalformedSeed)
}

func TestVoteAddressRoundScoped(t *testing.T) {
	milestone := MilestoneAddress(testProgram, ProjectAddress(testProgram, 1), 0)
	voter := common.HexToAddress("0x3000000000000000000000000000000000000003")

	// 同一投票人在不同轮次得到不同的投票账户，返工后允许重新投票
	v0 := VoteAddress(testProgram, milestone, voter, 0)
	v1 := VoteAddress(testProgram, milestone, voter, 1)
	assert.NotEqual(t, v0, v1)
}

func TestEncodeU64RoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 255, 256, 1<<32 - 1, 1 << 32, math.MaxUint64} {
		b := EncodeU64(v)
		require.Len(t, b, 8)
		got, err := DecodeU64(b)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEncodeU64LittleEndian(t *testing.T) {
	// 小端字节序属于兼容面，这里固定校验字节布局
	assert.Equal(t, []byte{0x01, 0x02, 0, 0, 0, 0, 0, 0}, EncodeU64(0x0201))
}

func TestEncodeU8RoundTrip(t *testing.T) {
	for _, v := range []uint8{0, 1, 127, 255} {
		got, err := DecodeU8(EncodeU8(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	_, err := DecodeU8([]byte{})
	assert.ErrorIs(t, err, ErrMalformedSeed)
	_, err = DecodeU64([]byte{1, 2})
	assert.ErrorIs(t, err, ErrMalformedSeed)
}
