package account

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeProject(t *testing.T) {
	src := &Project{
		ID:           7,
		Founder:      common.HexToAddress("0xaaa0000000000000000000000000000000000001"),
		FundingGoal:  big.NewInt(100000),
		AmountRaised: big.NewInt(2500),
		State:        ProjectOpen,
		Tiers: []Tier{
			{Amount: big.NewInt(100), MaxLots: 10, FilledLots: 3, TokenRatio: 1, VoteMultiplier: 100},
			{Amount: big.NewInt(500), MaxLots: 5, FilledLots: 1, TokenRatio: 2, VoteMultiplier: 150},
		},
		MilestoneCount:      3,
		ConsecutiveFailures: 1,
		InvestorCount:       4,
		CreatedAt:           1700000000,
		MetadataURI:         "ipfs://QmProject",
	}

	raw, err := Encode(src)
	require.NoError(t, err)
	assert.Equal(t, TagProject, raw[0])

	rec, err := Decode(raw)
	require.NoError(t, err)
	got, ok := rec.(*Project)
	require.True(t, ok)
	assert.Equal(t, src, got)
}

func TestDecodeMilestoneAndVote(t *testing.T) {
	m := &Milestone{
		ProjectAddr:  common.HexToHash("0x01"),
		Index:        2,
		Percentage:   40,
		State:        MilestoneUnderReview,
		YesVotes:     big.NewInt(60),
		NoVotes:      big.NewInt(40),
		TotalWeight:  big.NewInt(100),
		VoterCount:   5,
		VotingRound:  1,
		VotingEndsAt: 1700001000,
		Deadline:     1700500000,
	}
	raw, err := Encode(m)
	require.NoError(t, err)
	rec, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, m, rec)

	v := &Vote{
		MilestoneAddr: common.HexToHash("0x02"),
		Voter:         common.HexToAddress("0xbbb0000000000000000000000000000000000002"),
		Choice:        VoteBad,
		Weight:        big.NewInt(1500),
		Round:         1,
		Timestamp:     1700000500,
	}
	raw, err = Encode(v)
	require.NoError(t, err)
	rec, err = Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, v, rec)
}

func TestDecodeInvestmentFlags(t *testing.T) {
	inv := &Investment{
		ProjectAddr:     common.HexToHash("0x03"),
		Investor:        common.HexToAddress("0xccc0000000000000000000000000000000000003"),
		Mint:            common.HexToAddress("0xddd0000000000000000000000000000000000004"),
		Amount:          big.NewInt(1000),
		VoteWeight:      big.NewInt(2000),
		TokenAllocation: big.NewInt(3000),
		TierIndex:       2,
		Timestamp:       1700000100,
		Claimed:         true,
	}
	raw, err := Encode(inv)
	require.NoError(t, err)
	rec, err := Decode(raw)
	require.NoError(t, err)
	got := rec.(*Investment)
	assert.True(t, got.Claimed)
	assert.False(t, got.Withdrawn)
	assert.False(t, got.Refunded)
	assert.Equal(t, inv, got)
}

func TestDecodePivotProposal(t *testing.T) {
	p := &PivotProposal{
		ProjectAddr:       common.HexToHash("0x04"),
		State:             PivotApprovedAwaitingWindow,
		MetadataURI:       "ipfs://QmPivot",
		NewPercentages:    []uint8{30, 40, 30},
		ProposedAt:        1700000000,
		ApprovedAt:        1700001000,
		WithdrawWindowEnd: 1700600000,
		WithdrawnAmount:   big.NewInt(500),
		WithdrawnCount:    2,
	}
	raw, err := Encode(p)
	require.NoError(t, err)
	rec, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, p, rec)
}

func TestDecodeLargeAmount(t *testing.T) {
	// 金额是任意精度整数，32字节小端编码应覆盖超出u64的值
	huge, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)

	v := &FounderVesting{
		ProjectAddr:      common.HexToHash("0x05"),
		TotalEntitlement: huge,
		CliffEnd:         1710000000,
		VestingEnd:       1740000000,
		Claimed:          new(big.Int),
	}
	raw, err := Encode(v)
	require.NoError(t, err)
	rec, err := Decode(raw)
	require.NoError(t, err)
	assert.Zero(t, huge.Cmp(rec.(*FounderVesting).TotalEntitlement))
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyData)

	_, err = Decode([]byte{0xEE})
	assert.ErrorIs(t, err, ErrUnknownTag)

	// 截断的数据必须报错而不是静默补零
	raw, errEnc := Encode(&AdminConfig{
		Admin:     common.HexToAddress("0x01"),
		Moderator: common.HexToAddress("0x02"),
	})
	require.NoError(t, errEnc)
	_, err = Decode(raw[:len(raw)-1])
	assert.ErrorIs(t, err, ErrShortBuffer)

	// 末尾多余字节同样报错
	_, err = Decode(append(raw, 0x00))
	assert.ErrorIs(t, err, ErrTrailing)
}

func TestEncodeNegativeAmountRejected(t *testing.T) {
	_, err := Encode(&Vote{Weight: big.NewInt(-1)})
	assert.Error(t, err)
}
