package instruction

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/pda"
	"github.com/zemyth-app/raise/internal/protoerr"
)

var (
	testProgram  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testFounder  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testInvestor = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testMint     = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

func testTiers() []account.Tier {
	return []account.Tier{
		{Amount: big.NewInt(100), MaxLots: 1, TokenRatio: 1, VoteMultiplier: 100},
		{Amount: big.NewInt(500), MaxLots: 1, TokenRatio: 2, VoteMultiplier: 150},
	}
}

func TestCreateProjectAccountOrder(t *testing.T) {
	c := NewComposer(testProgram)
	composed, err := c.CreateProject(CreateProjectParams{
		ProjectID:   1,
		Founder:     testFounder,
		FundingGoal: big.NewInt(100000),
		Tiers:       testTiers(),
		Percentages: []uint8{30, 40, 30},
		MetadataURI: "ipfs://QmProject",
	})
	require.NoError(t, err)
	require.Len(t, composed.Instructions, 1)

	ix := composed.Instructions[0]
	project := pda.ProjectAddress(testProgram, 1)

	// 账户顺序属于链上兼容面：管理配置、项目、托管、金库、代币经济学、
	// 三个里程碑、创始人
	require.Len(t, ix.Accounts, 9)
	assert.Equal(t, pda.AdminConfigAddress(testProgram), ix.Accounts[0].Key)
	assert.Equal(t, project, ix.Accounts[1].Key)
	assert.Equal(t, pda.EscrowAddress(testProgram, 1), ix.Accounts[2].Key)
	assert.Equal(t, pda.VaultAddress(testProgram, project), ix.Accounts[3].Key)
	assert.Equal(t, pda.TokenomicsAddress(testProgram, project), ix.Accounts[4].Key)
	for i := 0; i < 3; i++ {
		assert.Equal(t, pda.MilestoneAddress(testProgram, project, uint8(i)), ix.Accounts[5+i].Key)
	}
	assert.Equal(t, WalletKey(testFounder), ix.Accounts[8].Key)
	assert.True(t, ix.Accounts[8].Signer)

	assert.Equal(t, []common.Address{testFounder}, composed.Signers)
	assert.Equal(t, OpCreateProject, ix.Data[0])
}

func TestCreateProjectFailsFastOnBadInput(t *testing.T) {
	c := NewComposer(testProgram)

	// 里程碑比例不合法：任何网络交互前失败
	_, err := c.CreateProject(CreateProjectParams{
		ProjectID:   1,
		Founder:     testFounder,
		FundingGoal: big.NewInt(1000),
		Tiers:       testTiers(),
		Percentages: []uint8{30, 40, 20},
	})
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeMilestonePercentageInvalid, ""))

	// 档位非升序
	bad := testTiers()
	bad[0], bad[1] = bad[1], bad[0]
	_, err = c.CreateProject(CreateProjectParams{
		ProjectID:   1,
		Founder:     testFounder,
		FundingGoal: big.NewInt(1000),
		Tiers:       bad,
		Percentages: []uint8{100},
	})
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidTierList, ""))
}

func TestInvestIncludesFirstMilestone(t *testing.T) {
	c := NewComposer(testProgram)
	composed, err := c.Invest(1, testInvestor, testMint, big.NewInt(1000))
	require.NoError(t, err)

	ix := composed.Instructions[0]
	project := pda.ProjectAddress(testProgram, 1)
	require.Len(t, ix.Accounts, 5)
	assert.Equal(t, project, ix.Accounts[0].Key)
	assert.Equal(t, pda.EscrowAddress(testProgram, 1), ix.Accounts[1].Key)
	assert.Equal(t, pda.InvestmentAddress(testProgram, project, testMint), ix.Accounts[2].Key)
	assert.Equal(t, pda.MilestoneAddress(testProgram, project, 0), ix.Accounts[3].Key)
	assert.Equal(t, WalletKey(testInvestor), ix.Accounts[4].Key)
}

func TestCastVoteDerivesRoundScopedAccount(t *testing.T) {
	c := NewComposer(testProgram)
	project := pda.ProjectAddress(testProgram, 1)
	milestone := pda.MilestoneAddress(testProgram, project, 2)

	v0 := c.CastVote(1, 2, 0, account.VoteGood, testInvestor, testMint)
	v1 := c.CastVote(1, 2, 1, account.VoteGood, testInvestor, testMint)

	// 轮次参与投票账户派生：返工后同一投票人得到新账户
	assert.Equal(t, pda.VoteAddress(testProgram, milestone, testInvestor, 0),
		v0.Instructions[0].Accounts[3].Key)
	assert.Equal(t, pda.VoteAddress(testProgram, milestone, testInvestor, 1),
		v1.Instructions[0].Accounts[3].Key)
	assert.NotEqual(t, v0.Instructions[0].Accounts[3].Key, v1.Instructions[0].Accounts[3].Key)
}

func TestUnlockMilestoneOmitsSuccessorForLast(t *testing.T) {
	c := NewComposer(testProgram)

	mid := c.UnlockMilestone(1, 0, 3, testFounder)
	last := c.UnlockMilestone(1, 2, 3, testFounder)

	// 中间里程碑带后继账户，最后一个省略
	assert.Len(t, mid.Instructions[0].Accounts, 6)
	assert.Len(t, last.Instructions[0].Accounts, 5)
}

func TestBatchDistributeBounded(t *testing.T) {
	c := NewComposer(testProgram)

	mints := make([]common.Address, account.MaxBatchSize+1)
	_, err := c.BatchDistribute(1, 0, mints, testFounder)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeBatchTooLarge, ""))

	composed, err := c.BatchDistribute(1, 0, mints[:2], testFounder)
	require.NoError(t, err)
	// 项目、里程碑、分发、金库、两个投资、管理员
	assert.Len(t, composed.Instructions[0].Accounts, 7)
}

func TestRefundIncludesAllMilestones(t *testing.T) {
	c := NewComposer(testProgram)
	composed := c.ClaimRefund(1, 3, testInvestor, testMint)

	// 项目、托管、投资、三个里程碑、投资人
	assert.Len(t, composed.Instructions[0].Accounts, 7)
}

func TestSerialize(t *testing.T) {
	c := NewComposer(testProgram)
	composed := c.SubmitForApproval(1, testFounder)
	ix := composed.Instructions[0]

	raw, err := ix.Serialize()
	require.NoError(t, err)

	// 1字节账户数 + 每账户33字节 + 负载
	assert.Equal(t, uint8(2), raw[0])
	assert.Len(t, raw, 1+2*33+len(ix.Data))
	assert.Equal(t, pda.ProjectAddress(testProgram, 1).Bytes(), raw[1:33])
	// 项目账户可写不签名 → 标志位 2
	assert.Equal(t, uint8(2), raw[33])
	// 创始人签名不可写 → 标志位 1
	assert.Equal(t, uint8(1), raw[66])
}

func TestComposerDeterministic(t *testing.T) {
	c := NewComposer(testProgram)
	a, err := c.Invest(7, testInvestor, testMint, big.NewInt(500))
	require.NoError(t, err)
	b, err := c.Invest(7, testInvestor, testMint, big.NewInt(500))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
