package tier

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/protoerr"
)

func tiers(amounts ...int64) []account.Tier {
	ts := make([]account.Tier, 0, len(amounts))
	for _, a := range amounts {
		ts = append(ts, account.Tier{
			Amount:         big.NewInt(a),
			MaxLots:        10,
			TokenRatio:     1,
			VoteMultiplier: 100,
		})
	}
	return ts
}

func TestFindTierIndex(t *testing.T) {
	ts := tiers(100, 500, 1000)

	cases := []struct {
		amount int64
		want   int
	}{
		{50, NoMatch}, // 低于最低门槛
		{100, 0},      // 恰好第0档
		{499, 0},      // 门槛匹配而非精确分桶
		{500, 1},
		{750, 1},
		{1000, 2},
		{999999, 2}, // 超大金额落在最高档
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FindTierIndex(ts, big.NewInt(c.amount)), "amount=%d", c.amount)
	}

	assert.Equal(t, NoMatch, FindTierIndex(nil, big.NewInt(100)))
	assert.Equal(t, NoMatch, FindTierIndex(ts, nil))
}

func TestValidateTiers(t *testing.T) {
	assert.NoError(t, ValidateTiers(tiers(100, 500, 1000), big.NewInt(10)))

	// 空列表
	err := ValidateTiers(nil, nil)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidTierList, ""))

	// 非升序
	err = ValidateTiers(tiers(500, 100), nil)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidTierList, ""))

	// 低于协议最低值
	err = ValidateTiers(tiers(100), big.NewInt(200))
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidTierList, ""))

	// 投票乘数低于下限
	bad := tiers(100)
	bad[0].VoteMultiplier = 99
	err = ValidateTiers(bad, nil)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeInvalidTierList, ""))
}

func TestVoteWeightTruncates(t *testing.T) {
	tr := account.Tier{VoteMultiplier: 150}

	// 1000 * 150 / 100 = 1500
	assert.Equal(t, big.NewInt(1500), VoteWeight(big.NewInt(1000), tr))

	// 999 * 150 / 100 = 1498.5 → 截断为 1498
	assert.Equal(t, big.NewInt(1498), VoteWeight(big.NewInt(999), tr))
}

func TestTokenAllocation(t *testing.T) {
	tr := account.Tier{TokenRatio: 3}
	assert.Equal(t, big.NewInt(3000), TokenAllocation(big.NewInt(1000), tr))
}

func TestBpsConversions(t *testing.T) {
	assert.Equal(t, uint64(250000), PercentToBps(25))
	assert.Equal(t, uint64(25), BpsToPercent(250000))

	// 截断后的近似互逆：结果绝不超过原值
	for _, p := range []uint64{0, 1, 33, 50, 99, 100} {
		assert.LessOrEqual(t, BpsToPercent(PercentToBps(p)), p)
	}
	// 基点中的小数部分被截断
	assert.Equal(t, uint64(0), BpsToPercent(9999))
}

func TestPercentageOf(t *testing.T) {
	// floor(100000 * 3000 / 10000) = 30000
	assert.Equal(t, big.NewInt(30000), PercentageOf(big.NewInt(100000), 30))

	// floor(1001 * 3300 / 10000) = floor(330.33) = 330
	assert.Equal(t, big.NewInt(330), PercentageOf(big.NewInt(1001), 33))
}

func TestProRataShare(t *testing.T) {
	// 投资人投了 1000/100000，未释放资金 70000 → 份额 700
	got := ProRataShare(big.NewInt(70000), big.NewInt(1000), big.NewInt(100000))
	assert.Equal(t, big.NewInt(700), got)

	// 截断
	got = ProRataShare(big.NewInt(100), big.NewInt(1), big.NewInt(3))
	assert.Equal(t, big.NewInt(33), got)

	// 总量为零返回零
	assert.Zero(t, ProRataShare(big.NewInt(100), big.NewInt(1), new(big.Int)).Sign())
}

func TestValidatePercentages(t *testing.T) {
	assert.NoError(t, ValidatePercentages([]uint8{30, 40, 30}))
	assert.NoError(t, ValidatePercentages([]uint8{100}))

	err := ValidatePercentages([]uint8{30, 40, 20})
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeMilestonePercentageInvalid, ""))

	err = ValidatePercentages([]uint8{0, 100})
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeMilestonePercentageInvalid, ""))

	err = ValidatePercentages(nil)
	assert.ErrorIs(t, err, protoerr.New(protoerr.CodeMilestonePercentageInvalid, ""))
}
