package lifecycle

import (
	"math/big"
	"time"
)

// Params 协议时间窗口与门槛参数。
// 生产与开发模式只在截止时间下限上不同，其余常量一致
type Params struct {
	MinDeadline       time.Duration // 里程碑截止时间距当前的最小时长
	MaxDeadline       time.Duration // 里程碑截止时间距当前的最大时长（一年）
	VotingWindow      time.Duration // 里程碑提交后的投票窗口时长
	InactivityTimeout time.Duration // 截止时间后判定弃置的不活跃超时
	ExitWindow        time.Duration // 连续三次失败后的自愿退出窗口时长
	WithdrawalWindow  time.Duration // 转型批准后的投资人撤出窗口时长
	StallThreshold    time.Duration // 代币分发卡滞判定阈值
	CoolingOff        time.Duration // 募资完成后首个里程碑提交前的冷静期
	MinTierAmount     *big.Int      // 档位单份金额的协议最低值
}

// DefaultParams 返回默认参数。devMode 下截止时间下限缩短，便于联调
func DefaultParams(devMode bool) Params {
	p := Params{
		MinDeadline:       30 * 24 * time.Hour,
		MaxDeadline:       365 * 24 * time.Hour,
		VotingWindow:      7 * 24 * time.Hour,
		InactivityTimeout: 30 * 24 * time.Hour,
		ExitWindow:        14 * 24 * time.Hour,
		WithdrawalWindow:  7 * 24 * time.Hour,
		StallThreshold:    3 * 24 * time.Hour,
		CoolingOff:        24 * time.Hour,
		MinTierAmount:     big.NewInt(1),
	}
	if devMode {
		p.MinDeadline = 5 * time.Minute
		p.VotingWindow = 10 * time.Minute
		p.InactivityTimeout = 15 * time.Minute
		p.ExitWindow = 30 * time.Minute
		p.WithdrawalWindow = 10 * time.Minute
		p.StallThreshold = 10 * time.Minute
		p.CoolingOff = time.Minute
	}
	return p
}
