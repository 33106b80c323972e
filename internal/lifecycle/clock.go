package lifecycle

import "time"

// Clock 时钟依赖。所有时间窗口规则通过注入时钟读取当前时间，
// 便于对冷静期、投票窗口、截止时间、归属悬崖等规则做确定性测试
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock 返回系统时钟
func SystemClock() Clock { return realClock{} }

// FixedClock 返回固定时刻的时钟，测试用
type FixedClock struct {
	T time.Time
}

// Now 实现 Clock 接口
func (c FixedClock) Now() time.Time { return c.T }
