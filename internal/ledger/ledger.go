package ledger

import (
	"context"
	"errors"
	"regexp"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/instruction"
	"github.com/zemyth-app/raise/internal/protoerr"
)

// ErrNotFound 地址上不存在账户。这是良性缺位而非执行失败，
// 调用方应将其映射为空结果，不得当作错误向上传播
var ErrNotFound = errors.New("account not found")

// Reader 账户读取接口。读取无副作用，可自由并行；
// 读到的状态在读取完成的瞬间即可能过期，组装依赖状态的指令前必须重新拉取
type Reader interface {
	// Read 拉取并解码指定地址的账户。账户不存在返回 ErrNotFound
	Read(ctx context.Context, addr common.Hash) (account.Record, error)
	// ReadRaw 拉取指定地址的原始账户字节
	ReadRaw(ctx context.Context, addr common.Hash) ([]byte, error)
	// ReadAllMatching 按前缀扫描账户，用于枚举项目下的全部里程碑/投资/投票。
	// 前缀为判别标签字节加固定偏移处的过滤字节
	ReadAllMatching(ctx context.Context, prefix []byte) ([]Entry, error)
}

// Entry 扫描结果中的单个账户
type Entry struct {
	Addr   common.Hash
	Record account.Record
}

// Writer 指令提交接口。指令集由链上程序原子执行；
// 确认与终局性轮询是写入方的职责，不属于核心逻辑。
// 提交不做重试，失败原样返回调用方
type Writer interface {
	// Submit 提交组装好的指令集，返回交易签名。
	// 取消 ctx 只放弃本地等待：已提交的交易仍可能落地
	Submit(ctx context.Context, composed *instruction.Composed) (common.Hash, error)
}

// 链上程序的回滚原因格式：RAISE:<错误码>
var revertCodePattern = regexp.MustCompile(`RAISE:(\d+)`)

// ParseRevert 从提交/调用失败中提取链上程序的结构化错误。
// 无法识别的失败原样返回，绝不本地吞掉
func ParseRevert(err error) error {
	if err == nil {
		return nil
	}
	m := revertCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return err
	}
	return protoerr.FromLedgerCode(code)
}
