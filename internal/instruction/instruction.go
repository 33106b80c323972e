// Package instruction 负责为每个协议动作组装参与账户列表和指令负载。
// 每个动作的账户顺序是固定且成文的：顺序属于链上程序期望的账户布局，
// 与派生地址、字节宽度一样是兼容面的一部分，不可重排。
// 组装层不做重试，提交失败原样返回给调用方。
package instruction

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// 指令标签，负载首字节
const (
	OpCreateProject     uint8 = 1
	OpSubmitForApproval uint8 = 2
	OpApproveProject    uint8 = 3
	OpInvest            uint8 = 4
	OpSetDeadline       uint8 = 5
	OpExtendDeadline    uint8 = 6
	OpSubmitMilestone   uint8 = 7
	OpCastVote          uint8 = 8
	OpFinalizeVoting    uint8 = 9
	OpUnlockMilestone   uint8 = 10
	OpReworkMilestone   uint8 = 11
	OpClaimTokens       uint8 = 12
	OpBatchDistribute   uint8 = 13
	OpForceComplete     uint8 = 14
	OpRecoveryClaim     uint8 = 15
	OpMarkAbandoned     uint8 = 16
	OpClaimRefund       uint8 = 17
	OpExitClaim         uint8 = 18
	OpProposePivot      uint8 = 19
	OpApprovePivot      uint8 = 20
	OpPivotWithdraw     uint8 = 21
	OpFinalizePivot     uint8 = 22
	OpCompleteProject   uint8 = 23
	OpInitVesting       uint8 = 24
	OpClaimVesting      uint8 = 25
	OpReportScam        uint8 = 26
)

// AccountMeta 指令涉及的单个账户。派生地址直接使用32字节，
// 钱包地址左侧补零到32字节
type AccountMeta struct {
	Key      common.Hash // 账户地址
	Signer   bool        // 是否要求签名
	Writable bool        // 是否可写
}

// Instruction 单条指令：账户列表按固定顺序排列，负载为标签加小端字段
type Instruction struct {
	Program  common.Address // 目标程序地址
	Accounts []AccountMeta  // 参与账户，顺序固定
	Data     []byte         // 指令负载
}

// Composed 一次协议动作组装出的指令集与必需签名人。
// 指令集由链上程序原子执行：要么全部生效，要么全部不生效
type Composed struct {
	Instructions []Instruction
	Signers      []common.Address
}

// WalletKey 将20字节钱包地址左侧补零为32字节账户键
func WalletKey(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

// Serialize 将指令编码为链上程序期望的字节序列：
// 1字节账户数，每个账户32字节键加1字节标志位，随后是负载
func (ix *Instruction) Serialize() ([]byte, error) {
	if len(ix.Accounts) > 255 {
		return nil, fmt.Errorf("instruction has %d accounts, max 255", len(ix.Accounts))
	}
	buf := make([]byte, 0, 1+len(ix.Accounts)*33+len(ix.Data))
	buf = append(buf, uint8(len(ix.Accounts)))
	for _, a := range ix.Accounts {
		buf = append(buf, a.Key.Bytes()...)
		var flags uint8
		if a.Signer {
			flags |= 1
		}
		if a.Writable {
			flags |= 2
		}
		buf = append(buf, flags)
	}
	buf = append(buf, ix.Data...)
	return buf, nil
}

// ---- 负载编码器，小端定宽，与账户编码约定一致 ----

type payload struct {
	buf []byte
	err error
}

func newPayload(op uint8) *payload {
	return &payload{buf: []byte{op}}
}

func (p *payload) u8(v uint8) *payload {
	p.buf = append(p.buf, v)
	return p
}

func (p *payload) u64(v uint64) *payload {
	p.buf = binary.LittleEndian.AppendUint64(p.buf, v)
	return p
}

func (p *payload) i64(v int64) *payload { return p.u64(uint64(v)) }

func (p *payload) amount(v *big.Int) *payload {
	if v == nil {
		v = new(big.Int)
	}
	if v.Sign() < 0 || len(v.Bytes()) > 32 {
		if p.err == nil {
			p.err = fmt.Errorf("amount %s out of range", v)
		}
		return p
	}
	be := v.Bytes()
	le := make([]byte, 32)
	for i, b := range be {
		le[len(be)-1-i] = b
	}
	p.buf = append(p.buf, le...)
	return p
}

func (p *payload) address(a common.Address) *payload {
	p.buf = append(p.buf, a.Bytes()...)
	return p
}

func (p *payload) bytes8(v []uint8) *payload {
	p.buf = append(p.buf, uint8(len(v)))
	p.buf = append(p.buf, v...)
	return p
}

func (p *payload) str(s string) *payload {
	p.buf = binary.LittleEndian.AppendUint32(p.buf, uint32(len(s)))
	p.buf = append(p.buf, s...)
	return p
}

func (p *payload) done() ([]byte, error) { return p.buf, p.err }
