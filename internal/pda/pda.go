package pda

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind 账户种类，决定派生地址时使用的文本前缀和种子格式
type Kind uint8

const (
	KindProject        Kind = iota // 项目账户：全局项目ID（8字节小端）
	KindEscrow                     // 资金托管账户：项目ID（8字节小端）
	KindMilestone                  // 里程碑账户：项目地址 + 序号（1字节）
	KindInvestment                 // 投资账户：项目地址 + 铸造标识地址
	KindVote                       // 投票账户：里程碑地址 + 投票人地址 + 轮次（1字节）
	KindPivot                      // 转型提案账户：项目地址 + 转型计数（1字节）
	KindVault                      // 代币金库账户：项目地址
	KindTokenomics                 // 代币经济学账户：项目地址
	KindFounderVesting             // 创始人归属账户：项目地址
	KindDistribution               // 代币分发进度账户：里程碑地址
	KindAdminConfig                // 管理员配置账户：全局唯一，无种子
)

// 各账户种类的文本前缀。前缀参与派生，保证不同种类的账户
// 即使原始种子字节相同也不会碰撞。前缀属于链上兼容面，不可更改。
var kindPrefixes = map[Kind]string{
	KindProject:        "project",
	KindEscrow:         "escrow",
	KindMilestone:      "milestone",
	KindInvestment:     "investment",
	KindVote:           "vote",
	KindPivot:          "pivot",
	KindVault:          "vault",
	KindTokenomics:     "tokenomics",
	KindFounderVesting: "founder_vesting",
	KindDistribution:   "distribution",
	KindAdminConfig:    "admin_config",
}

// 各账户种类期望的种子字节宽度序列。派生前逐一校验，
// 宽度不符立即返回 ErrMalformedSeed，绝不静默截断或补零。
var kindSeedWidths = map[Kind][]int{
	KindProject:        {8},
	KindEscrow:         {8},
	KindMilestone:      {32, 1},
	KindInvestment:     {32, 20},
	KindVote:           {32, 20, 1},
	KindPivot:          {32, 1},
	KindVault:          {32},
	KindTokenomics:     {32},
	KindFounderVesting: {32},
	KindDistribution:   {32},
	KindAdminConfig:    {},
}

// String 返回账户种类的前缀名
func (k Kind) String() string {
	if p, ok := kindPrefixes[k]; ok {
		return p
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Derive 按种类和种子派生账户地址。
// 地址 = keccak256(前缀 || 种子... || 程序地址)，对同一种子元组在任何实现中结果一致。
// 种子顺序和字节宽度是链上兼容面的一部分，调用方不得重排或改宽。
func Derive(programID common.Address, kind Kind, seeds ...[]byte) (common.Hash, error) {
	prefix, ok := kindPrefixes[kind]
	if !ok {
		return common.Hash{}, fmt.Errorf("%w: 未知的账户种类 %d", ErrMalformedSeed, kind)
	}

	widths := kindSeedWidths[kind]
	if len(seeds) != len(widths) {
		return common.Hash{}, fmt.Errorf("%w: %s 需要 %d 个种子，实际 %d 个",
			ErrMalformedSeed, prefix, len(widths), len(seeds))
	}
	for i, seed := range seeds {
		if len(seed) != widths[i] {
			return common.Hash{}, fmt.Errorf("%w: %s 第 %d 个种子应为 %d 字节，实际 %d 字节",
				ErrMalformedSeed, prefix, i, widths[i], len(seed))
		}
	}

	data := make([]byte, 0, len(prefix)+40+len(seeds)*32)
	data = append(data, []byte(prefix)...)
	for _, seed := range seeds {
		data = append(data, seed...)
	}
	data = append(data, programID.Bytes()...)

	return common.BytesToHash(crypto.Keccak256(data)), nil
}

// ProjectAddress 派生项目账户地址
func ProjectAddress(programID common.Address, projectID uint64) common.Hash {
	addr, _ := Derive(programID, KindProject, EncodeU64(projectID))
	return addr
}

// EscrowAddress 派生资金托管账户地址
func EscrowAddress(programID common.Address, projectID uint64) common.Hash {
	addr, _ := Derive(programID, KindEscrow, EncodeU64(projectID))
	return addr
}

// MilestoneAddress 派生里程碑账户地址
func MilestoneAddress(programID common.Address, project common.Hash, index uint8) common.Hash {
	addr, _ := Derive(programID, KindMilestone, project.Bytes(), EncodeU8(index))
	return addr
}

// InvestmentAddress 派生投资账户地址。mint 为该笔投资绑定的NFT铸造标识
func InvestmentAddress(programID common.Address, project common.Hash, mint common.Address) common.Hash {
	addr, _ := Derive(programID, KindInvestment, project.Bytes(), mint.Bytes())
	return addr
}

// VoteAddress 派生投票账户地址。round 为投票轮次，里程碑返工后递增
func VoteAddress(programID common.Address, milestone common.Hash, voter common.Address, round uint8) common.Hash {
	addr, _ := Derive(programID, KindVote, milestone.Bytes(), voter.Bytes(), EncodeU8(round))
	return addr
}

// PivotAddress 派生转型提案账户地址。pivotCount 为项目当前的转型计数
func PivotAddress(programID common.Address, project common.Hash, pivotCount uint8) common.Hash {
	addr, _ := Derive(programID, KindPivot, project.Bytes(), EncodeU8(pivotCount))
	return addr
}

// VaultAddress 派生代币金库账户地址
func VaultAddress(programID common.Address, project common.Hash) common.Hash {
	addr, _ := Derive(programID, KindVault, project.Bytes())
	return addr
}

// TokenomicsAddress 派生代币经济学账户地址
func TokenomicsAddress(programID common.Address, project common.Hash) common.Hash {
	addr, _ := Derive(programID, KindTokenomics, project.Bytes())
	return addr
}

// FounderVestingAddress 派生创始人归属账户地址
func FounderVestingAddress(programID common.Address, project common.Hash) common.Hash {
	addr, _ := Derive(programID, KindFounderVesting, project.Bytes())
	return addr
}

// DistributionAddress 派生代币分发进度账户地址
func DistributionAddress(programID common.Address, milestone common.Hash) common.Hash {
	addr, _ := Derive(programID, KindDistribution, milestone.Bytes())
	return addr
}

// AdminConfigAddress 派生管理员配置账户地址，全局唯一
func AdminConfigAddress(programID common.Address) common.Hash {
	addr, _ := Derive(programID, KindAdminConfig)
	return addr
}

// EncodeU64 将64位整数编码为8字节小端。宽度属于链上兼容面，不可更改
func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// DecodeU64 解码8字节小端整数
func DecodeU64(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: u64 应为 8 字节，实际 %d 字节", ErrMalformedSeed, len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

// EncodeU8 将序号/轮次/计数编码为1字节
func EncodeU8(v uint8) []byte {
	return []byte{v}
}

// DecodeU8 解码1字节整数
func DecodeU8(b []byte) (uint8, error) {
	if len(b) != 1 {
		return 0, fmt.Errorf("%w: u8 应为 1 字节，实际 %d 字节", ErrMalformedSeed, len(b))
	}
	return b[0], nil
}
