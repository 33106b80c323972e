package event

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// 募资程序的事件ABI。所有事件首个索引参数均为项目ID，
// 投资人相关事件额外索引参与者地址
const eventsABI = `[
	{"anonymous": false, "name": "ProjectCreated", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "founder", "type": "address"},
		{"indexed": false, "name": "fundingGoal", "type": "uint256"},
		{"indexed": false, "name": "milestoneCount", "type": "uint8"}
	]},
	{"anonymous": false, "name": "ProjectApproved", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"}
	]},
	{"anonymous": false, "name": "InvestmentMade", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "investor", "type": "address"},
		{"indexed": false, "name": "mint", "type": "address"},
		{"indexed": false, "name": "amount", "type": "uint256"},
		{"indexed": false, "name": "tierIndex", "type": "uint8"},
		{"indexed": false, "name": "voteWeight", "type": "uint256"}
	]},
	{"anonymous": false, "name": "ProjectFunded", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "amountRaised", "type": "uint256"},
		{"indexed": false, "name": "investorCount", "type": "uint64"}
	]},
	{"anonymous": false, "name": "MilestoneSubmitted", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "votingRound", "type": "uint8"},
		{"indexed": false, "name": "votingEndsAt", "type": "uint64"}
	]},
	{"anonymous": false, "name": "VoteCast", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "voter", "type": "address"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "votingRound", "type": "uint8"},
		{"indexed": false, "name": "choice", "type": "uint8"},
		{"indexed": false, "name": "weight", "type": "uint256"}
	]},
	{"anonymous": false, "name": "VotingFinalized", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "passed", "type": "bool"},
		{"indexed": false, "name": "yesVotes", "type": "uint256"},
		{"indexed": false, "name": "noVotes", "type": "uint256"},
		{"indexed": false, "name": "totalWeight", "type": "uint256"}
	]},
	{"anonymous": false, "name": "MilestoneReworked", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "newRound", "type": "uint8"}
	]},
	{"anonymous": false, "name": "DeadlineExtended", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "newDeadline", "type": "uint64"},
		{"indexed": false, "name": "extensionCount", "type": "uint8"}
	]},
	{"anonymous": false, "name": "FundsReleased", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "amount", "type": "uint256"}
	]},
	{"anonymous": false, "name": "TokensClaimed", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "investor", "type": "address"},
		{"indexed": false, "name": "mint", "type": "address"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"},
		{"indexed": false, "name": "amount", "type": "uint256"}
	]},
	{"anonymous": false, "name": "DistributionForceCompleted", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "milestoneIndex", "type": "uint8"}
	]},
	{"anonymous": false, "name": "ProjectAbandoned", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"}
	]},
	{"anonymous": false, "name": "ExitWindowOpened", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "windowEnd", "type": "uint64"}
	]},
	{"anonymous": false, "name": "RefundClaimed", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "investor", "type": "address"},
		{"indexed": false, "name": "mint", "type": "address"},
		{"indexed": false, "name": "amount", "type": "uint256"}
	]},
	{"anonymous": false, "name": "PivotProposed", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "pivotIndex", "type": "uint8"},
		{"indexed": false, "name": "newMilestoneCount", "type": "uint8"}
	]},
	{"anonymous": false, "name": "PivotApproved", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "pivotIndex", "type": "uint8"},
		{"indexed": false, "name": "withdrawWindowEnd", "type": "uint64"}
	]},
	{"anonymous": false, "name": "PivotWithdrawal", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "investor", "type": "address"},
		{"indexed": false, "name": "mint", "type": "address"},
		{"indexed": false, "name": "amount", "type": "uint256"}
	]},
	{"anonymous": false, "name": "PivotFinalized", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "pivotIndex", "type": "uint8"}
	]},
	{"anonymous": false, "name": "ProjectCompleted", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"}
	]},
	{"anonymous": false, "name": "VestingClaimed", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": false, "name": "amount", "type": "uint256"}
	]},
	{"anonymous": false, "name": "ScamReported", "type": "event", "inputs": [
		{"indexed": true, "name": "projectId", "type": "uint64"},
		{"indexed": true, "name": "reporter", "type": "address"}
	]}
]`

// Decoded 解码后的单条事件
type Decoded struct {
	Name        string
	ProjectID   uint64
	Fields      map[string]interface{}
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// Decoder 事件解码器，按事件签名哈希路由
type Decoder struct {
	abi    abi.ABI
	byName map[common.Hash]abi.Event
}

func NewDecoder() (*Decoder, error) {
	parsed, err := abi.JSON(strings.NewReader(eventsABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse events ABI: %w", err)
	}

	byName := make(map[common.Hash]abi.Event, len(parsed.Events))
	for _, ev := range parsed.Events {
		byName[ev.ID] = ev
	}
	return &Decoder{abi: parsed, byName: byName}, nil
}

// Decode 解析单条日志。未知签名返回错误，调用方决定跳过还是告警
func (d *Decoder) Decode(l types.Log) (*Decoded, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("log without topics")
	}
	ev, ok := d.byName[l.Topics[0]]
	if !ok {
		return nil, fmt.Errorf("unknown event signature: %s", l.Topics[0].Hex())
	}

	fields := make(map[string]interface{})

	// 索引参数来自topics
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(l.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("event %s: expected %d indexed topics, got %d",
			ev.Name, len(indexed), len(l.Topics)-1)
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse topics for %s: %w", ev.Name, err)
	}

	// 非索引参数来自data
	if err := d.abi.UnpackIntoMap(fields, ev.Name, l.Data); err != nil {
		return nil, fmt.Errorf("failed to unpack data for %s: %w", ev.Name, err)
	}

	projectID, ok := fields["projectId"].(uint64)
	if !ok {
		return nil, fmt.Errorf("event %s missing projectId", ev.Name)
	}

	return &Decoded{
		Name:        ev.Name,
		ProjectID:   projectID,
		Fields:      fields,
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
	}, nil
}
