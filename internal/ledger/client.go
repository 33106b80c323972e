package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/zemyth-app/raise/internal/account"
	"github.com/zemyth-app/raise/internal/config"
	"github.com/zemyth-app/raise/internal/instruction"
)

// 募资程序的账户存取与指令执行接口（精简版）
const programABI = `[
	{
		"inputs": [{"name": "addr", "type": "bytes32"}],
		"name": "getAccount",
		"outputs": [{"name": "data", "type": "bytes"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "prefix", "type": "bytes"}],
		"name": "scanAccounts",
		"outputs": [
			{"name": "addrs", "type": "bytes32[]"},
			{"name": "datas", "type": "bytes[]"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "instructions", "type": "bytes[]"}],
		"name": "execute",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Client 账本客户端，募资程序的唯一链上入口。
// 同时实现 Reader 与 Writer
type Client struct {
	client        *ethclient.Client
	privateKey    *ecdsa.PrivateKey
	chainID       *big.Int
	ProgramAddr   common.Address
	startBlock    uint64
	confirmations int
	callTimeout   time.Duration
	programABI    abi.ABI
}

var _ Reader = (*Client)(nil)
var _ Writer = (*Client)(nil)

func Init(cfg config.ChainConfig) (*Client, error) {
	// 连接账本节点
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger node: %w", err)
	}

	// 解析私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	// 解析ABI
	parsedABI, err := abi.JSON(strings.NewReader(programABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse program ABI: %w", err)
	}

	callTimeout := time.Duration(cfg.CallTimeout) * time.Second
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}

	return &Client{
		client:        client,
		privateKey:    privateKey,
		chainID:       big.NewInt(cfg.ChainId),
		ProgramAddr:   common.HexToAddress(cfg.ProgramAddr),
		startBlock:    cfg.StartBlock,
		confirmations: cfg.Confirmations,
		callTimeout:   callTimeout,
		programABI:    parsedABI,
	}, nil
}

// GetStartBlock 获取事件扫描起始区块
func (c *Client) GetStartBlock() uint64 {
	return c.startBlock
}

// SubmitterAddress 获取提交方地址
func (c *Client) SubmitterAddress() common.Address {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// Read 拉取并解码账户
func (c *Client) Read(ctx context.Context, addr common.Hash) (account.Record, error) {
	raw, err := c.ReadRaw(ctx, addr)
	if err != nil {
		return nil, err
	}
	rec, err := account.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", addr.Hex(), err)
	}
	return rec, nil
}

// ReadRaw 拉取原始账户字节。空返回视为账户不存在
func (c *Client) ReadRaw(ctx context.Context, addr common.Hash) ([]byte, error) {
	input, err := c.programABI.Pack("getAccount", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getAccount call: %w", err)
	}

	out, err := c.call(ctx, input)
	if err != nil {
		return nil, ParseRevert(err)
	}

	var data []byte
	if err := c.programABI.UnpackIntoInterface(&data, "getAccount", out); err != nil {
		return nil, fmt.Errorf("failed to unpack getAccount result: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// ReadAllMatching 按前缀扫描账户。解码失败的条目整体报错而非静默丢弃
func (c *Client) ReadAllMatching(ctx context.Context, prefix []byte) ([]Entry, error) {
	input, err := c.programABI.Pack("scanAccounts", prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to pack scanAccounts call: %w", err)
	}

	out, err := c.call(ctx, input)
	if err != nil {
		return nil, ParseRevert(err)
	}

	results, err := c.programABI.Unpack("scanAccounts", out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack scanAccounts result: %w", err)
	}
	addrs, ok := results[0].([][32]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected scanAccounts addrs type %T", results[0])
	}
	datas, ok := results[1].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected scanAccounts datas type %T", results[1])
	}
	if len(addrs) != len(datas) {
		return nil, fmt.Errorf("scanAccounts length mismatch: %d addrs, %d datas", len(addrs), len(datas))
	}

	entries := make([]Entry, 0, len(addrs))
	for i := range addrs {
		rec, err := account.Decode(datas[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode scanned account %s: %w",
				common.Hash(addrs[i]).Hex(), err)
		}
		entries = append(entries, Entry{Addr: addrs[i], Record: rec})
	}
	return entries, nil
}

// Submit 序列化指令集并作为单笔交易提交，返回交易哈希
func (c *Client) Submit(ctx context.Context, composed *instruction.Composed) (common.Hash, error) {
	if composed == nil || len(composed.Instructions) == 0 {
		return common.Hash{}, fmt.Errorf("empty instruction set")
	}

	serialized := make([][]byte, len(composed.Instructions))
	for i, ix := range composed.Instructions {
		raw, err := ix.Serialize()
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to serialize instruction %d: %w", i, err)
		}
		serialized[i] = raw
	}
	input, err := c.programABI.Pack("execute", serialized)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack execute call: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	from := c.SubmitterAddress()
	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.ProgramAddr,
		Data: input,
	})
	if err != nil {
		return common.Hash{}, ParseRevert(err)
	}

	tx := types.NewTransaction(nonce, c.ProgramAddr, big.NewInt(0), gasLimit, gasPrice, input)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, ParseRevert(err)
	}
	return signedTx.Hash(), nil
}

// call 只读调用，带统一超时
func (c *Client) call(ctx context.Context, input []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	return c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.ProgramAddr,
		Data: input,
	}, nil)
}

// GetLatestBlock 获取最新区块号
func (c *Client) GetLatestBlock(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	header, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return header.Number.Uint64(), nil
}

// GetLatestConfirmedBlock 获取最新区块号减去确认数后的安全高度，
// 事件扫描以此为上界规避重组
func (c *Client) GetLatestConfirmedBlock(ctx context.Context) (uint64, error) {
	latest, err := c.GetLatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	if latest < uint64(c.confirmations) {
		return 0, nil
	}
	return latest - uint64(c.confirmations), nil
}

// GetLogs 获取指定区块范围内程序产生的日志
func (c *Client) GetLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{c.ProgramAddr},
	}
	return c.client.FilterLogs(ctx, query)
}

// IsTransactionConfirmed 检查交易是否达到配置的确认数
func (c *Client) IsTransactionConfirmed(ctx context.Context, txHash common.Hash) (bool, error) {
	receiptCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(receiptCtx, txHash)
	if err != nil {
		return false, err
	}
	if receipt == nil {
		return false, nil
	}

	latestBlock, err := c.GetLatestBlock(ctx)
	if err != nil {
		return false, err
	}
	return latestBlock >= receipt.BlockNumber.Uint64()+uint64(c.confirmations), nil
}
