package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/panjf2000/ants/v2"
	"github.com/zemyth-app/raise/internal/event"
	"github.com/zemyth-app/raise/internal/ledger"
	"github.com/zemyth-app/raise/internal/logger"
	"github.com/zemyth-app/raise/internal/logic"
	"github.com/zemyth-app/raise/internal/model"
	"gorm.io/gorm"
)

// EventMonitor 链上事件监控器。按区块区间扫描程序日志，
// 解码后落事件流水并派发快照处理。单条日志以 (tx_hash, log_index)
// 幂等，重扫区间不会产生重复记录
type EventMonitor struct {
	client     *ledger.Client
	decoder    *event.Decoder
	processor  *event.Processor
	eventLogic *logic.EventLogic

	pool      *ants.Pool
	interval  time.Duration
	batchSize uint64
	lastBlock uint64

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex // 保护 lastBlock
}

// NewEventMonitor 创建事件监控器
func NewEventMonitor(client *ledger.Client, db *gorm.DB, processor *event.Processor,
	interval time.Duration, batchSize uint64, poolSize int) (*EventMonitor, error) {
	decoder, err := event.NewDecoder()
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &EventMonitor{
		client:     client,
		decoder:    decoder,
		processor:  processor,
		eventLogic: logic.NewEventLogic(db),
		pool:       pool,
		interval:   interval,
		batchSize:  batchSize,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start 启动监控
func (m *EventMonitor) Start() error {
	if err := m.loadLastBlock(); err != nil {
		logger.Warn("Failed to load last block, starting from config: %v", err)
		m.lastBlock = m.client.GetStartBlock()
	}

	logger.Info("Starting ledger event monitor from block %d", m.lastBlock)
	go m.loop()
	return nil
}

// Stop 停止监控并释放协程池
func (m *EventMonitor) Stop() {
	m.cancel()
	m.pool.Release()
}

// loadLastBlock 从事件流水恢复扫描进度
func (m *EventMonitor) loadLastBlock() error {
	lastBlock, err := m.eventLogic.GetLastProcessedBlock()
	if err != nil {
		return err
	}
	if lastBlock == 0 {
		m.lastBlock = m.client.GetStartBlock()
	} else {
		m.lastBlock = lastBlock
	}
	return nil
}

// loop 监控循环
func (m *EventMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info("Event monitor stopped")
			return
		case <-ticker.C:
			if err := m.scan(); err != nil {
				logger.Error("Error scanning ledger events: %v", err)
			}
		}
	}
}

// scan 扫描新区块区间，只扫到确认高度以规避重组
func (m *EventMonitor) scan() error {
	currentBlock, err := m.client.GetLatestConfirmedBlock(m.ctx)
	if err != nil {
		return fmt.Errorf("failed to get latest block: %w", err)
	}

	m.mu.Lock()
	from := m.lastBlock + 1
	m.mu.Unlock()

	for from <= currentBlock {
		to := from + m.batchSize - 1
		if to > currentBlock {
			to = currentBlock
		}

		if err := m.scanRange(from, to); err != nil {
			return fmt.Errorf("failed to scan blocks %d-%d: %w", from, to, err)
		}

		m.mu.Lock()
		m.lastBlock = to
		m.mu.Unlock()
		from = to + 1
	}
	return nil
}

// scanRange 扫描单个区间并并行处理日志
func (m *EventMonitor) scanRange(from, to uint64) error {
	logs, err := m.client.GetLogs(m.ctx, from, to)
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		return nil
	}
	logger.Debug("Processing %d logs in blocks %d-%d", len(logs), from, to)

	var wg sync.WaitGroup
	for _, l := range logs {
		l := l
		wg.Add(1)
		if err := m.pool.Submit(func() {
			defer wg.Done()
			if err := m.processLog(l); err != nil {
				logger.Error("Error processing log %s/%d: %v", l.TxHash.Hex(), l.Index, err)
			}
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit log to pool: %v", err)
		}
	}
	wg.Wait()
	return nil
}

// processLog 解码、落流水、派发快照处理
func (m *EventMonitor) processLog(l types.Log) error {
	decoded, err := m.decoder.Decode(l)
	if err != nil {
		// 未知签名可能来自程序升级后的新事件，跳过不算失败
		logger.Warn("Skipping undecodable log %s/%d: %v", l.TxHash.Hex(), l.Index, err)
		return nil
	}

	exists, err := m.eventLogic.CheckEventExists(decoded.TxHash.Hex(), int64(decoded.LogIndex))
	if err != nil {
		return fmt.Errorf("failed to check event existence: %w", err)
	}
	if exists {
		return nil
	}

	dataJSON, err := json.Marshal(decoded.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal event fields: %w", err)
	}

	record := &model.EventModel{
		ProjectId: int64(decoded.ProjectID),
		EventType: decoded.Name,
		TxHash:    decoded.TxHash.Hex(),
		BlockNum:  int64(decoded.BlockNumber),
		LogIndex:  int64(decoded.LogIndex),
		Data:      string(dataJSON),
		Processed: false,
	}
	if err := m.eventLogic.CreateEvent(record); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	if err := m.processor.Process(m.ctx, decoded); err != nil {
		return fmt.Errorf("failed to process event %s: %w", decoded.Name, err)
	}

	if err := m.eventLogic.UpdateEventProcessed(record.Id, true); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	logger.Info("Processed event %s for project %d in block %d",
		decoded.Name, decoded.ProjectID, decoded.BlockNumber)
	return nil
}
