package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/zemyth-app/raise/internal/lifecycle"
	"github.com/zemyth-app/raise/internal/logger"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 账本接入配置
type ChainConfig struct {
	RpcUrl        string `mapstructure:"rpc_url"`        // RPC节点URL
	PrivateKey    string `mapstructure:"private_key"`    // 提交交易用私钥
	ChainId       int64  `mapstructure:"chain_id"`       // 链ID
	ProgramAddr   string `mapstructure:"program_addr"`   // 募资程序地址
	StartBlock    uint64 `mapstructure:"start_block"`    // 程序部署区块号，事件扫描起点
	Confirmations int    `mapstructure:"confirmations"`  // 终局性确认数
	BatchSize     uint64 `mapstructure:"batch_size"`     // 单次日志扫描的区块跨度
	CallTimeout   int    `mapstructure:"call_timeout"`   // 单次链上调用超时（秒）
}

// ProtocolConfig 协议时间参数。零值字段使用协议默认值；
// dev_mode 缩短各时间窗，仅供测试网使用
type ProtocolConfig struct {
	DevMode              bool `mapstructure:"dev_mode"`
	MinDeadlineSec       int  `mapstructure:"min_deadline_sec"`
	VotingWindowSec      int  `mapstructure:"voting_window_sec"`
	InactivityTimeoutSec int  `mapstructure:"inactivity_timeout_sec"`
	ExitWindowSec        int  `mapstructure:"exit_window_sec"`
	WithdrawalWindowSec  int  `mapstructure:"withdrawal_window_sec"`
	StallThresholdSec    int  `mapstructure:"stall_threshold_sec"`
	CoolingOffSec        int  `mapstructure:"cooling_off_sec"`
}

// Params 将配置折算为生命周期参数，未配置的字段保持默认
func (p ProtocolConfig) Params() lifecycle.Params {
	params := lifecycle.DefaultParams(p.DevMode)
	if p.MinDeadlineSec > 0 {
		params.MinDeadline = time.Duration(p.MinDeadlineSec) * time.Second
	}
	if p.VotingWindowSec > 0 {
		params.VotingWindow = time.Duration(p.VotingWindowSec) * time.Second
	}
	if p.InactivityTimeoutSec > 0 {
		params.InactivityTimeout = time.Duration(p.InactivityTimeoutSec) * time.Second
	}
	if p.ExitWindowSec > 0 {
		params.ExitWindow = time.Duration(p.ExitWindowSec) * time.Second
	}
	if p.WithdrawalWindowSec > 0 {
		params.WithdrawalWindow = time.Duration(p.WithdrawalWindowSec) * time.Second
	}
	if p.StallThresholdSec > 0 {
		params.StallThreshold = time.Duration(p.StallThresholdSec) * time.Second
	}
	if p.CoolingOffSec > 0 {
		params.CoolingOff = time.Duration(p.CoolingOffSec) * time.Second
	}
	return params
}

type TaskConfig struct {
	SweepInterval     int `mapstructure:"sweep_interval"`     // 废弃/停滞巡检间隔（秒）
	ReconcileInterval int `mapstructure:"reconcile_interval"` // 快照对账间隔（秒）
	MonitorInterval   int `mapstructure:"monitor_interval"`   // 事件扫描间隔（秒）
	PoolSize          int `mapstructure:"pool_size"`          // 事件处理协程池大小
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, stderr, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

// GetLevel 实现 logger.LogConfig 接口
func (l LogConfig) GetLevel() string {
	return l.Level
}

// GetOutput 实现 logger.LogConfig 接口
func (l LogConfig) GetOutput() string {
	return l.Output
}

// GetFile 实现 logger.LogConfig 接口
func (l LogConfig) GetFile() string {
	return l.File
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/raise")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "raise")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.start_block", 0)
	viper.SetDefault("chain.confirmations", 12)
	viper.SetDefault("chain.batch_size", 2000)
	viper.SetDefault("chain.call_timeout", 15)
	viper.SetDefault("protocol.dev_mode", false)
	viper.SetDefault("task.sweep_interval", 300)
	viper.SetDefault("task.reconcile_interval", 600)
	viper.SetDefault("task.monitor_interval", 15)
	viper.SetDefault("task.pool_size", 16)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
