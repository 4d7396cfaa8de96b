package config

import (
	"github.com/blues/ess/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Escrow   EscrowConfig   `mapstructure:"escrow"`
	Task     TaskConfig     `mapstructure:"task"`
	API      APIConfig      `mapstructure:"api"`
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

type RedisConfig struct {
	Addr           string `mapstructure:"addr"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db"`
	IdempotencyTTL int    `mapstructure:"idempotency_ttl"` // 秒
}

// LedgerConfig 结算账本配置
type LedgerConfig struct {
	RpcUrl          string `mapstructure:"rpc_url"`          // RPC节点URL
	ChainId         int64  `mapstructure:"chain_id"`         // 链ID
	AssetAddress    string `mapstructure:"asset_address"`    // 结算资产合约地址
	AssetDecimals   int32  `mapstructure:"asset_decimals"`   // 资产精度（USDT为6）
	FinalityTimeout int    `mapstructure:"finality_timeout"` // 等待确认超时（秒）
}

// EscrowConfig 托管密钥配置
type EscrowConfig struct {
	MasterSeedEncrypted string `mapstructure:"master_seed_encrypted"` // 加密后的主种子
	EncryptionKey       string `mapstructure:"encryption_key"`        // 种子加密密钥
}

type TaskConfig struct {
	Interval    int `mapstructure:"interval"`    // 还款巡检间隔（秒）
	Concurrency int `mapstructure:"concurrency"` // 批量巡检并发数
	CheckDelay  int `mapstructure:"check_delay"` // 单项目间隔（毫秒），避免节点限流
}

type APIConfig struct {
	CheckerKey string `mapstructure:"checker_key"` // 批量巡检接口的共享密钥
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
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
	viper.AddConfigPath("/etc/ess")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "escrow")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.idempotency_ttl", 86400)
	viper.SetDefault("ledger.asset_decimals", 6)
	viper.SetDefault("ledger.finality_timeout", 60)
	viper.SetDefault("task.interval", 300)
	viper.SetDefault("task.concurrency", 4)
	viper.SetDefault("task.check_delay", 1000)
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
