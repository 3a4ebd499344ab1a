package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"TradeForge/pkg/logger"
)

type Config struct {
	Environment string        `yaml:"environment" default:"development" validate:"required"`
	Logger      logger.Config `yaml:"logger"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9090"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Binance struct {
		APIKey      string   `yaml:"api_key"`
		SecretKey   string   `yaml:"secret_key"`
		Symbols     []string `yaml:"symbols" validate:"min=1"`
		Interval    string   `yaml:"interval" default:"1d"`
		HistoryDays int      `yaml:"history_days" default:"400"`
	} `yaml:"binance"`

	WeightStore struct {
		BaseURL string        `yaml:"base_url"`
		UserID  string        `yaml:"user_id" default:"default"`
		Timeout time.Duration `yaml:"timeout" default:"10s"`
	} `yaml:"weight_store"`

	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert" default:"true"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"validation.reports"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	Queue struct {
		Workers    int           `yaml:"workers" default:"2"`
		MaxRetries int           `yaml:"max_retries" default:"3"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"queue"`

	Backtest struct {
		InitialBalance   float64 `yaml:"initial_balance" default:"10000"`
		MaxDailyLoss     float64 `yaml:"max_daily_loss" default:"0.05"`
		MaxDrawdown      float64 `yaml:"max_drawdown" default:"0.20"`
		MinTradeInterval int     `yaml:"min_trade_interval" default:"3"`
		SampleEvery      int     `yaml:"sample_every" default:"1"`
		RiskProfile      string  `yaml:"risk_profile" default:"medium" validate:"oneof=low medium high"`
	} `yaml:"backtest"`

	Validation struct {
		TrainMonths   int     `yaml:"train_months" default:"3"`
		TestMonths    int     `yaml:"test_months" default:"1"`
		BarsPerMonth  int     `yaml:"bars_per_month" default:"30"`
		MinTradeCount int     `yaml:"min_trade_count" default:"15"`
		MinWinRate    float64 `yaml:"min_win_rate" default:"0.43"`
		MinSharpe     float64 `yaml:"min_sharpe" default:"0.3"`
		MaxDrawdown   float64 `yaml:"max_drawdown" default:"0.25"`
		TrainEpisodes int     `yaml:"train_episodes" default:"10"`
	} `yaml:"validation"`

	Training struct {
		Episodes       int     `yaml:"episodes" default:"20"`
		LearningRate   float64 `yaml:"learning_rate" default:"0.01"`
		Gamma          float64 `yaml:"gamma" default:"0.95"`
		SequenceLength int     `yaml:"sequence_length" default:"50"`
		Seed           int64   `yaml:"seed" default:"1"`
	} `yaml:"training"`
}

// Load reads a YAML file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables, so deployments can keep secrets out of the file.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_SECRET_KEY"); v != "" {
		c.Binance.SecretKey = v
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("WEIGHT_STORE_URL"); v != "" {
		c.WeightStore.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}

	return c, nil
}

// Validate checks structural constraints plus the cross-field rules the
// tag syntax cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Validation.TrainMonths <= 0 || c.Validation.TestMonths <= 0 {
		return fmt.Errorf("validation window months must be positive")
	}
	if c.Backtest.SampleEvery <= 0 {
		return fmt.Errorf("backtest.sample_every must be positive")
	}
	return nil
}
