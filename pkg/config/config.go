package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	applogger "RelVal/pkg/logger"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Pair struct {
	X string `yaml:"x" validate:"required"`
	Y string `yaml:"y" validate:"required,nefield=X"`
}

type Config struct {
	Environment string           `yaml:"environment" default:"dev" validate:"oneof=dev staging prod test"`
	Log         applogger.Config `yaml:"log"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity" default:"20" validate:"gt=0"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"2" validate:"gt=0"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled" default:"true"`
	} `yaml:"metrics"`
	Data struct {
		Source string `yaml:"source" default:"csv" validate:"oneof=csv clickhouse"`
		CSVDir string `yaml:"csv_dir" default:"data"`
	} `yaml:"data"`
	Model struct {
		RegressionLookback string  `yaml:"regression_lookback" default:"2Y" validate:"required"`
		OULookback         string  `yaml:"ou_lookback" default:"26W" validate:"required"`
		SignalThreshold    float64 `yaml:"signal_threshold" default:"1.5" validate:"gt=0"`
	} `yaml:"model"`
	Scan struct {
		Workers int    `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
		Pairs   []Pair `yaml:"pairs" validate:"dive"`
	} `yaml:"scan"`
	Results struct {
		Store   bool `yaml:"store"`
		Publish bool `yaml:"publish"`
	} `yaml:"results"`
	Cache struct {
		Backend string        `yaml:"backend" default:"memory" validate:"oneof=memory redis none"`
		TTL     time.Duration `yaml:"ttl" default:"5m"`
		Redis   struct {
			Addr     string `yaml:"addr" default:"localhost:6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"relval:"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Brokers       []string `yaml:"brokers"`
		ResultsTopic  string   `yaml:"results_topic" default:"relval.pair-analyses"`
		RequestsTopic string   `yaml:"requests_topic" default:"relval.analysis-requests"`
		RequiredAcks  int      `yaml:"required_acks" default:"-1"`
		Compression   string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID         string        `yaml:"group_id" default:"relval"`
			AutoOffsetReset string        `yaml:"auto_offset_reset" default:"earliest" validate:"oneof=earliest latest"`
			Workers         int           `yaml:"workers" default:"2" validate:"gte=1"`
			BufferSize      int           `yaml:"buffer_size" default:"16"`
			RetryMax        int           `yaml:"retry_max" default:"2"`
			BackoffMin      time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax      time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic        string        `yaml:"dlq_topic"`
			MinBytes        int           `yaml:"min_bytes" default:"1"`
			MaxBytes        int           `yaml:"max_bytes" default:"1048576"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"relval"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Default returns a fully defaulted configuration without reading a file.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Load reads a YAML file, fills unset fields with defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads the file when it exists (defaults otherwise) and applies
// RELVAL_* environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RELVAL_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("RELVAL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("RELVAL_DATA_SOURCE"); v != "" {
		c.Data.Source = v
	}
	if v := getenv("RELVAL_CSV_DIR"); v != "" {
		c.Data.CSVDir = v
	}
	if v := getenv("RELVAL_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getenv("RELVAL_CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := getenv("RELVAL_CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := getenv("RELVAL_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := getenv("RELVAL_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RELVAL_PORT: %w", err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if (c.Results.Publish || c.Kafka.Consumer.Enabled) && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when publishing results or consuming requests")
	}
	if c.Data.Source == "csv" && c.Data.CSVDir == "" {
		return fmt.Errorf("data.csv_dir is required for the csv source")
	}
	return nil
}

// NeedsClickHouse reports whether any enabled component talks to ClickHouse.
func (c *Config) NeedsClickHouse() bool {
	return c.Data.Source == "clickhouse" || c.Results.Store
}
