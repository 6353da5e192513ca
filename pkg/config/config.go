package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"` // "kafka" or "clickhouse"
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Exchange struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		RestURL        string        `yaml:"rest_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"exchange"`
	Sentiment struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"sentiment"`
	Markets struct {
		Symbols         []string `yaml:"symbols"`
		ReferenceSymbol string   `yaml:"reference_symbol"`
		LookbackDays    int      `yaml:"lookback_days"`
	} `yaml:"markets"`
	Forecast ForecastConfig `yaml:"forecast"`
	API      struct {
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst float64 `yaml:"rate_limit_burst"`
	} `yaml:"api"`
}

// ForecastConfig is the engine configuration resolved once at startup.
type ForecastConfig struct {
	StalenessWindow time.Duration `yaml:"staleness_window"`
	MinHistory      int           `yaml:"min_history"`
	SimpleBootstrap bool          `yaml:"simple_bootstrap"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	IntervalWidth   float64       `yaml:"interval_width"`
	Horizons        []string      `yaml:"horizons"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Markets.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		c.Sentiment.BaseURL = v
	}
	if v := os.Getenv("SIMPLE_BOOTSTRAP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Forecast.SimpleBootstrap = b
		}
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Markets.ReferenceSymbol == "" {
		c.Markets.ReferenceSymbol = "BTC"
	}
	if c.Markets.LookbackDays <= 0 {
		c.Markets.LookbackDays = 30
	}
	if c.Forecast.StalenessWindow <= 0 {
		c.Forecast.StalenessWindow = 45 * time.Minute
	}
	if c.Forecast.MinHistory <= 0 {
		c.Forecast.MinHistory = 48
	}
	if c.Forecast.CacheTTL <= 0 {
		c.Forecast.CacheTTL = time.Hour
	}
	if c.Forecast.IntervalWidth <= 0 {
		c.Forecast.IntervalWidth = 0.8
	}
	if len(c.Forecast.Horizons) == 0 {
		c.Forecast.Horizons = []string{"1h", "4h", "24h", "7d"}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Markets.Symbols) == 0 {
		return fmt.Errorf("markets.symbols cannot be empty")
	}
	if c.Forecast.IntervalWidth >= 1 {
		return fmt.Errorf("forecast.interval_width must be below 1")
	}
	return nil
}
