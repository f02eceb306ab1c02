package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Cryptonorm CryptonormConfig `yaml:"cryptonorm"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Reader     ReaderConfig     `yaml:"reader"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Writer     WriterConfig     `yaml:"writer"`
	Venue      VenueConfig      `yaml:"venue"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type CryptonormConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MetricsConfig struct {
	Enabled        bool             `yaml:"enabled"`
	Listen         string           `yaml:"listen"`
	ReportInterval time.Duration    `yaml:"report_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type ChannelsConfig struct {
	RawBuffer       int `yaml:"raw_buffer"`
	ProcessedBuffer int `yaml:"processed_buffer"`
}

type ReaderConfig struct {
	Timeout        time.Duration        `yaml:"timeout"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

type ProcessorConfig struct {
	MaxWorkers   int           `yaml:"max_workers"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

type WriterConfig struct {
	MaxWorkers    int                `yaml:"max_workers"`
	FlushInterval time.Duration      `yaml:"flush_interval"`
	Partitioning  PartitioningConfig `yaml:"partitioning"`
	Compression   string             `yaml:"compression"`
}

type PartitioningConfig struct {
	TimeFormat string `yaml:"time_format"`
}

// VenueConfig selects the venue endpoint, the symbols the poller follows and
// the encoding profile used by the normalizers.
type VenueConfig struct {
	BaseURL           string   `yaml:"base_url"`
	UserAgent         string   `yaml:"user_agent"`
	APIKey            string   `yaml:"api_key"`
	APISecret         string   `yaml:"api_secret"`
	OrderBookDepth    int      `yaml:"orderbook_depth"`
	BookIntervalMs    int      `yaml:"orderbook_interval_ms"`
	Symbols           []string `yaml:"symbols"`
	TickerIntervalMs  int      `yaml:"ticker_interval_ms"`
	TradeIntervalMs   int      `yaml:"trade_interval_ms"`
	MarketsRefreshMin int      `yaml:"markets_refresh_min"`
	Profile           Profile  `yaml:"profile"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

// Default returns the configuration every file is layered on top of.
func Default() Config {
	return Config{
		Metrics:  MetricsConfig{Listen: "0.0.0.0:2112", ReportInterval: 30 * time.Second},
		Channels: ChannelsConfig{RawBuffer: 64, ProcessedBuffer: 64},
		Reader: ReaderConfig{
			Timeout:   10 * time.Second,
			RateLimit: RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1},
			ConnectionPool: ConnectionPoolConfig{
				MaxIdleConns:    4,
				MaxConnsPerHost: 4,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		Processor: ProcessorConfig{MaxWorkers: 2, BatchSize: 500, BatchTimeout: 5 * time.Second},
		Writer: WriterConfig{
			MaxWorkers:    1,
			FlushInterval: time.Minute,
			Partitioning:  PartitioningConfig{TimeFormat: "{year}/{month}/{day}/{hour}"},
			Compression:   "snappy",
		},
		Venue: VenueConfig{
			BaseURL:           "https://api.txbit.io/api",
			UserAgent:         "cryptonorm",
			TickerIntervalMs:  5000,
			TradeIntervalMs:   5000,
			OrderBookDepth:    50,
			MarketsRefreshMin: 60,
			Profile:           DefaultTxbitProfile(),
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func LoadConfig(path string) (*Config, error) {
	path = resolveEnvSpecificPath(path, defaultConfigPath, envConfigPaths)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("TXBIT_BASE_URL"); v != "" {
		config.Venue.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("TXBIT_API_KEY"); v != "" {
		config.Venue.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("TXBIT_API_SECRET"); v != "" {
		config.Venue.APISecret = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Cryptonorm.Name == "" {
		return fmt.Errorf("cryptonorm.name is required")
	}
	if cfg.Cryptonorm.Version == "" {
		return fmt.Errorf("cryptonorm.version is required")
	}

	if cfg.Channels.RawBuffer <= 0 {
		return fmt.Errorf("channels.raw_buffer must be greater than 0")
	}
	if cfg.Channels.ProcessedBuffer <= 0 {
		return fmt.Errorf("channels.processed_buffer must be greater than 0")
	}

	if cfg.Processor.MaxWorkers <= 0 {
		return fmt.Errorf("processor.max_workers must be greater than 0")
	}
	if cfg.Processor.BatchSize <= 0 {
		return fmt.Errorf("processor.batch_size must be greater than 0")
	}
	if cfg.Processor.BatchTimeout <= 0 {
		return fmt.Errorf("processor.batch_timeout must be greater than 0")
	}

	if cfg.Writer.FlushInterval <= 0 {
		return fmt.Errorf("writer.flush_interval must be greater than 0")
	}

	if cfg.Venue.BaseURL == "" {
		return fmt.Errorf("venue.base_url is required")
	}
	if cfg.Reader.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must not be negative")
	}
	if (cfg.Venue.APIKey == "") != (cfg.Venue.APISecret == "") {
		return fmt.Errorf("venue.api_key and venue.api_secret must be set together")
	}
	if err := cfg.Venue.Profile.Validate(); err != nil {
		return fmt.Errorf("venue: %w", err)
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
