package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for siembench
type Config struct {
	Bench   BenchConfig
	Targets TargetsConfig
	Output  OutputConfig
	Log     LogConfig
}

// BenchConfig controls iteration counts and pacing for every series.
type BenchConfig struct {
	WarmupIterations   int // Executed but never recorded
	MeasuredIterations int // Recorded iterations per (backend, query) pair
	QueryTimeoutSec    int // Per-execute timeout in seconds
	PacingMS           int // Optional delay between iterations in milliseconds
	ConcurrentBackends int // Max backends measured in parallel (1 = fully sequential)
	RunTimeoutSec      int // Whole-run deadline; 0 = none
}

type TargetsConfig struct {
	Postgres       SQLTargetConfig
	ClickHouse     SQLTargetConfig
	ClickHouseHTTP HTTPTargetConfig
	StarRocks      SQLTargetConfig
	Trino          TrinoConfig
	Splunk         SplunkConfig
}

// SQLTargetConfig covers the connection-oriented SQL backends.
type SQLTargetConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// HTTPTargetConfig covers the stateless HTTP query interface (ClickHouse HTTP).
type HTTPTargetConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseSSL   bool
}

type TrinoConfig struct {
	Enabled bool
	Host    string
	Port    int
	User    string
	Catalog string
	Schema  string
}

// SplunkConfig covers the search-command-wrapped backend. Queries are
// submitted as dbxquery search jobs against the named DB Connect connection.
type SplunkConfig struct {
	Enabled             bool
	Host                string
	Port                int
	User                string
	Password            string
	Connection          string // DB Connect connection name, e.g. "postgresql_conn"
	PollIntervalMS      int    // Dispatch-state poll interval
	ExcludeDispatchWait bool   // Subtract poll sleep time from recorded latency
	InsecureSkipVerify  bool   // Splunk management port ships a self-signed cert
}

type OutputConfig struct {
	Path string // Report path; ".gz" suffix enables gzip
	S3   S3Config
}

// S3Config enables uploading finalized reports to S3 or MinIO.
type S3Config struct {
	Enabled   bool
	Bucket    string
	Region    string
	Endpoint  string // Custom endpoint for MinIO (e.g., "http://localhost:9000")
	AccessKey string
	SecretKey string
	Prefix    string // Object key prefix, e.g. "reports/"
	UseSSL    bool
	PathStyle bool // Path-style addressing (required for MinIO)
}

type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment and config file
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SIEMBENCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("siembench")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/siembench/")
	v.AddConfigPath("$HOME/.siembench/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	cfg := &Config{
		Bench: BenchConfig{
			WarmupIterations:   v.GetInt("bench.warmup_iterations"),
			MeasuredIterations: v.GetInt("bench.measured_iterations"),
			QueryTimeoutSec:    v.GetInt("bench.query_timeout_sec"),
			PacingMS:           v.GetInt("bench.pacing_ms"),
			ConcurrentBackends: v.GetInt("bench.concurrent_backends"),
			RunTimeoutSec:      v.GetInt("bench.run_timeout_sec"),
		},
		Targets: TargetsConfig{
			Postgres: SQLTargetConfig{
				Enabled:  v.GetBool("postgres.enabled"),
				Host:     v.GetString("postgres.host"),
				Port:     v.GetInt("postgres.port"),
				Database: v.GetString("postgres.database"),
				User:     v.GetString("postgres.user"),
				Password: v.GetString("postgres.password"),
			},
			ClickHouse: SQLTargetConfig{
				Enabled:  v.GetBool("clickhouse.enabled"),
				Host:     v.GetString("clickhouse.host"),
				Port:     v.GetInt("clickhouse.port"),
				Database: v.GetString("clickhouse.database"),
				User:     v.GetString("clickhouse.user"),
				Password: v.GetString("clickhouse.password"),
			},
			ClickHouseHTTP: HTTPTargetConfig{
				Enabled:  v.GetBool("clickhouse_http.enabled"),
				Host:     v.GetString("clickhouse_http.host"),
				Port:     v.GetInt("clickhouse_http.port"),
				Database: v.GetString("clickhouse_http.database"),
				User:     v.GetString("clickhouse_http.user"),
				Password: v.GetString("clickhouse_http.password"),
				UseSSL:   v.GetBool("clickhouse_http.use_ssl"),
			},
			StarRocks: SQLTargetConfig{
				Enabled:  v.GetBool("starrocks.enabled"),
				Host:     v.GetString("starrocks.host"),
				Port:     v.GetInt("starrocks.port"),
				Database: v.GetString("starrocks.database"),
				User:     v.GetString("starrocks.user"),
				Password: v.GetString("starrocks.password"),
			},
			Trino: TrinoConfig{
				Enabled: v.GetBool("trino.enabled"),
				Host:    v.GetString("trino.host"),
				Port:    v.GetInt("trino.port"),
				User:    v.GetString("trino.user"),
				Catalog: v.GetString("trino.catalog"),
				Schema:  v.GetString("trino.schema"),
			},
			Splunk: SplunkConfig{
				Enabled:             v.GetBool("splunk.enabled"),
				Host:                v.GetString("splunk.host"),
				Port:                v.GetInt("splunk.port"),
				User:                v.GetString("splunk.user"),
				Password:            v.GetString("splunk.password"),
				Connection:          v.GetString("splunk.connection"),
				PollIntervalMS:      v.GetInt("splunk.poll_interval_ms"),
				ExcludeDispatchWait: v.GetBool("splunk.exclude_dispatch_wait"),
				InsecureSkipVerify:  v.GetBool("splunk.insecure_skip_verify"),
			},
		},
		Output: OutputConfig{
			Path: v.GetString("output.path"),
			S3: S3Config{
				Enabled:   v.GetBool("output.s3_enabled"),
				Bucket:    v.GetString("output.s3_bucket"),
				Region:    v.GetString("output.s3_region"),
				Endpoint:  v.GetString("output.s3_endpoint"),
				AccessKey: v.GetString("output.s3_access_key"),
				SecretKey: v.GetString("output.s3_secret_key"),
				Prefix:    v.GetString("output.s3_prefix"),
				UseSSL:    v.GetBool("output.s3_use_ssl"),
				PathStyle: v.GetBool("output.s3_path_style"),
			},
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Bench defaults mirror the iteration counts the benchmark suite has
	// always used: a couple of warm-cache primers, five recorded runs.
	v.SetDefault("bench.warmup_iterations", 2)
	v.SetDefault("bench.measured_iterations", 5)
	v.SetDefault("bench.query_timeout_sec", 60)
	v.SetDefault("bench.pacing_ms", 0)
	v.SetDefault("bench.concurrent_backends", 1)
	v.SetDefault("bench.run_timeout_sec", 0)

	v.SetDefault("postgres.enabled", true)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.database", "cybersecurity")
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")

	v.SetDefault("clickhouse.enabled", true)
	v.SetDefault("clickhouse.host", "localhost")
	v.SetDefault("clickhouse.port", 9000)
	v.SetDefault("clickhouse.database", "cybersecurity")
	v.SetDefault("clickhouse.user", "default")
	v.SetDefault("clickhouse.password", "")

	v.SetDefault("clickhouse_http.enabled", false)
	v.SetDefault("clickhouse_http.host", "localhost")
	v.SetDefault("clickhouse_http.port", 8123)
	v.SetDefault("clickhouse_http.database", "cybersecurity")
	v.SetDefault("clickhouse_http.user", "default")
	v.SetDefault("clickhouse_http.password", "")
	v.SetDefault("clickhouse_http.use_ssl", false)

	v.SetDefault("starrocks.enabled", false)
	v.SetDefault("starrocks.host", "localhost")
	v.SetDefault("starrocks.port", 9030)
	v.SetDefault("starrocks.database", "cybersecurity")
	v.SetDefault("starrocks.user", "root")
	v.SetDefault("starrocks.password", "")

	v.SetDefault("trino.enabled", false)
	v.SetDefault("trino.host", "localhost")
	v.SetDefault("trino.port", 8080)
	v.SetDefault("trino.user", "trino")
	v.SetDefault("trino.catalog", "iceberg")
	v.SetDefault("trino.schema", "cybersecurity")

	v.SetDefault("splunk.enabled", false)
	v.SetDefault("splunk.host", "localhost")
	v.SetDefault("splunk.port", 8089)
	v.SetDefault("splunk.user", "admin")
	v.SetDefault("splunk.password", "")
	v.SetDefault("splunk.connection", "postgresql_conn")
	v.SetDefault("splunk.poll_interval_ms", 2000)
	v.SetDefault("splunk.exclude_dispatch_wait", false)
	v.SetDefault("splunk.insecure_skip_verify", true)

	v.SetDefault("output.path", "results/report.json")
	v.SetDefault("output.s3_enabled", false)
	v.SetDefault("output.s3_region", "us-east-1")
	v.SetDefault("output.s3_prefix", "reports/")
	v.SetDefault("output.s3_use_ssl", false)
	v.SetDefault("output.s3_path_style", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks invariants that would make a run meaningless. A failure
// here aborts the run before any backend is contacted.
func (cfg *Config) Validate() error {
	if cfg.Bench.WarmupIterations < 0 {
		return fmt.Errorf("bench.warmup_iterations must be >= 0, got %d", cfg.Bench.WarmupIterations)
	}
	if cfg.Bench.MeasuredIterations < 1 {
		return fmt.Errorf("bench.measured_iterations must be >= 1, got %d", cfg.Bench.MeasuredIterations)
	}
	if cfg.Bench.QueryTimeoutSec < 1 {
		return fmt.Errorf("bench.query_timeout_sec must be >= 1, got %d", cfg.Bench.QueryTimeoutSec)
	}
	if cfg.Bench.PacingMS < 0 {
		return fmt.Errorf("bench.pacing_ms must be >= 0, got %d", cfg.Bench.PacingMS)
	}
	if cfg.Bench.ConcurrentBackends < 1 {
		return fmt.Errorf("bench.concurrent_backends must be >= 1, got %d", cfg.Bench.ConcurrentBackends)
	}
	if cfg.Output.S3.Enabled && cfg.Output.S3.Bucket == "" {
		return fmt.Errorf("output.s3_bucket is required when S3 upload is enabled")
	}
	return nil
}
