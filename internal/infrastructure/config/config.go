package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported result store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported credential cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	GRPC       GRPCConfig
	Credential CredentialConfig
	Dispatch   DispatchConfig
	Scheduler  SchedulerConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string // HTTP admin/query API port
}

// DatabaseConfig holds result store connection settings
type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	Path            string // sqlite file path
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// GRPCConfig holds the inbound sync server settings
type GRPCConfig struct {
	Address              string // host:port, e.g. "[::]:50051"
	Workers              int    // stream worker goroutines
	MaxConcurrentStreams int
}

// CredentialConfig holds token endpoint settings for outbound calls
type CredentialConfig struct {
	TokenURL     string
	CorpID       string
	AppType      string
	AppID        string
	AppSecret    string
	Token        string        // explicitly provided token, takes precedence over acquisition
	Timeout      time.Duration // per token request
	DefaultTTL   time.Duration // used when the endpoint reports no expiry
	StaticTTL    time.Duration // validity assigned to an explicit token
	SafetyMargin time.Duration // a cached token is treated as expired this long before its expiry
	CacheBackend string        // memory or redis
	CacheKey     string        // redis key for the shared token
}

// DispatchConfig holds outbound sync call settings
type DispatchConfig struct {
	Target            string
	Timeout           time.Duration
	RequireCredential bool // fail instead of calling without a token
}

// SchedulerConfig holds diagnostic task queue configuration
type SchedulerConfig struct {
	Workers          int
	QueueSize        int
	TaskTimeout      time.Duration
	MaxRetainedTasks int
	IntervalEnabled  bool          // periodically enqueue a call-order task
	Interval         time.Duration // period of the interval trigger
	IntervalDryRun   bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Metrics options
	MetricsEnabled        bool
	MetricsExportInterval time.Duration
	// LogsEnabled exports log records to the collector alongside local output
	LogsEnabled bool
	// Database tracing options
	DBTraceEnabled bool // Enable database query tracing (otelgorm)
	DBLogFullSQL   bool // Log full SQL statements (dev only, disable in prod for security)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with ERP_ prefix (e.g., ERP_CREDENTIAL_APP_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return fromViper(v)
}

// LoadFile loads configuration from an explicit file path, still honoring
// ERP_ environment overrides.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	// Enable environment variable override
	v.SetEnvPrefix("ERP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		GRPC: GRPCConfig{
			Address:              v.GetString("grpc.address"),
			Workers:              v.GetInt("grpc.workers"),
			MaxConcurrentStreams: v.GetInt("grpc.max_concurrent_streams"),
		},
		Credential: CredentialConfig{
			TokenURL:     v.GetString("credential.token_url"),
			CorpID:       v.GetString("credential.corp_id"),
			AppType:      v.GetString("credential.app_type"),
			AppID:        v.GetString("credential.app_id"),
			AppSecret:    v.GetString("credential.app_secret"),
			Token:        v.GetString("credential.token"),
			Timeout:      v.GetDuration("credential.timeout"),
			DefaultTTL:   v.GetDuration("credential.default_ttl"),
			StaticTTL:    v.GetDuration("credential.static_ttl"),
			SafetyMargin: v.GetDuration("credential.safety_margin"),
			CacheBackend: v.GetString("credential.cache_backend"),
			CacheKey:     v.GetString("credential.cache_key"),
		},
		Dispatch: DispatchConfig{
			Target:            v.GetString("dispatch.target"),
			Timeout:           v.GetDuration("dispatch.timeout"),
			RequireCredential: v.GetBool("dispatch.require_credential"),
		},
		Scheduler: SchedulerConfig{
			Workers:          v.GetInt("scheduler.workers"),
			QueueSize:        v.GetInt("scheduler.queue_size"),
			TaskTimeout:      v.GetDuration("scheduler.task_timeout"),
			MaxRetainedTasks: v.GetInt("scheduler.max_retained_tasks"),
			IntervalEnabled:  v.GetBool("scheduler.interval_enabled"),
			Interval:         v.GetDuration("scheduler.interval"),
			IntervalDryRun:   v.GetBool("scheduler.interval_dry_run"),
		},
		Telemetry: TelemetryConfig{
			Enabled:               v.GetBool("telemetry.enabled"),
			CollectorEndpoint:     v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:         v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:           v.GetString("telemetry.service_name"),
			Insecure:              v.GetBool("telemetry.insecure"),
			MetricsEnabled:        v.GetBool("telemetry.metrics_enabled"),
			MetricsExportInterval: v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:           v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:        v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:          v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "erp-syncbridge"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "sync_results.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "erp_sync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	// SQLite allows one writer; a single pooled connection also keeps ":memory:" databases shared.
	if cfg.Database.Driver == DriverSQLite {
		cfg.Database.MaxOpenConns = 1
		cfg.Database.MaxIdleConns = 1
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.GRPC.Address == "" {
		cfg.GRPC.Address = "[::]:50051"
	}
	if cfg.GRPC.Workers == 0 {
		cfg.GRPC.Workers = 10
	}
	if cfg.GRPC.MaxConcurrentStreams == 0 {
		cfg.GRPC.MaxConcurrentStreams = 100
	}
	if cfg.Credential.TokenURL == "" {
		cfg.Credential.TokenURL = "https://open.handday.cn/grantauth/gettoken"
	}
	if cfg.Credential.Timeout == 0 {
		cfg.Credential.Timeout = 5 * time.Second
	}
	if cfg.Credential.DefaultTTL == 0 {
		cfg.Credential.DefaultTTL = 300 * time.Second
	}
	if cfg.Credential.StaticTTL == 0 {
		cfg.Credential.StaticTTL = time.Hour
	}
	if cfg.Credential.SafetyMargin == 0 {
		cfg.Credential.SafetyMargin = 5 * time.Second
	}
	if cfg.Credential.CacheBackend == "" {
		cfg.Credential.CacheBackend = CacheBackendMemory
	}
	if cfg.Credential.CacheKey == "" {
		cfg.Credential.CacheKey = "syncbridge:credential:token"
	}
	if cfg.Dispatch.Target == "" {
		cfg.Dispatch.Target = "localhost:50051"
	}
	if cfg.Dispatch.Timeout == 0 {
		cfg.Dispatch.Timeout = 10 * time.Second
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 64
	}
	if cfg.Scheduler.TaskTimeout == 0 {
		cfg.Scheduler.TaskTimeout = time.Minute
	}
	if cfg.Scheduler.MaxRetainedTasks == 0 {
		cfg.Scheduler.MaxRetainedTasks = 500
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = 5 * time.Minute
	}
	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Credential.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("credential.cache_backend must be %q or %q, got %q",
			CacheBackendMemory, CacheBackendRedis, c.Credential.CacheBackend)
	}
	if c.Credential.Timeout < 0 || c.Dispatch.Timeout < 0 {
		return fmt.Errorf("credential.timeout and dispatch.timeout cannot be negative")
	}
	if c.Credential.SafetyMargin < 0 {
		return fmt.Errorf("credential.safety_margin cannot be negative")
	}

	if c.Scheduler.Workers < 0 || c.Scheduler.QueueSize < 0 {
		return fmt.Errorf("scheduler.workers and scheduler.queue_size cannot be negative")
	}
	if c.Scheduler.IntervalEnabled && c.Scheduler.Interval < time.Second {
		return fmt.Errorf("scheduler.interval must be at least 1s when the interval trigger is enabled")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Driver == DriverPostgres {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	// Validate telemetry configuration (all environments)
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the postgres connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisAddr returns the host:port address of the Redis server
func (r *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MaskedSecret returns the app secret with all but the first four characters hidden
func (c *CredentialConfig) MaskedSecret() string {
	return MaskSecret(c.AppSecret)
}

// MaskSecret hides all but the first four characters of a secret value
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 8)
}
