package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Spreadsheet sources
const (
	SourceGoogle = "google"
	SourceXLSX   = "xlsx"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Sheets    SheetsConfig    `mapstructure:"sheets" json:"sheets"`
	Refresh   RefreshConfig   `mapstructure:"refresh" json:"refresh"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
	Database  DatabaseConfig  `mapstructure:"database" json:"database"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port" json:"port" jsonschema:"default=8000"`
	Host           string        `mapstructure:"host" json:"host" jsonschema:"default=0.0.0.0"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	InternalAPIKey string        `mapstructure:"internal_api_key" json:"internal_api_key,omitempty" jsonschema:"description=Key required in X-Internal-API-Key for mutating routes"`
}

// SheetsConfig holds spreadsheet source configuration
type SheetsConfig struct {
	Source            string `mapstructure:"source" json:"source" jsonschema:"enum=google,enum=xlsx,default=google"`
	RegistryID        string `mapstructure:"registry_id" json:"registry_id" jsonschema:"description=Spreadsheet id of the supplier registry"`
	RegistryWorksheet string `mapstructure:"registry_worksheet" json:"registry_worksheet" jsonschema:"default=Sheet1"`
	XLSXDir           string `mapstructure:"xlsx_dir" json:"xlsx_dir,omitempty" jsonschema:"description=Directory of .xlsx workbooks when source is xlsx"`
	CredentialsJSON   string `mapstructure:"credentials_json" json:"credentials_json,omitempty"`
	TokenJSON         string `mapstructure:"token_json" json:"token_json,omitempty"`
}

// RefreshConfig holds refresh scheduling and pacing configuration
type RefreshConfig struct {
	Interval              time.Duration `mapstructure:"interval" json:"interval"`
	BatchSize             int           `mapstructure:"batch_size" json:"batch_size" jsonschema:"minimum=1,default=5"`
	BatchDelay            time.Duration `mapstructure:"batch_delay" json:"batch_delay"`
	CallDelayMin          time.Duration `mapstructure:"call_delay_min" json:"call_delay_min"`
	CallDelayMax          time.Duration `mapstructure:"call_delay_max" json:"call_delay_max"`
	WorksheetDelay        time.Duration `mapstructure:"worksheet_delay" json:"worksheet_delay"`
	MaxConcurrentTriggers int           `mapstructure:"max_concurrent_triggers" json:"max_concurrent_triggers" jsonschema:"minimum=1,default=4"`
	RunOnStart            bool          `mapstructure:"run_on_start" json:"run_on_start" jsonschema:"default=true"`
}

// RateLimitConfig holds upstream quota handling configuration
type RateLimitConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts" json:"max_attempts" jsonschema:"minimum=1,default=5"`
	BackoffUnit       time.Duration `mapstructure:"backoff_unit" json:"backoff_unit"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"`
	Burst             int           `mapstructure:"burst" json:"burst"`
}

// StorageConfig holds output storage configuration
type StorageConfig struct {
	BasePath string `mapstructure:"base_path" json:"base_path" jsonschema:"default=/output"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `mapstructure:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	Format    string `mapstructure:"format" json:"format" jsonschema:"enum=json,enum=console,default=json"`
	NoColor   bool   `mapstructure:"no_color" json:"no_color"`
	Dir       string `mapstructure:"dir" json:"dir" jsonschema:"description=Directory for per-run log files; empty disables them"`
	Retention int    `mapstructure:"retention" json:"retention" jsonschema:"description=Number of run logs to keep; 0 keeps all"`
}

// DatabaseConfig holds the optional run history database configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" json:"url,omitempty"`
	MaxConnections  int           `mapstructure:"max_connections" json:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections" json:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint,omitempty"`
	ServiceName string `mapstructure:"service_name" json:"service_name,omitempty"`
}

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		// .env is optional
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix("FEED_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make the service misbehave
func (c *Config) Validate() error {
	var errs []error

	switch c.Sheets.Source {
	case SourceGoogle, SourceXLSX:
	default:
		errs = append(errs, fmt.Errorf("sheets.source must be %q or %q, got %q", SourceGoogle, SourceXLSX, c.Sheets.Source))
	}
	if c.Sheets.Source == SourceXLSX && c.Sheets.XLSXDir == "" {
		errs = append(errs, errors.New("sheets.xlsx_dir is required when sheets.source is xlsx"))
	}
	if c.Refresh.BatchSize < 1 {
		errs = append(errs, errors.New("refresh.batch_size must be at least 1"))
	}
	if c.Refresh.Interval <= 0 {
		errs = append(errs, errors.New("refresh.interval must be positive"))
	}
	if c.Refresh.CallDelayMax < c.Refresh.CallDelayMin {
		errs = append(errs, errors.New("refresh.call_delay_max must not be less than refresh.call_delay_min"))
	}
	if c.RateLimit.MaxAttempts < 1 {
		errs = append(errs, errors.New("rate_limit.max_attempts must be at least 1"))
	}
	if c.Storage.BasePath == "" {
		errs = append(errs, errors.New("storage.base_path is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// loadEnvFile loads the first .env file found by parsing KEY=VALUE lines
// into the process environment
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := path + "/.env"
		if _, err := os.Stat(envFile); err == nil {
			return loadDotEnvFile(envFile)
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables that are
// not already set
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// token JSON values can be long single lines
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds the unprefixed deployment variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("sheets.credentials_json", "FEED_SERVICE_SHEETS_CREDENTIALS_JSON", "GOOGLE_CREDENTIALS")
	v.BindEnv("sheets.token_json", "FEED_SERVICE_SHEETS_TOKEN_JSON", "TOKEN_JSON")
	v.BindEnv("sheets.registry_id", "FEED_SERVICE_SHEETS_REGISTRY_ID", "MASTER_SHEET_ID")

	v.BindEnv("storage.base_path", "FEED_SERVICE_STORAGE_BASE_PATH", "XML_DIR")

	v.BindEnv("server.port", "FEED_SERVICE_SERVER_PORT", "PORT")
	v.BindEnv("server.host", "FEED_SERVICE_SERVER_HOST", "HOST")
	v.BindEnv("server.internal_api_key", "FEED_SERVICE_SERVER_INTERNAL_API_KEY", "INTERNAL_API_KEY")

	v.BindEnv("logging.level", "FEED_SERVICE_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("logging.dir", "FEED_SERVICE_LOGGING_DIR", "LOG_DIR")

	v.BindEnv("database.url", "FEED_SERVICE_DATABASE_URL", "DATABASE_URL")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.internal_api_key", "")

	v.SetDefault("sheets.source", SourceGoogle)
	v.SetDefault("sheets.registry_id", "")
	v.SetDefault("sheets.registry_worksheet", "Sheet1")
	v.SetDefault("sheets.xlsx_dir", "")
	v.SetDefault("sheets.credentials_json", "")
	v.SetDefault("sheets.token_json", "")

	v.SetDefault("refresh.interval", 1800*time.Second)
	v.SetDefault("refresh.batch_size", 5)
	v.SetDefault("refresh.batch_delay", 10*time.Second)
	v.SetDefault("refresh.call_delay_min", 1*time.Second)
	v.SetDefault("refresh.call_delay_max", 3*time.Second)
	v.SetDefault("refresh.worksheet_delay", 2*time.Second)
	v.SetDefault("refresh.max_concurrent_triggers", 4)
	v.SetDefault("refresh.run_on_start", true)

	v.SetDefault("rate_limit.max_attempts", 5)
	v.SetDefault("rate_limit.backoff_unit", 20*time.Second)
	v.SetDefault("rate_limit.requests_per_second", 1.0)
	v.SetDefault("rate_limit.burst", 1)

	v.SetDefault("storage.base_path", "/output")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.retention", 100)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "feed-service")
}
