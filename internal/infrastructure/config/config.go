package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	CRM       CRMConfig
	Export    ExportConfig
	Artifact  ArtifactConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
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
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// CRMConfig holds the Vigo CRM connection settings
type CRMConfig struct {
	BaseURL         string
	Token           string
	Login           string
	Password        string
	Timeout         time.Duration // per call
	MaxConnsPerHost int
}

// ExportConfig holds map export settings
type ExportConfig struct {
	BatchWorkers      int
	FallbackLongitude float64
	FallbackLatitude  float64
	SearchField       string // server-side search of batch exports
	SearchValue       string
	BatchRateLimit    int // batch exports per client per window, 0 = unlimited
	BatchRateWindow   time.Duration
}

// ArtifactConfig holds local document storage settings
type ArtifactConfig struct {
	BasePath        string
	BaseURL         string
	RetentionDays   int // 0 = keep forever
	CleanupInterval time.Duration
}

// StorageConfig holds S3-compatible object storage settings for the
// artifact mirror
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
	Prefix       string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string // e.g. cpu, alloc_space, goroutines
	SpanProfiles      bool     // link CPU samples to trace spans
}

// legacyEnv binds the environment names used by earlier deployments
var legacyEnv = map[string][]string{
	"crm.base_url": {"VIGO_BASE_URL"},
	"crm.login":    {"VIGO_LOGIN"},
	"crm.password": {"VIGO_SENHA"},
	"crm.token":    {"TOKEN"},
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with OSMAP_ prefix (e.g., OSMAP_CRM_TOKEN)
// 2. Legacy environment variables (VIGO_BASE_URL, VIGO_LOGIN, VIGO_SENHA, TOKEN)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("OSMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range legacyEnv {
		envName := "OSMAP_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envName}, names...)...); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
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
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		CRM: CRMConfig{
			BaseURL:         v.GetString("crm.base_url"),
			Token:           v.GetString("crm.token"),
			Login:           v.GetString("crm.login"),
			Password:        v.GetString("crm.password"),
			Timeout:         v.GetDuration("crm.timeout"),
			MaxConnsPerHost: v.GetInt("crm.max_conns_per_host"),
		},
		Export: ExportConfig{
			BatchWorkers:      v.GetInt("export.batch_workers"),
			FallbackLongitude: v.GetFloat64("export.fallback_longitude"),
			FallbackLatitude:  v.GetFloat64("export.fallback_latitude"),
			SearchField:       v.GetString("export.search_field"),
			SearchValue:       v.GetString("export.search_value"),
			BatchRateLimit:    v.GetInt("export.batch_rate_limit"),
			BatchRateWindow:   v.GetDuration("export.batch_rate_window"),
		},
		Artifact: ArtifactConfig{
			BasePath:        v.GetString("artifact.base_path"),
			BaseURL:         v.GetString("artifact.base_url"),
			RetentionDays:   v.GetInt("artifact.retention_days"),
			CleanupInterval: v.GetDuration("artifact.cleanup_interval"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
			Prefix:       v.GetString("storage.prefix"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			ApplicationName:   v.GetString("profiling.application_name"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default fallback point for clients without usable coordinates
const (
	DefaultFallbackLongitude = -47.962979
	DefaultFallbackLatitude  = -18.153650
)

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "osmap-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
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
		cfg.HTTP.WriteTimeout = 120 * time.Second // batch exports fan out to the CRM
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	cfg.CRM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.CRM.BaseURL), "/")
	if cfg.CRM.Timeout == 0 {
		cfg.CRM.Timeout = 15 * time.Second
	}
	if cfg.CRM.MaxConnsPerHost == 0 {
		cfg.CRM.MaxConnsPerHost = 16
	}
	if cfg.Export.BatchWorkers == 0 {
		cfg.Export.BatchWorkers = 8
	}
	if cfg.Export.FallbackLongitude == 0 && cfg.Export.FallbackLatitude == 0 {
		cfg.Export.FallbackLongitude = DefaultFallbackLongitude
		cfg.Export.FallbackLatitude = DefaultFallbackLatitude
	}
	if cfg.Export.SearchField == "" {
		cfg.Export.SearchField = "data_fechamento"
		if cfg.Export.SearchValue == "" {
			cfg.Export.SearchValue = "null"
		}
	}
	if cfg.Export.BatchRateWindow == 0 {
		cfg.Export.BatchRateWindow = time.Minute
	}
	if cfg.Artifact.BasePath == "" {
		cfg.Artifact.BasePath = "./data/maps"
	}
	if cfg.Artifact.BaseURL == "" {
		cfg.Artifact.BaseURL = "/artifacts"
	}
	if cfg.Artifact.CleanupInterval == 0 {
		cfg.Artifact.CleanupInterval = 6 * time.Hour
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "maps"
	}

	// Telemetry defaults
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317" // Default gRPC endpoint
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "osmap-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = cfg.Telemetry.ServiceName
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.CRM.BaseURL != "" {
		u, err := url.Parse(c.CRM.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("crm.base_url must be an absolute URL, got %q", c.CRM.BaseURL)
		}
	}
	if c.CRM.Timeout < 0 {
		return fmt.Errorf("crm.timeout cannot be negative")
	}
	if c.CRM.MaxConnsPerHost < 0 {
		return fmt.Errorf("crm.max_conns_per_host cannot be negative")
	}
	if c.Export.BatchWorkers < 0 {
		return fmt.Errorf("export.batch_workers cannot be negative")
	}
	if c.Export.FallbackLongitude < -180 || c.Export.FallbackLongitude > 180 {
		return fmt.Errorf("export.fallback_longitude must be between -180 and 180, got %f", c.Export.FallbackLongitude)
	}
	if c.Export.FallbackLatitude < -90 || c.Export.FallbackLatitude > 90 {
		return fmt.Errorf("export.fallback_latitude must be between -90 and 90, got %f", c.Export.FallbackLatitude)
	}
	if c.Export.BatchRateLimit < 0 {
		return fmt.Errorf("export.batch_rate_limit cannot be negative")
	}
	if c.Artifact.RetentionDays < 0 {
		return fmt.Errorf("artifact.retention_days cannot be negative")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required when storage is enabled")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.CRM.BaseURL == "" {
			return fmt.Errorf("crm.base_url is required in production")
		}
		if c.CRM.Token == "" && (c.CRM.Login == "" || c.CRM.Password == "") {
			return fmt.Errorf("crm.token or crm.login/crm.password is required in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling is enabled")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// RetentionAge returns the artifact retention as a duration, 0 when unlimited
func (a ArtifactConfig) RetentionAge() time.Duration {
	return time.Duration(a.RetentionDays) * 24 * time.Hour
}
