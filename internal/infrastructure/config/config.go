package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Renderer  RendererConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Profiling ProfilingConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Rate limit backends
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBackend  string // memory, redis
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
}

// RendererConfig holds headless engine settings
type RendererConfig struct {
	ChromePath            string // empty = search PATH
	RemoteURL             string // connect to an existing engine instead of launching
	NoSandbox             bool
	Headless              bool
	LaunchTimeout         time.Duration
	ProtocolTimeout       time.Duration
	RenderTimeout         time.Duration
	SettleDelay           time.Duration
	NetworkIdleWindow     time.Duration
	ViewportWidth         int
	ViewportHeight        int
	MaxConcurrentSessions int64 // 0 = unbounded
	ExtraFlags            []string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // development only
	MetricsEnabled    bool
	LogsEnabled       bool
	ExportInterval    time.Duration
}

// ProfilingConfig holds Pyroscope settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
	SpanProfiles      bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PDF_ prefix (e.g., PDF_RENDERER_NO_SANDBOX)
// 2. config.toml
// 3. Built-in defaults
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
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("PDF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

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
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:   v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			RateLimitBackend:  strings.ToLower(v.GetString("http.rate_limit_backend")),
			CORSAllowOrigins:  splitList(v.GetStringSlice("http.cors_allow_origins")),
			CORSAllowMethods:  splitList(v.GetStringSlice("http.cors_allow_methods")),
			CORSAllowHeaders:  splitList(v.GetStringSlice("http.cors_allow_headers")),
			TrustedProxies:    splitList(v.GetStringSlice("http.trusted_proxies")),
		},
		Renderer: RendererConfig{
			ChromePath:            v.GetString("renderer.chrome_path"),
			RemoteURL:             v.GetString("renderer.remote_url"),
			NoSandbox:             v.GetBool("renderer.no_sandbox"),
			Headless:              v.GetBool("renderer.headless"),
			LaunchTimeout:         v.GetDuration("renderer.launch_timeout"),
			ProtocolTimeout:       v.GetDuration("renderer.protocol_timeout"),
			RenderTimeout:         v.GetDuration("renderer.render_timeout"),
			SettleDelay:           v.GetDuration("renderer.settle_delay"),
			NetworkIdleWindow:     v.GetDuration("renderer.network_idle_window"),
			ViewportWidth:         v.GetInt("renderer.viewport_width"),
			ViewportHeight:        v.GetInt("renderer.viewport_height"),
			MaxConcurrentSessions: v.GetInt64("renderer.max_concurrent_sessions"),
			ExtraFlags:            splitList(v.GetStringSlice("renderer.extra_flags")),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      splitList(v.GetStringSlice("profiling.profile_types")),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers built-in defaults. Registering every key also lets
// AutomaticEnv resolve keys that appear in no config file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pdf-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3001")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 30*time.Second)
	// Must outlive the render timeout or slow renders are cut mid-stream.
	v.SetDefault("http.write_timeout", 90*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 30*time.Second)
	v.SetDefault("http.max_header_bytes", 1<<20)
	v.SetDefault("http.max_body_size", 50<<20)
	v.SetDefault("http.rate_limit_enabled", true)
	v.SetDefault("http.rate_limit_requests", 100)
	v.SetDefault("http.rate_limit_window", 15*time.Minute)
	v.SetDefault("http.rate_limit_backend", RateLimitBackendMemory)
	v.SetDefault("http.cors_allow_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("http.cors_allow_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("http.cors_allow_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("http.trusted_proxies", []string{})

	v.SetDefault("renderer.chrome_path", "")
	v.SetDefault("renderer.remote_url", "")
	v.SetDefault("renderer.no_sandbox", true)
	v.SetDefault("renderer.headless", true)
	v.SetDefault("renderer.launch_timeout", 30*time.Second)
	v.SetDefault("renderer.protocol_timeout", 120*time.Second)
	v.SetDefault("renderer.render_timeout", 60*time.Second)
	v.SetDefault("renderer.settle_delay", 500*time.Millisecond)
	v.SetDefault("renderer.network_idle_window", 500*time.Millisecond)
	v.SetDefault("renderer.viewport_width", 1200)
	v.SetDefault("renderer.viewport_height", 10000)
	v.SetDefault("renderer.max_concurrent_sessions", 8)
	v.SetDefault("renderer.extra_flags", []string{})

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.collector_endpoint", "localhost:4317")
	v.SetDefault("telemetry.sampling_ratio", 1.0)
	v.SetDefault("telemetry.service_name", "pdf-service")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.logs_enabled", false)
	v.SetDefault("telemetry.export_interval", 60*time.Second)

	v.SetDefault("profiling.enabled", false)
	v.SetDefault("profiling.server_address", "http://localhost:4040")
	v.SetDefault("profiling.basic_auth_user", "")
	v.SetDefault("profiling.basic_auth_password", "")
	v.SetDefault("profiling.profile_types", []string{})
	v.SetDefault("profiling.span_profiles", false)
}

// splitList accepts both TOML arrays and comma-separated env values
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// IsProduction reports whether App.Env is production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Renderer.RenderTimeout <= 0 {
		return fmt.Errorf("renderer.render_timeout must be positive")
	}
	if c.Renderer.ProtocolTimeout <= 0 {
		return fmt.Errorf("renderer.protocol_timeout must be positive")
	}
	if c.Renderer.ViewportWidth <= 0 || c.Renderer.ViewportHeight <= 0 {
		return fmt.Errorf("renderer viewport must be positive, got %dx%d",
			c.Renderer.ViewportWidth, c.Renderer.ViewportHeight)
	}
	if c.Renderer.MaxConcurrentSessions < 0 {
		return fmt.Errorf("renderer.max_concurrent_sessions cannot be negative")
	}
	if c.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be positive")
	}
	if c.HTTP.RateLimitEnabled {
		if c.HTTP.RateLimitRequests <= 0 || c.HTTP.RateLimitWindow <= 0 {
			return fmt.Errorf("http rate limit requires positive requests and window")
		}
		switch c.HTTP.RateLimitBackend {
		case RateLimitBackendMemory, RateLimitBackendRedis:
		default:
			return fmt.Errorf("http.rate_limit_backend must be %q or %q, got %q",
				RateLimitBackendMemory, RateLimitBackendRedis, c.HTTP.RateLimitBackend)
		}
	}
	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.IsProduction() {
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}
	return nil
}
