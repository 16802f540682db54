package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Engine    EngineConfig    `mapstructure:"engine"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"ssl_mode"`
	// Path is the sqlite file (or "file::memory:?cache=shared")
	Path string
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

// EngineConfig tunes the attempt engine and the progression ledger.
type EngineConfig struct {
	LockBackend          string `mapstructure:"lock_backend"` // memory, redis
	LockTTLSeconds       int    `mapstructure:"lock_ttl_seconds"`
	MaxCASRetries        int    `mapstructure:"max_cas_retries"`
	ActivityLogCap       int    `mapstructure:"activity_log_cap"`
	ReconcileSpec        string `mapstructure:"reconcile_spec"`
	LevelUpChannel       string `mapstructure:"level_up_channel"`
	EnrollmentTTLSeconds int    `mapstructure:"enrollment_ttl_seconds"`
}

func (e EngineConfig) LockTTL() time.Duration {
	return time.Duration(e.LockTTLSeconds) * time.Second
}

func (e EngineConfig) EnrollmentTTL() time.Duration {
	return time.Duration(e.EnrollmentTTLSeconds) * time.Second
}

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("engine.lock_backend", LockBackendMemory)
	v.SetDefault("engine.lock_ttl_seconds", 10)
	v.SetDefault("engine.max_cas_retries", 5)
	v.SetDefault("engine.activity_log_cap", 50)
	v.SetDefault("engine.reconcile_spec", "@every 1m")
	v.SetDefault("engine.level_up_channel", "progression:level_up")
	v.SetDefault("engine.enrollment_ttl_seconds", 60)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// ASSESS_ENGINE_ENGINE_LOCK_BACKEND 覆盖 engine.lock_backend
	v.SetEnvPrefix("ASSESS_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Engine
	v.BindEnv("engine.lock_backend", "ENGINE_LOCK_BACKEND")
	v.BindEnv("engine.max_cas_retries", "ENGINE_MAX_CAS_RETRIES")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	switch c.Engine.LockBackend {
	case LockBackendMemory:
	case LockBackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("engine.lock_backend=redis requires redis.enabled")
		}
		if c.Engine.LockTTLSeconds < 1 {
			return fmt.Errorf("engine.lock_ttl_seconds must be at least 1, got %d", c.Engine.LockTTLSeconds)
		}
	default:
		return fmt.Errorf("unknown engine.lock_backend %q", c.Engine.LockBackend)
	}
	if c.Engine.MaxCASRetries < 1 {
		return fmt.Errorf("engine.max_cas_retries must be at least 1, got %d", c.Engine.MaxCASRetries)
	}
	if c.Engine.ActivityLogCap < 1 {
		return fmt.Errorf("engine.activity_log_cap must be at least 1, got %d", c.Engine.ActivityLogCap)
	}
	if c.RateLimit.MaxRequests < 1 || c.RateLimit.WindowMinutes < 1 {
		return fmt.Errorf("rate_limit requires positive max_requests and window_minutes")
	}
	return nil
}
