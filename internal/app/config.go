package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/pulse-backend/internal/data/db"
	"github.com/yungbote/pulse-backend/internal/platform/envutil"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type Config struct {
	Port    string `yaml:"port" validate:"required"`
	LogMode string `yaml:"log_mode"`

	JWTSecretKey string `yaml:"jwt_secret_key" validate:"required"`
	JWTIssuer    string `yaml:"jwt_issuer"`

	DB db.Config `yaml:"db"`

	Redis RedisConfig `yaml:"redis"`

	Socket SocketConfig `yaml:"socket"`

	MediaBaseURL   string   `yaml:"media_base_url"`
	InternalAPIKey string   `yaml:"internal_api_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MetricsEnabled bool     `yaml:"metrics_enabled"`

	Otel OtelConfig `yaml:"otel"`
}

type RedisConfig struct {
	Addr              string        `yaml:"addr"`
	Password          string        `yaml:"password"`
	DB                int           `yaml:"db" validate:"gte=0"`
	Channel           string        `yaml:"channel" validate:"required"`
	PresenceTTL       time.Duration `yaml:"presence_ttl" validate:"gt=0"`
	PresenceSweepCron string        `yaml:"presence_sweep_cron" validate:"required"`
}

type SocketConfig struct {
	SendBuffer    int           `yaml:"send_buffer" validate:"gt=0"`
	RateRPS       float64       `yaml:"rate_rps" validate:"gt=0"`
	RateBurst     int           `yaml:"rate_burst" validate:"gt=0"`
	PingInterval  time.Duration `yaml:"ping_interval" validate:"gt=0"`
	MaxFrameBytes int64         `yaml:"max_frame_bytes" validate:"gt=0"`
}

type OtelConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Environment string  `yaml:"environment"`
	Endpoint    string  `yaml:"endpoint"`
	Headers     string  `yaml:"headers"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`
}

func defaultConfig() Config {
	return Config{
		Port:    "8080",
		LogMode: "development",
		DB: db.Config{
			Driver:  db.DriverPostgres,
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "pulse",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Channel:           "realtime",
			PresenceTTL:       90 * time.Second,
			PresenceSweepCron: "* * * * *",
		},
		Socket: SocketConfig{
			SendBuffer:    64,
			RateRPS:       10,
			RateBurst:     20,
			PingInterval:  30 * time.Second,
			MaxFrameBytes: 16 << 10,
		},
		Otel: OtelConfig{ServiceName: "pulse", SampleRatio: 0.1},
	}
}

// LoadConfig builds the config from defaults, then the YAML file named by
// CONFIG_FILE, then the environment (a .env file is loaded first when present).
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env", "error", err)
	}

	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}
	applyEnv(&cfg)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.JWTIssuer = envutil.String("JWT_ISSUER", cfg.JWTIssuer)

	cfg.DB.Driver = strings.ToLower(envutil.String("DB_DRIVER", cfg.DB.Driver))
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)
	cfg.DB.MaxConns = envutil.Int("POSTGRES_MAX_CONNS", cfg.DB.MaxConns)
	cfg.DB.SQLitePath = envutil.String("SQLITE_PATH", cfg.DB.SQLitePath)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)
	cfg.Redis.PresenceTTL = envutil.Duration("REDIS_PRESENCE_TTL", cfg.Redis.PresenceTTL)
	cfg.Redis.PresenceSweepCron = envutil.String("PRESENCE_SWEEP_CRON", cfg.Redis.PresenceSweepCron)

	cfg.Socket.SendBuffer = envutil.Int("WS_SEND_BUFFER", cfg.Socket.SendBuffer)
	cfg.Socket.RateRPS = envutil.Float("WS_RATE_RPS", cfg.Socket.RateRPS)
	cfg.Socket.RateBurst = envutil.Int("WS_RATE_BURST", cfg.Socket.RateBurst)
	cfg.Socket.PingInterval = envutil.Duration("WS_PING_INTERVAL", cfg.Socket.PingInterval)
	cfg.Socket.MaxFrameBytes = int64(envutil.Int("WS_MAX_FRAME_BYTES", int(cfg.Socket.MaxFrameBytes)))

	cfg.MediaBaseURL = envutil.String("MEDIA_BASE_URL", cfg.MediaBaseURL)
	cfg.InternalAPIKey = envutil.String("INTERNAL_API_KEY", cfg.InternalAPIKey)
	cfg.AllowedOrigins = envutil.List("WS_ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.Otel.ServiceName)
	cfg.Otel.Environment = envutil.String("OTEL_ENVIRONMENT", cfg.Otel.Environment)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Headers = envutil.String("OTEL_EXPORTER_OTLP_HEADERS", cfg.Otel.Headers)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", cfg.Otel.SampleRatio)
}

func validateConfig(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
