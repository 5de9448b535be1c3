package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"signup_db"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Session tokens
	JWTSecret string        `envconfig:"JWT_SECRET"`
	JWTExpiry time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`

	// One-time passwords
	OTPTTL   time.Duration `envconfig:"OTP_TTL" default:"5m"`
	Notifier string        `envconfig:"NOTIFIER" default:"log"`

	// Queue (used when Notifier == "queue" and by the worker)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`

	// Server
	Port          string `envconfig:"PORT" default:"8080"`
	CORSOrigins   string `envconfig:"CORS_ORIGINS" default:"*"`
	AppEnv        string `envconfig:"APP_ENV" default:"development"`
	AuthRateLimit int    `envconfig:"AUTH_RATE_LIMIT" default:"0"`

	// Observability
	SentryDSN    string        `envconfig:"SENTRY_DSN"`
	LogRetention time.Duration `envconfig:"LOG_RETENTION" default:"720h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
