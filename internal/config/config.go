package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	AppEnv   string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	DBURL    string `mapstructure:"DATABASE_URL"`
	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	// Realtime
	MaxMessageLength int           `mapstructure:"MAX_MESSAGE_LENGTH"`
	EventTimeout     time.Duration `mapstructure:"EVENT_TIMEOUT"`
	TrustUserID      bool          `mapstructure:"WS_TRUST_USER_ID"`
	AllowedOrigins   string        `mapstructure:"ALLOWED_ORIGINS"`

	// Backplane: none, redis or nats
	Backplane    string `mapstructure:"BACKPLANE"`
	RedisChannel string `mapstructure:"REDIS_CHANNEL"`
	NATSURL      string `mapstructure:"NATS_URL"`
	NATSSubject  string `mapstructure:"NATS_SUBJECT"`

	AuthRatePerMinute int `mapstructure:"AUTH_RATE_PER_MINUTE"`
}

var defaults = map[string]interface{}{
	"PORT":                 "8080",
	"APP_ENV":              "development",
	"LOG_LEVEL":            "",
	"DATABASE_URL":         "",
	"REDIS_URL":            "redis://localhost:6379/0",
	"JWT_SECRET":           "",
	"JWT_TTL":              24 * time.Hour,
	"MAX_MESSAGE_LENGTH":   1000,
	"EVENT_TIMEOUT":        10 * time.Second,
	"WS_TRUST_USER_ID":     false,
	"ALLOWED_ORIGINS":      "http://localhost:3000",
	"BACKPLANE":            "none",
	"REDIS_CHANNEL":        "direct-chat:events",
	"NATS_URL":             "nats://localhost:4222",
	"NATS_SUBJECT":         "direct-chat.events",
	"AUTH_RATE_PER_MINUTE": 20,
}

// Load reads .env.local / .env if present and then the process environment.
// Environment variables always win over the files.
func Load() (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		_ = godotenv.Load()
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
