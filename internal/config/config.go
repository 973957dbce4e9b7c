// internal/config/config.go
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ServerConfig configures cmd/server.
type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`

	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	MatchEventQueue string `env:"MATCH_EVENT_QUEUE" envDefault:"caro_match_events"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// TokenExpire of 0 issues tokens without an exp claim. Accepts "never".
	TokenExpire TokenTTL `env:"TOKEN_EXPIRE_TIME" envDefault:"72h"`

	DefaultTurnTimeLimit int           `env:"DEFAULT_TURN_TIME_LIMIT" envDefault:"120"`
	MigrateOnStart       bool          `env:"MIGRATE_ON_START" envDefault:"true"`
	LeaderboardCacheTTL  time.Duration `env:"LEADERBOARD_CACHE_TTL" envDefault:"30s"`
}

// HistorianConfig configures cmd/historian.
type HistorianConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`

	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	MatchEventQueue string `env:"MATCH_EVENT_QUEUE" envDefault:"caro_match_events"`

	BatchSize     int           `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	FlushInterval time.Duration `env:"HISTORIAN_FLUSH_INTERVAL" envDefault:"500ms"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`
}

// TokenTTL is a duration that also understands "never".
type TokenTTL time.Duration

func (t *TokenTTL) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || s == "0" || strings.EqualFold(s, "never") {
		*t = 0
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*t = TokenTTL(d)
	return nil
}

func (t TokenTTL) Duration() time.Duration { return time.Duration(t) }

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}

func LoadHistorian() (HistorianConfig, error) {
	var cfg HistorianConfig
	err := env.Parse(&cfg)
	return cfg, err
}
