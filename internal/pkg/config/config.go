package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=12h"`

	// SchoolID is stamped on every new pass when set.
	SchoolID string `env:"SCHOOL_ID"`
	// SessionFixtureUID pins every pass request to one user and bypasses
	// token checks on the pass routes. Preview builds only.
	SessionFixtureUID string `env:"SESSION_FIXTURE_UID"`

	Mongo  MongoConfig
	Redis  RedisConfig
	Notify NotifyConfig
	Rooms  RoomCacheConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=hallpass"`
}

type RedisConfig struct {
	Addr          string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password      string        `env:"REDIS_PASSWORD"`
	DB            int           `env:"REDIS_DB,        default=0"`
	SubmitLockTTL time.Duration `env:"SUBMIT_LOCK_TTL, default=15s"`
}

type NotifyConfig struct {
	// AMQPURL selects the broker. Notifications are only logged when empty.
	AMQPURL string `env:"AMQP_URL"`
	Queue   string `env:"AMQP_QUEUE,     default=hallpass.passes"`
	Workers int    `env:"NOTIFY_WORKERS, default=4"`
}

type RoomCacheConfig struct {
	Size int           `env:"ROOM_CACHE_SIZE, default=16"`
	TTL  time.Duration `env:"ROOM_CACHE_TTL,  default=5m"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// Load reads an optional .env file and then the environment using
// go-envconfig. It panics when the configuration is invalid.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration from the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}
	if cfg.Notify.Workers <= 0 {
		return nil, fmt.Errorf("NOTIFY_WORKERS must be positive, got %d", cfg.Notify.Workers)
	}
	return &cfg, nil
}
