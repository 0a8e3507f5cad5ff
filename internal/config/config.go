package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type (
	Config struct {
		Addr          string `env:"RELAY_ADDR,default=localhost:9090"`
		AllowedOrigin string `env:"ALLOWED_ORIGIN,default=*"`
		LogLevel      string `env:"LOG_LEVEL,default=info"`

		MongoURI      string `env:"MONGODB_URI,default=mongodb://localhost:27017"`
		MongoDatabase string `env:"MONGODB_DATABASE,default=chat"`

		RedisAddr     string        `env:"REDIS_ADDR,default=localhost:6379"`
		RedisPassword string        `env:"REDIS_PASSWORD"`
		RedisDB       int           `env:"REDIS_DB,default=0"`
		HistoryTTL    time.Duration `env:"HISTORY_CACHE_TTL,default=10m"`

		WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT,default=10s"`
		PongWait       time.Duration `env:"WS_PONG_WAIT,default=60s"`
		MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE,default=65536"`
		SendQueueSize  int           `env:"WS_SEND_QUEUE_SIZE,default=64"`
		TypingRate     float64       `env:"TYPING_RATE_PER_SECOND,default=5"`
		TypingBurst    int           `env:"TYPING_BURST,default=10"`
	}

	// SocketConfig is the per-connection slice of Config handed to the websocket server.
	SocketConfig struct {
		WriteTimeout   time.Duration
		PongWait       time.Duration
		MaxMessageSize int64
		SendQueueSize  int
		TypingRate     float64
		TypingBurst    int
		AllowedOrigin  string
	}
)

// Load reads an optional .env file then the process environment.
func Load(files ...string) (*Config, error) {
	// a missing .env is the normal case outside development
	_ = godotenv.Load(files...)

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: RELAY_ADDR cannot be empty")
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("config: WS_SEND_QUEUE_SIZE must be positive, got %d", c.SendQueueSize)
	}
	if c.PongWait <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("config: websocket timeouts must be positive")
	}
	if c.HistoryTTL <= 0 {
		return fmt.Errorf("config: HISTORY_CACHE_TTL must be positive, got %s", c.HistoryTTL)
	}
	if c.TypingRate <= 0 || c.TypingBurst <= 0 {
		return fmt.Errorf("config: typing rate and burst must be positive")
	}
	return nil
}

func (c *Config) Socket() SocketConfig {
	return SocketConfig{
		WriteTimeout:   c.WriteTimeout,
		PongWait:       c.PongWait,
		MaxMessageSize: c.MaxMessageSize,
		SendQueueSize:  c.SendQueueSize,
		TypingRate:     c.TypingRate,
		TypingBurst:    c.TypingBurst,
		AllowedOrigin:  c.AllowedOrigin,
	}
}

// PingPeriod is how often the server pings a socket; it must stay below PongWait.
func (c SocketConfig) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}
