package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode string `mapstructure:"mode"`
	Port int    `mapstructure:"port"`

	// WebSocket transport knobs.
	ReadLimit  int64 `mapstructure:"read_limit"`
	SendBuffer int   `mapstructure:"send_buffer"`

	// Per-participant inbound message cap.
	RateLimitMessages int           `mapstructure:"rate_limit_messages"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	RateLimitSweep    time.Duration `mapstructure:"rate_limit_sweep"`

	// Idle connection reaping.
	ReaperInterval time.Duration `mapstructure:"reaper_interval"`
	MaxIdle        time.Duration `mapstructure:"max_idle"`

	// Delay before closing a transport after a voluntary leave, so the
	// departure broadcast can flush first.
	LeaveFlushDelay time.Duration `mapstructure:"leave_flush_delay"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	Secret string `mapstructure:"secret"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 32)
	v.SetDefault("rate_limit_messages", 100)
	v.SetDefault("rate_limit_window", "60s")
	v.SetDefault("rate_limit_sweep", "5m")
	v.SetDefault("reaper_interval", "2m")
	v.SetDefault("max_idle", "5m")
	v.SetDefault("leave_flush_delay", "250ms")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
