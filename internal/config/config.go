package config

import (
	"sync"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	JWT    JWTConfig
	Log    LogConfig
}

var (
	ConfigInstance *Config
	once           sync.Once
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type RedisConfig struct {
	URL          string
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
}

type LogConfig struct {
	Level string
}

func LoadConfig() (*Config, error) {
	once.Do(func() {
		viper.SetDefault("RELAY_PORT", "3005")
		viper.SetDefault("RELAY_READ_TIMEOUT", 30*time.Second)
		viper.SetDefault("RELAY_WRITE_TIMEOUT", 30*time.Second)
		viper.SetDefault("RELAY_IDLE_TIMEOUT", 60*time.Second)
		viper.SetDefault("RELAY_JWT_SECRET", "secret")
		viper.SetDefault("RELAY_JWT_EXPIRE", "24h")
		viper.SetDefault("RELAY_LOG_LEVEL", "info")
		viper.SetDefault("REDIS_URL", "redis://127.0.0.1:6379/0")
		viper.SetDefault("REDIS_MAX_RETRIES", 3)
		viper.SetDefault("REDIS_POOL_SIZE", 100)
		viper.SetDefault("REDIS_MIN_IDLE_CONNS", 10)
		viper.SetDefault("REDIS_DIAL_TIMEOUT", 5*time.Second)
		viper.SetDefault("REDIS_READ_TIMEOUT", 3*time.Second)
		viper.SetDefault("REDIS_WRITE_TIMEOUT", 3*time.Second)
		viper.AutomaticEnv()

		ConfigInstance = &Config{
			Server: ServerConfig{
				Host:           viper.GetString("RELAY_HOST"),
				Port:           viper.GetString("RELAY_PORT"),
				ReadTimeout:    viper.GetDuration("RELAY_READ_TIMEOUT"),
				WriteTimeout:   viper.GetDuration("RELAY_WRITE_TIMEOUT"),
				IdleTimeout:    viper.GetDuration("RELAY_IDLE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("ALLOWED_ORIGINS"),
			},
			Redis: RedisConfig{
				URL:          viper.GetString("REDIS_URL"),
				MaxRetries:   viper.GetInt("REDIS_MAX_RETRIES"),
				DialTimeout:  viper.GetDuration("REDIS_DIAL_TIMEOUT"),
				ReadTimeout:  viper.GetDuration("REDIS_READ_TIMEOUT"),
				WriteTimeout: viper.GetDuration("REDIS_WRITE_TIMEOUT"),
				PoolSize:     viper.GetInt("REDIS_POOL_SIZE"),
				MinIdleConns: viper.GetInt("REDIS_MIN_IDLE_CONNS"),
			},
			JWT: JWTConfig{
				Secret:         viper.GetString("RELAY_JWT_SECRET"),
				ExpirationTime: viper.GetDuration("RELAY_JWT_EXPIRE"),
			},
			Log: LogConfig{
				Level: viper.GetString("RELAY_LOG_LEVEL"),
			},
		}
	})

	return ConfigInstance, nil
}
