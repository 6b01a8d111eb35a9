package config

import (
	"errors"
	"os"
	"strconv"
)

// DefaultSecret 是开发环境的占位密钥，Validate 禁止在非 dev 环境使用。
const DefaultSecret = "dev-secret-change-me"

// Config 进程级只读配置，启动时加载一次，之后不再修改。
// JWTSecret 在进程生命周期内保持不变：换密钥会使所有已签发的 token 失效。
type Config struct {
	Port          string
	DatabaseDSN   string
	RedisURL      string
	ClientURL     string
	JWTSecret     string
	Env           string
	TokenTTLHours int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Load 从环境变量读取配置，缺省值面向本地开发。
func Load() Config {
	ttl, err := strconv.Atoi(getenv("TOKEN_TTL_HOURS", "3"))
	if err != nil || ttl <= 0 {
		ttl = 3
	}
	return Config{
		Port:          getenv("APP_PORT", "8080"),
		DatabaseDSN:   getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=meetmylog port=5432 sslmode=disable TimeZone=UTC"),
		RedisURL:      getenv("REDIS_URL", "redis://localhost:6379/0"),
		ClientURL:     getenv("CLIENT_URL", "http://localhost:3000"),
		JWTSecret:     getenv("JWT_SECRET", DefaultSecret),
		Env:           getenv("APP_ENV", "dev"),
		TokenTTLHours: ttl,
	}
}

// Validate 检查配置是否可用于启动。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required")
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("config: database dsn is required")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwt secret is required")
	}
	if cfg.Env != "dev" && cfg.JWTSecret == DefaultSecret {
		return errors.New("config: default jwt secret is not allowed outside dev")
	}
	if cfg.TokenTTLHours <= 0 {
		return errors.New("config: token ttl must be positive")
	}
	return nil
}
