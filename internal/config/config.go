package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Identity IdentityConfig `yaml:"identity"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// APIConfig 描述后端 wellness API。
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the per-call timeout.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// IdentityConfig selects where the user id is persisted.
type IdentityConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// EventsConfig 描述事件总线，RedisAddr 为空时使用进程内通道。
type EventsConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	RedisGroup string `yaml:"redis_group"`
}

// LogConfig 日志级别与格式。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const stateDir = ".strombreaker"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		API:      APIConfig{BaseURL: "http://localhost:8000", TimeoutSeconds: 15},
		Identity: IdentityConfig{Backend: "file"},
		Events:   EventsConfig{RedisGroup: "widget"},
		Log:      LogConfig{Level: "info", Format: "auto"},
	}
}

// Load 先读取 WIDGET_CONFIG 指向的 YAML 文件（可选），再用环境变量覆盖。
func Load() (*Config, error) {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("WIDGET_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Addr = getEnvOrDefault("PORT", c.Server.Addr)
	c.API.BaseURL = getEnvOrDefault("WELLNESS_API_URL", c.API.BaseURL)
	c.Identity.Backend = getEnvOrDefault("IDENTITY_STORE", c.Identity.Backend)
	c.Identity.Path = getEnvOrDefault("IDENTITY_PATH", c.Identity.Path)
	c.Events.RedisAddr = getEnvOrDefault("EVENTS_REDIS_ADDR", c.Events.RedisAddr)
	c.Events.RedisGroup = getEnvOrDefault("EVENTS_REDIS_GROUP", c.Events.RedisGroup)
	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvOrDefault("LOG_FORMAT", c.Log.Format)

	timeout, err := parseOptionalIntEnv("WELLNESS_API_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		c.API.TimeoutSeconds = *timeout
	}
	return nil
}

func (c *Config) normalize() error {
	addr, err := normalizeAddr(c.Server.Addr)
	if err != nil {
		return err
	}
	c.Server.Addr = addr

	if c.API.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid api timeout: %d", c.API.TimeoutSeconds)
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")

	c.Identity.Backend = strings.ToLower(strings.TrimSpace(c.Identity.Backend))
	switch c.Identity.Backend {
	case "memory":
	case "file":
		if c.Identity.Path == "" {
			c.Identity.Path = filepath.Join(stateDir, "identity.yaml")
		}
	case "sqlite":
		if c.Identity.Path == "" {
			c.Identity.Path = filepath.Join(stateDir, "identity.db")
		}
	default:
		return fmt.Errorf("invalid IDENTITY_STORE value: %q", c.Identity.Backend)
	}
	return nil
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
