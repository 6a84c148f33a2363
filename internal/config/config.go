package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultResponderURL 是未配置时使用的远端应答服务地址。
const DefaultResponderURL = "http://localhost:3001/api/chat"

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Responder ResponderConfig
	Log       LogConfig
	UI        UIConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	responder, err := loadResponderConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	ui, err := loadUIConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Responder: responder, Log: logCfg, UI: ui}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr        string
	FrontendURL string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	frontend := getEnvOrDefault("FRONTEND_URL", "*")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, FrontendURL: frontend}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, FrontendURL: frontend}, nil
}

// ResponderConfig 描述远端应答服务。
type ResponderConfig struct {
	Endpoint string
	// Timeout of zero means the outbound call may wait forever.
	Timeout time.Duration
}

// Validate checks that the endpoint is an absolute http(s) URL.
func (c ResponderConfig) Validate() error {
	return ValidateEndpoint(c.Endpoint)
}

// ValidateEndpoint checks that raw is an absolute http(s) URL.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid responder endpoint %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid responder endpoint %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid responder endpoint %q: host is required", raw)
	}
	return nil
}

func loadResponderConfig() (ResponderConfig, error) {
	timeout, err := parseDurationEnv("RESPONDER_TIMEOUT", 0)
	if err != nil {
		return ResponderConfig{}, err
	}
	if timeout < 0 {
		return ResponderConfig{}, fmt.Errorf("invalid RESPONDER_TIMEOUT value %q: must not be negative", os.Getenv("RESPONDER_TIMEOUT"))
	}

	cfg := ResponderConfig{
		Endpoint: getEnvOrDefault("RESPONDER_URL", DefaultResponderURL),
		Timeout:  timeout,
	}
	if err := cfg.Validate(); err != nil {
		return ResponderConfig{}, err
	}
	return cfg, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

func loadLogConfig() (LogConfig, error) {
	format := strings.ToLower(getEnvOrDefault("LOG_FORMAT", "console"))
	if format != "console" && format != "json" {
		return LogConfig{}, fmt.Errorf("invalid LOG_FORMAT value %q: want console or json", format)
	}

	maxSize := 10
	if override, err := parseOptionalIntEnv("LOG_MAX_SIZE_MB"); err != nil {
		return LogConfig{}, err
	} else if override != nil && *override > 0 {
		maxSize = *override
	}

	maxBackups := 3
	if override, err := parseOptionalIntEnv("LOG_MAX_BACKUPS"); err != nil {
		return LogConfig{}, err
	} else if override != nil && *override >= 0 {
		maxBackups = *override
	}

	return LogConfig{
		Level:      strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Format:     format,
		File:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		MaxSizeMB:  maxSize,
		MaxBackups: maxBackups,
	}, nil
}

// UIConfig 描述聊天窗口的展示选项。
type UIConfig struct {
	Markdown  bool
	PersonaID string
}

func loadUIConfig() (UIConfig, error) {
	markdown, err := parseBoolEnv("CHAT_MARKDOWN", false)
	if err != nil {
		return UIConfig{}, err
	}

	return UIConfig{
		Markdown:  markdown,
		PersonaID: getEnvOrDefault("CHAT_PERSONA", "study-buddy"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
