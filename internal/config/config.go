package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`

	// InitialFEN overrides the standard starting position.
	InitialFEN string `yaml:"initial_fen" env:"INITIAL_FEN"`

	EventQueueSize  int           `yaml:"event_queue_size" env:"EVENT_QUEUE_SIZE"`
	PeerSendBuffer  int           `yaml:"peer_send_buffer" env:"PEER_SEND_BUFFER"`
	PingInterval    time.Duration `yaml:"ws_ping_interval" env:"WS_PING_INTERVAL"`
	ReadLimit       int64         `yaml:"ws_read_limit" env:"WS_READ_LIMIT"`
	NotifyOutOfTurn bool          `yaml:"notify_out_of_turn" env:"NOTIFY_OUT_OF_TURN"`

	RedisURL         string        `yaml:"redis_url" env:"REDIS_URL"`
	DatabaseURL      string        `yaml:"database_url" env:"DATABASE_URL"`
	ResultWebhookURL string        `yaml:"result_webhook_url" env:"RESULT_WEBHOOK_URL"`
	ListenerQueue    int           `yaml:"listener_queue" env:"LISTENER_QUEUE"`
	ListenerTimeout  time.Duration `yaml:"listener_timeout" env:"LISTENER_TIMEOUT"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	Log LogConfig `yaml:"log" envPrefix:"LOG_"`
}

type LogConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Format    string `yaml:"format" env:"FORMAT"`
	ToConsole bool   `yaml:"to_console" env:"TO_CONSOLE"`
	ToFile    bool   `yaml:"to_file" env:"TO_FILE"`
	File      string `yaml:"file" env:"FILE"`
	Caller    bool   `yaml:"caller" env:"CALLER"`
}

func Default() *AppConfig {
	return &AppConfig{
		Port:            3000,
		EventQueueSize:  256,
		PeerSendBuffer:  64,
		PingInterval:    30 * time.Second,
		ReadLimit:       4096,
		ListenerQueue:   256,
		ListenerTimeout: 10 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:     "info",
			Format:    "legacy",
			ToConsole: true,
			File:      "logs/relay.log",
		},
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE, then
// the process environment. Later sources win.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse(strings.TrimSpace(os.Getenv("CONFIG_FILE")), nil)
}

// Parse layers defaults, the YAML file at path (optional) and environ. A nil
// environ means the process environment.
func Parse(path string, environ map[string]string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) normalize() {
	var origins []string
	for _, o := range c.AllowedOrigins {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	c.AllowedOrigins = origins
	c.InitialFEN = strings.TrimSpace(c.InitialFEN)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.ResultWebhookURL = strings.TrimSpace(c.ResultWebhookURL)
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Log.File = strings.TrimSpace(c.Log.File)
}

func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.EventQueueSize <= 0 {
		return errors.New("EVENT_QUEUE_SIZE must be positive")
	}
	if c.PeerSendBuffer <= 0 {
		return errors.New("PEER_SEND_BUFFER must be positive")
	}
	// 0 은 핑 끔
	if c.PingInterval < 0 {
		return errors.New("WS_PING_INTERVAL must not be negative")
	}
	// 선택 항목: 값이 있을 때만 형식 검사
	if c.RedisURL != "" {
		u, err := url.Parse(c.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("REDIS_URL must be a redis:// or rediss:// url")
		}
	}
	if c.ResultWebhookURL != "" {
		u, err := url.Parse(c.ResultWebhookURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("RESULT_WEBHOOK_URL must be an http(s) url")
		}
	}
	switch c.Log.Format {
	case "legacy", "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be legacy, json or console, got %q", c.Log.Format)
	}
	return nil
}

func (c *AppConfig) Addr() string { return fmt.Sprintf(":%d", c.Port) }
