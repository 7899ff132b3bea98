package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Transport modes for the MCP server.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// ErrHelp is returned by Load when --help was requested.
var ErrHelp = pflag.ErrHelp

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Transport TransportConfig `yaml:"transport"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Issues    IssuesConfig    `yaml:"issues"`
}

// ServerConfig is the MCP HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WebSocketConfig is the extension hub listener.
type WebSocketConfig struct {
	Host              string        `yaml:"host"`
	Port              int           `yaml:"port"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	VerifyTimeout     time.Duration `yaml:"verify_timeout"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// IssuesConfig locates the .skippr tree.
type IssuesConfig struct {
	RootDir string `yaml:"root_dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	root, err := os.UserHomeDir()
	if err != nil {
		root = "."
	}
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 4000,
		},
		WebSocket: WebSocketConfig{
			Host:              "",
			Port:              4040,
			HeartbeatInterval: 30 * time.Second,
			VerifyTimeout:     5 * time.Minute,
		},
		Transport: TransportConfig{
			Mode: TransportHTTP,
		},
		DB: DBConfig{
			Path: "skippr.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Issues: IssuesConfig{
			RootDir: root,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, environment
// variables and command-line flags, in increasing precedence.
func Load(args []string) (Config, error) {
	return load(args, os.Getenv)
}

func load(args []string, getenv func(string) string) (Config, error) {
	cfg := Default()

	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	if help, _ := flags.GetBool("help"); help {
		return Config{}, ErrHelp
	}

	path := getenv("SKIPPR_CONFIG_PATH")
	if flags.Changed("config") {
		path, _ = flags.GetString("config")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := applyFlags(&cfg, flags); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("skippr-mcp", pflag.ContinueOnError)
	flags.String("config", "", "path to a YAML config file")
	flags.String("transport", "", "MCP transport: http or stdio")
	flags.String("host", "", "MCP HTTP listen host")
	flags.Int("port", 0, "MCP HTTP listen port")
	flags.String("ws-host", "", "extension WebSocket listen host")
	flags.Int("ws-port", 0, "extension WebSocket listen port")
	flags.Duration("heartbeat", 0, "extension heartbeat interval")
	flags.Duration("verify-timeout", 0, "default issue verification timeout")
	flags.String("db", "", "SQLite database path")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-path", "", "write logs to this file")
	flags.String("root-dir", "", "directory that holds the .skippr tree")
	flags.BoolP("help", "h", false, "show help")
	return flags
}

// Usage returns the flag help text.
func Usage() string {
	return newFlagSet().FlagUsages()
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if host := getenv("SKIPPR_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	for _, name := range []string{"PORT", "SKIPPR_SERVER_PORT"} {
		if err := envInt(getenv, name, &cfg.Server.Port); err != nil {
			return err
		}
	}
	if host := getenv("SKIPPR_WS_HOST"); host != "" {
		cfg.WebSocket.Host = host
	}
	for _, name := range []string{"WS_PORT", "SKIPPR_WS_PORT"} {
		if err := envInt(getenv, name, &cfg.WebSocket.Port); err != nil {
			return err
		}
	}
	if err := envDuration(getenv, "SKIPPR_HEARTBEAT_INTERVAL", &cfg.WebSocket.HeartbeatInterval); err != nil {
		return err
	}
	if err := envDuration(getenv, "SKIPPR_VERIFY_TIMEOUT", &cfg.WebSocket.VerifyTimeout); err != nil {
		return err
	}
	if mode := getenv("SKIPPR_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if dbPath := getenv("SKIPPR_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := getenv("SKIPPR_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := getenv("SKIPPR_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if root := getenv("SKIPPR_ROOT_DIR"); root != "" {
		cfg.Issues.RootDir = root
	}
	return nil
}

func applyFlags(cfg *Config, flags *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if flags.Changed(name) {
			v, err := flags.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if flags.Changed(name) {
			v, err := flags.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if flags.Changed(name) {
			v, err := flags.GetDuration(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	str("transport", &cfg.Transport.Mode)
	str("host", &cfg.Server.Host)
	num("port", &cfg.Server.Port)
	str("ws-host", &cfg.WebSocket.Host)
	num("ws-port", &cfg.WebSocket.Port)
	dur("heartbeat", &cfg.WebSocket.HeartbeatInterval)
	dur("verify-timeout", &cfg.WebSocket.VerifyTimeout)
	str("db", &cfg.DB.Path)
	str("log-level", &cfg.Log.Level)
	str("log-path", &cfg.Log.Path)
	str("root-dir", &cfg.Issues.RootDir)
	return errors.Join(errs...)
}

// Validate checks that the configuration can be used to start the server.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case TransportHTTP, TransportStdio:
	default:
		return fmt.Errorf("invalid transport mode %q: want %s or %s", c.Transport.Mode, TransportHTTP, TransportStdio)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.WebSocket.Port < 0 || c.WebSocket.Port > 65535 {
		return fmt.Errorf("invalid websocket port %d", c.WebSocket.Port)
	}
	if c.WebSocket.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %s", c.WebSocket.HeartbeatInterval)
	}
	if c.WebSocket.VerifyTimeout <= 0 {
		return fmt.Errorf("verify timeout must be positive, got %s", c.WebSocket.VerifyTimeout)
	}
	if c.Issues.RootDir == "" {
		return errors.New("issues root dir is required")
	}
	return nil
}

func envInt(getenv func(string) string, name string, dst *int) error {
	raw := getenv(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = v
	return nil
}

func envDuration(getenv func(string) string, name string, dst *time.Duration) error {
	raw := getenv(name)
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = v
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
