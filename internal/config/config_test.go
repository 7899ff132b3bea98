package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(nil, envMap(nil))
	require.NoError(t, err)
	require.Equal(t, 4000, cfg.Server.Port)
	require.Equal(t, 4040, cfg.WebSocket.Port)
	require.Equal(t, 30*time.Second, cfg.WebSocket.HeartbeatInterval)
	require.Equal(t, 5*time.Minute, cfg.WebSocket.VerifyTimeout)
	require.Equal(t, TransportHTTP, cfg.Transport.Mode)
	require.Equal(t, "skippr.db", cfg.DB.Path)
	require.NotEmpty(t, cfg.Issues.RootDir)
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 5000
websocket:
  port: 5050
  heartbeat_interval: 10s
log:
  level: debug
`), 0o644))

	cfg, err := load([]string{"--ws-port", "6060"}, envMap(map[string]string{
		"SKIPPR_CONFIG_PATH": path,
		"PORT":               "5001",
		"WS_PORT":            "5051",
		"SKIPPR_ROOT_DIR":    "/tmp/skippr",
	}))
	require.NoError(t, err)
	require.Equal(t, 5001, cfg.Server.Port)
	require.Equal(t, 6060, cfg.WebSocket.Port)
	require.Equal(t, 10*time.Second, cfg.WebSocket.HeartbeatInterval)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "/tmp/skippr", cfg.Issues.RootDir)
}

func TestLoad_PrefixedEnvWinsOverPlain(t *testing.T) {
	cfg, err := load(nil, envMap(map[string]string{
		"WS_PORT":        "5051",
		"SKIPPR_WS_PORT": "5052",
	}))
	require.NoError(t, err)
	require.Equal(t, 5052, cfg.WebSocket.Port)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load([]string{
		"--transport=stdio",
		"--verify-timeout=90s",
		"--db", ":memory:",
		"--root-dir", "/data",
	}, envMap(nil))
	require.NoError(t, err)
	require.Equal(t, TransportStdio, cfg.Transport.Mode)
	require.Equal(t, 90*time.Second, cfg.WebSocket.VerifyTimeout)
	require.Equal(t, ":memory:", cfg.DB.Path)
	require.Equal(t, "/data", cfg.Issues.RootDir)
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(nil, envMap(map[string]string{"WS_PORT": "abc"}))
	require.ErrorContains(t, err, "invalid WS_PORT")

	_, err = load([]string{"--transport", "grpc"}, envMap(nil))
	require.ErrorContains(t, err, "invalid transport mode")

	_, err = load(nil, envMap(map[string]string{"SKIPPR_HEARTBEAT_INTERVAL": "0s"}))
	require.ErrorContains(t, err, "heartbeat interval")

	_, err = load(nil, envMap(map[string]string{"SKIPPR_CONFIG_PATH": "/does/not/exist.yaml"}))
	require.ErrorContains(t, err, "read config file")

	_, err = load([]string{"--help"}, envMap(nil))
	require.ErrorIs(t, err, ErrHelp)
}
