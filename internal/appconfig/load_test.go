package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkt.systems/tabherd/schema"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tracker.Capacity != schema.DefaultMRUCapacity {
		t.Fatalf("expected default capacity, got %d", cfg.Tracker.Capacity)
	}
	if cfg.Commands.RatePerSecond != schema.DefaultCommandRate || cfg.Commands.Burst != schema.DefaultCommandBurst {
		t.Fatalf("unexpected command limits %+v", cfg.Commands)
	}
	if cfg.Bridge.CallTimeout().Seconds() != 5 {
		t.Fatalf("expected 5s call timeout, got %s", cfg.Bridge.CallTimeout())
	}
}

func TestLoadOverridesSections(t *testing.T) {
	path := writeConfig(t, `
config_version: 1
settings_file: /tmp/tabherd/settings.json
tracker:
  capacity: 25
commands:
  rate_per_second: 2.5
  burst: 3
websocket:
  addr: 127.0.0.1:9999
  allowed_origins:
    - chrome-extension://abcdef
manifest:
  extension_ids: [abcdef]
  browsers: [chromium]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	svc := cfg.ServiceConfig()
	if svc.MRUCapacity != 25 || svc.CommandRate != 2.5 || svc.CommandBurst != 3 {
		t.Fatalf("unexpected service config %+v", svc)
	}
	if cfg.WebSocket.Addr != "127.0.0.1:9999" || len(cfg.WebSocket.AllowedOrigins) != 1 {
		t.Fatalf("unexpected websocket config %+v", cfg.WebSocket)
	}
	if cfg.SettingsFile != "/tmp/tabherd/settings.json" {
		t.Fatalf("unexpected settings file %q", cfg.SettingsFile)
	}
	if cfg.Logging.MaxBackups != 3 {
		t.Fatalf("expected logging defaults to survive, got %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 2
tracker:
  capacity: 10
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
tracker:
  capacity: 10
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "capacity", body: "tracker:\n  capacity: 0", want: "tracker.capacity"},
		{name: "rate", body: "commands:\n  rate_per_second: -1", want: "commands.rate_per_second"},
		{name: "timeout", body: "bridge:\n  call_timeout_ms: 0", want: "bridge.call_timeout_ms"},
		{name: "message size", body: "bridge:\n  max_message_bytes: 0", want: "bridge.max_message_bytes"},
		{name: "origin", body: "websocket:\n  allowed_origins: [example.com]", want: "websocket.allowed_origins"},
		{name: "browser", body: "manifest:\n  browsers: [netscape]", want: "manifest.browsers"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "config_version: 1\n"+tc.body)
			if _, err := Load(path); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %s error, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadExpandsPaths(t *testing.T) {
	t.Setenv("TABHERD_TEST_HOME", "/srv/herd")
	path := writeConfig(t, `
config_version: 1
settings_file: $TABHERD_TEST_HOME/settings.json
logging:
  file: $TABHERD_TEST_HOME/host.log
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SettingsFile != "/srv/herd/settings.json" || cfg.Logging.File != "/srv/herd/host.log" {
		t.Fatalf("expected expanded paths, got %q %q", cfg.SettingsFile, cfg.Logging.File)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("expected written default to load: %v", err)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
