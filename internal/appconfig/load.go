package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"pkt.systems/tabherd/internal/hostmanifest"
	"pkt.systems/tabherd/internal/nativemsg"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("settings_file", cfg.SettingsFile)
	v.SetDefault("tracker.capacity", cfg.Tracker.Capacity)
	v.SetDefault("commands.rate_per_second", cfg.Commands.RatePerSecond)
	v.SetDefault("commands.burst", cfg.Commands.Burst)
	v.SetDefault("bridge.call_timeout_ms", cfg.Bridge.CallTimeoutMS)
	v.SetDefault("bridge.max_message_bytes", cfg.Bridge.MaxMessageBytes)
	v.SetDefault("websocket.addr", cfg.WebSocket.Addr)
	v.SetDefault("websocket.allowed_origins", cfg.WebSocket.AllowedOrigins)
	v.SetDefault("manifest.name", cfg.Manifest.Name)
	v.SetDefault("manifest.extension_ids", cfg.Manifest.ExtensionIDs)
	v.SetDefault("manifest.browsers", cfg.Manifest.Browsers)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", cfg.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", cfg.Logging.Compress)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.SettingsFile) == "" {
		return errors.New("settings_file is required")
	}
	if cfg.Tracker.Capacity < 1 {
		return fmt.Errorf("tracker.capacity must be positive, got %d", cfg.Tracker.Capacity)
	}
	if cfg.Commands.RatePerSecond < 0 {
		return fmt.Errorf("commands.rate_per_second must not be negative")
	}
	if cfg.Commands.Burst < 0 {
		return fmt.Errorf("commands.burst must not be negative")
	}
	if cfg.Bridge.CallTimeoutMS <= 0 {
		return fmt.Errorf("bridge.call_timeout_ms must be positive")
	}
	if cfg.Bridge.MaxMessageBytes <= 0 || cfg.Bridge.MaxMessageBytes > nativemsg.DefaultMaxIncoming {
		return fmt.Errorf("bridge.max_message_bytes must be between 1 and %d", nativemsg.DefaultMaxIncoming)
	}
	if err := validateWebSocketConfig(cfg.WebSocket); err != nil {
		return err
	}
	for _, name := range cfg.Manifest.Browsers {
		if _, err := hostmanifest.ParseBrowser(name); err != nil {
			return fmt.Errorf("manifest.browsers: %w", err)
		}
	}
	return nil
}

func validateWebSocketConfig(cfg WebSocketConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return errors.New("websocket.addr is required")
	}
	for _, origin := range cfg.AllowedOrigins {
		parsed, err := url.Parse(strings.TrimSpace(origin))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("websocket.allowed_origins entry %q must include scheme and host (e.g. chrome-extension://<id>)", origin)
		}
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.SettingsFile = expandEnv(cfg.SettingsFile)
	cfg.Logging.File = expandEnv(cfg.Logging.File)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
