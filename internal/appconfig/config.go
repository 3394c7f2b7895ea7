package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/tabherd/internal/hostmanifest"
	"pkt.systems/tabherd/internal/nativemsg"
	"pkt.systems/tabherd/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string          `mapstructure:"state_dir" yaml:"state_dir"`
	SettingsFile  string          `mapstructure:"settings_file" yaml:"settings_file"`
	Tracker       TrackerConfig   `mapstructure:"tracker" yaml:"tracker"`
	Commands      CommandsConfig  `mapstructure:"commands" yaml:"commands"`
	Bridge        BridgeConfig    `mapstructure:"bridge" yaml:"bridge"`
	WebSocket     WebSocketConfig `mapstructure:"websocket" yaml:"websocket"`
	Manifest      ManifestConfig  `mapstructure:"manifest" yaml:"manifest"`
	Logging       LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// TrackerConfig bounds the per-window recently-used history.
type TrackerConfig struct {
	Capacity int `mapstructure:"capacity" yaml:"capacity"`
}

// CommandsConfig throttles keyboard commands.
type CommandsConfig struct {
	RatePerSecond float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
	Burst         int     `mapstructure:"burst" yaml:"burst"`
}

// BridgeConfig controls the extension bridge.
type BridgeConfig struct {
	CallTimeoutMS   int `mapstructure:"call_timeout_ms" yaml:"call_timeout_ms"`
	MaxMessageBytes int `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

// WebSocketConfig configures the daemon transport.
type WebSocketConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// ManifestConfig controls native messaging host registration.
type ManifestConfig struct {
	Name         string   `mapstructure:"name" yaml:"name"`
	ExtensionIDs []string `mapstructure:"extension_ids" yaml:"extension_ids"`
	Browsers     []string `mapstructure:"browsers" yaml:"browsers"`
}

// LoggingConfig controls the host log file.
type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// ServiceConfig maps the config onto core service limits.
func (c Config) ServiceConfig() schema.ServiceConfig {
	return schema.ServiceConfig{
		MRUCapacity:  c.Tracker.Capacity,
		CommandRate:  c.Commands.RatePerSecond,
		CommandBurst: c.Commands.Burst,
	}
}

// CallTimeout returns the bridge call timeout.
func (c BridgeConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutMS) * time.Millisecond
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".tabherd", "state"),
		SettingsFile:  filepath.Join(home, ".tabherd", "settings.json"),
		Tracker: TrackerConfig{
			Capacity: schema.DefaultMRUCapacity,
		},
		Commands: CommandsConfig{
			RatePerSecond: schema.DefaultCommandRate,
			Burst:         schema.DefaultCommandBurst,
		},
		Bridge: BridgeConfig{
			CallTimeoutMS:   5000,
			MaxMessageBytes: nativemsg.DefaultMaxIncoming,
		},
		WebSocket: WebSocketConfig{
			Addr:           "127.0.0.1:27490",
			AllowedOrigins: []string{},
		},
		Manifest: ManifestConfig{
			Name:         hostmanifest.DefaultName,
			ExtensionIDs: []string{},
			Browsers:     []string{string(hostmanifest.Chrome), string(hostmanifest.Firefox)},
		},
		Logging: LoggingConfig{
			File:       filepath.Join(home, ".tabherd", "state", "host.log"),
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   false,
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tabherd", "config.yaml"), nil
}
