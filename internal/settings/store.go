package settings

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/schema"
)

// Store persists user settings as a JSON document.
type Store struct {
	path string
	log  pslog.Logger

	// mu serializes writers inside this process; other processes (CLI vs
	// host) rely on the atomic rename.
	mu sync.Mutex
}

// NewStore constructs a settings store backed by the given file.
func NewStore(path string) (*Store, error) {
	return NewStoreWithLogger(path, nil)
}

// NewStoreWithLogger constructs a settings store with logging.
func NewStoreWithLogger(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("settings file is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if logger != nil {
		logger = logger.With("settings_file", path)
	}
	return &Store{path: path, log: logger}, nil
}

// Path returns the settings file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads settings from disk. A missing file yields defaults.
func (s *Store) Load(ctx context.Context) (schema.Settings, error) {
	settings, _, err := s.load()
	return settings, err
}

func (s *Store) load() (schema.Settings, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Trace("settings load miss")
			}
			return schema.DefaultSettings(), false, nil
		}
		if s.log != nil {
			s.log.Warn("settings load failed", "err", err)
		}
		return schema.Settings{}, false, err
	}
	settings := schema.DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		if s.log != nil {
			s.log.Warn("settings load failed", "err", err)
		}
		return schema.Settings{}, false, err
	}
	return schema.NormalizeSettings(settings), true, nil
}

// Save writes settings to disk atomically.
func (s *Store) Save(ctx context.Context, settings schema.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings = schema.NormalizeSettings(settings)
	if err := s.write(settings); err != nil {
		if s.log != nil {
			s.log.Warn("settings save failed", "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Trace("settings save ok", "debug", settings.Debug, "default_group", settings.DefaultTabGroupName)
	}
	return nil
}

// Reset prepares settings for a fresh install: missing files get defaults and
// the debug flag is switched off. It reports whether the file was created.
func (s *Store) Reset(ctx context.Context) (bool, error) {
	settings, existed, err := s.load()
	if err != nil {
		return false, err
	}
	settings.Debug = false
	if err := s.Save(ctx, settings); err != nil {
		return false, err
	}
	return !existed, nil
}

func (s *Store) write(settings schema.Settings) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "settings-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
