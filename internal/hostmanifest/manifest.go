// Package hostmanifest writes native messaging host manifests so browsers can
// launch the host.
package hostmanifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// DefaultName is the registered host name.
const DefaultName = "io.pkt.tabherd"

// Browser identifies a browser family with its own manifest directory.
type Browser string

const (
	Chrome   Browser = "chrome"
	Chromium Browser = "chromium"
	Brave    Browser = "brave"
	Edge     Browser = "edge"
	Firefox  Browser = "firefox"
)

// Browsers lists the supported browsers.
var Browsers = []Browser{Chrome, Chromium, Brave, Edge, Firefox}

var namePattern = regexp.MustCompile(`^[a-z0-9_]+(\.[a-z0-9_]+)*$`)

// Manifest is the native messaging host manifest document.
type Manifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
}

// ParseBrowser validates a browser name.
func ParseBrowser(name string) (Browser, error) {
	browser := Browser(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Browsers, browser) {
		return "", fmt.Errorf("unsupported browser %q", name)
	}
	return browser, nil
}

// Build assembles a manifest. Chromium browsers address extensions by
// origin, Firefox by extension id.
func Build(browser Browser, name, path string, extensionIDs []string) (Manifest, error) {
	if !namePattern.MatchString(name) {
		return Manifest{}, fmt.Errorf("invalid host name %q", name)
	}
	if !filepath.IsAbs(path) {
		return Manifest{}, fmt.Errorf("host path must be absolute: %q", path)
	}
	if len(extensionIDs) == 0 {
		return Manifest{}, errors.New("at least one extension id is required")
	}
	manifest := Manifest{
		Name:        name,
		Description: "tabherd tab placement host",
		Path:        path,
		Type:        "stdio",
	}
	for _, id := range extensionIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if browser == Firefox {
			manifest.AllowedExtensions = append(manifest.AllowedExtensions, id)
			continue
		}
		id = strings.TrimSuffix(strings.TrimPrefix(id, "chrome-extension://"), "/")
		manifest.AllowedOrigins = append(manifest.AllowedOrigins, "chrome-extension://"+id+"/")
	}
	if len(manifest.AllowedOrigins) == 0 && len(manifest.AllowedExtensions) == 0 {
		return Manifest{}, errors.New("at least one extension id is required")
	}
	return manifest, nil
}

// Dir returns the per-user manifest directory for browser on goos.
func Dir(browser Browser, goos, home string) (string, error) {
	if strings.TrimSpace(home) == "" {
		return "", errors.New("home directory is required")
	}
	switch goos {
	case "linux":
		switch browser {
		case Chrome:
			return filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts"), nil
		case Chromium:
			return filepath.Join(home, ".config", "chromium", "NativeMessagingHosts"), nil
		case Brave:
			return filepath.Join(home, ".config", "BraveSoftware", "Brave-Browser", "NativeMessagingHosts"), nil
		case Edge:
			return filepath.Join(home, ".config", "microsoft-edge", "NativeMessagingHosts"), nil
		case Firefox:
			return filepath.Join(home, ".mozilla", "native-messaging-hosts"), nil
		}
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support")
		switch browser {
		case Chrome:
			return filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts"), nil
		case Chromium:
			return filepath.Join(support, "Chromium", "NativeMessagingHosts"), nil
		case Brave:
			return filepath.Join(support, "BraveSoftware", "Brave-Browser", "NativeMessagingHosts"), nil
		case Edge:
			return filepath.Join(support, "Microsoft Edge", "NativeMessagingHosts"), nil
		case Firefox:
			return filepath.Join(support, "Mozilla", "NativeMessagingHosts"), nil
		}
	default:
		return "", fmt.Errorf("manifest install is not supported on %s", goos)
	}
	return "", fmt.Errorf("unsupported browser %q", browser)
}

// Write stores the manifest as <dir>/<name>.json and returns the file path.
func Write(dir string, manifest Manifest) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, manifest.Name+".json")
	tmp, err := os.CreateTemp(dir, manifest.Name+"-*.json")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return path, nil
}
