package main

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/internal/appconfig"
	"pkt.systems/tabherd/internal/hostmanifest"
	"pkt.systems/tabherd/internal/settings"
)

func newInstallCmd() *cobra.Command {
	var cfgPath string
	var browsers []string
	var extensionIDs []string
	var hostPath string
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the native messaging host and reset debug settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if len(browsers) == 0 {
				browsers = cfg.Manifest.Browsers
			}
			if len(extensionIDs) == 0 {
				extensionIDs = cfg.Manifest.ExtensionIDs
			}
			if len(extensionIDs) == 0 {
				return errors.New("no extension ids; pass --extension-id or set manifest.extension_ids")
			}
			if hostPath == "" {
				hostPath, err = executablePath()
				if err != nil {
					return err
				}
			}
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			for _, name := range browsers {
				browser, err := hostmanifest.ParseBrowser(name)
				if err != nil {
					return err
				}
				manifest, err := hostmanifest.Build(browser, cfg.Manifest.Name, hostPath, extensionIDs)
				if err != nil {
					return err
				}
				dir, err := hostmanifest.Dir(browser, runtime.GOOS, home)
				if err != nil {
					return err
				}
				path, err := hostmanifest.Write(dir, manifest)
				if err != nil {
					return err
				}
				logger.Info("install wrote manifest", "browser", string(browser), "path", path)
			}

			store, err := settings.NewStoreWithLogger(cfg.SettingsFile, logger)
			if err != nil {
				return err
			}
			created, err := store.Reset(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("install reset settings", "path", store.Path(), "created", created)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringSliceVar(&browsers, "browser", nil, "browsers to register (default from manifest.browsers)")
	cmd.Flags().StringSliceVar(&extensionIDs, "extension-id", nil, "allowed extension ids (default from manifest.extension_ids)")
	cmd.Flags().StringVar(&hostPath, "path", "", "host executable path (default: this binary)")
	return cmd
}

func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return exe, nil
	}
	return resolved, nil
}
