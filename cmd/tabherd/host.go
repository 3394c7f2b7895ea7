package main

import (
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"pkt.systems/pslog"
	"pkt.systems/tabherd"
	"pkt.systems/tabherd/internal/appconfig"
	"pkt.systems/tabherd/internal/version"
)

var errInteractiveHost = errors.New("host speaks the native messaging protocol on stdin; let the browser start it, or use serve")

func newHostCmd() *cobra.Command {
	var cfgPath string
	var origin string
	var allowTTY bool
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Run as a native messaging host on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !allowTTY && term.IsTerminal(int(os.Stdin.Fd())) {
				return errInteractiveHost
			}
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			// stdout carries the protocol, so logs go to a rotating file.
			logger, closeLog := hostLogger(cfg.Logging, cmd.ErrOrStderr())
			defer func() { _ = closeLog.Close() }()
			if origin != "" {
				logger = logger.With("origin", origin)
			}
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)
			logger.Info("native host start", "version", version.Describe(), "pid", os.Getpid())

			server, err := tabherd.New(serverConfig(cfg), tabherd.ServerDeps{
				NativeIn:     os.Stdin,
				NativeOut:    os.Stdout,
				NativeCloser: os.Stdin,
				EventSink:    tabherd.NewActionLog(logger),
				Logger:       logger,
			}, tabherd.WithNativeHost())
			if err != nil {
				return err
			}
			return runServer(ctx, server)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&origin, "origin", "", "calling extension origin, passed by the browser")
	cmd.Flags().BoolVar(&allowTTY, "allow-tty", false, "run even when stdin is a terminal")
	return cmd
}

// hostLogger builds the host-mode logger. An empty logging.file falls back to
// fallback, which browsers forward to their own console.
func hostLogger(cfg appconfig.LoggingConfig, fallback io.Writer) (pslog.Logger, io.Closer) {
	var writer io.Writer = fallback
	var closer io.Closer = closerFunc(func() error { return nil })
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		writer = rotating
		closer = rotating
	}
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(writer),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, NoColor: true}),
	)
	return logger, closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
