package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabherd"
	"pkt.systems/tabherd/internal/appconfig"
	"pkt.systems/tabherd/internal/wsbridge"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket bridge daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.WebSocket.Addr = addr
			}
			if len(cfg.WebSocket.AllowedOrigins) == 0 {
				logger.Warn("websocket allows any extension origin", "hint", "set websocket.allowed_origins")
			}
			server, err := tabherd.New(serverConfig(cfg), tabherd.ServerDeps{
				EventSink: tabherd.NewActionLog(logger),
				Logger:    logger,
			}, tabherd.WithWebSocket())
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), server)
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides websocket.addr)")
	return cmd
}

func serverConfig(cfg appconfig.Config) tabherd.ServerConfig {
	return tabherd.ServerConfig{
		Service:         cfg.ServiceConfig(),
		SettingsFile:    cfg.SettingsFile,
		CallTimeout:     cfg.Bridge.CallTimeout(),
		MaxMessageBytes: cfg.Bridge.MaxMessageBytes,
		WebSocket: wsbridge.Config{
			Addr:            cfg.WebSocket.Addr,
			AllowedOrigins:  cfg.WebSocket.AllowedOrigins,
			MaxMessageBytes: int64(cfg.Bridge.MaxMessageBytes),
		},
	}
}

func runServer(ctx context.Context, server tabherd.Server) error {
	logger := pslog.Ctx(ctx)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Stop(stopCtx); err != nil {
			logger.Warn("server stop failed", "err", err)
		}
	}()
	if err := server.Start(ctx); err != nil {
		return err
	}
	return server.Wait()
}
