package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/internal/appconfig"
)

func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Debug helpers for tabherd",
	}
	cmd.AddCommand(newDebugTailCmd())
	cmd.AddCommand(newDebugConfigCmd())
	return cmd
}

func newDebugTailCmd() *cobra.Command {
	var cfgPath string
	var addr string
	var window int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Stream tab actions from a running serve daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			if addr == "" {
				cfg, err := appconfig.Load(cfgPath)
				if err != nil {
					return err
				}
				addr = cfg.WebSocket.Addr
			}
			target, err := eventsURL(addr, window)
			if err != nil {
				return err
			}
			conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), target, nil)
			if err != nil {
				return fmt.Errorf("connect %s: %w", target, err)
			}
			defer func() { _ = conn.Close() }()
			logger.Info("debug tail connected", "url", target)
			go func() {
				<-cmd.Context().Done()
				_ = conn.Close()
			}()
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if cmd.Context().Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						return nil
					}
					return err
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(data)); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "daemon address (default websocket.addr)")
	cmd.Flags().IntVar(&window, "window", -1, "only show actions for this window id")
	return cmd
}

func newDebugConfigCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	return cmd
}

func eventsURL(addr string, window int) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid daemon address %q: %w", addr, err)
	}
	if port == "" {
		return "", errors.New("daemon address needs a port")
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, port), Path: "/events"}
	if window >= 0 {
		u.RawQuery = url.Values{"window": []string{strconv.Itoa(window)}}.Encode()
	}
	return u.String(), nil
}
