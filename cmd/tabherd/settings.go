package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/internal/appconfig"
	"pkt.systems/tabherd/internal/settings"
	"pkt.systems/tabherd/schema"
)

// Settings edits go straight to the store; a running host picks them up
// through its file watch and forwards them to the extension.
func newSettingsCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or edit tab settings",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	open := func(cmd *cobra.Command) (*settings.Store, error) {
		cfg, err := appconfig.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		return settings.NewStoreWithLogger(cfg.SettingsFile, pslog.Ctx(cmd.Context()))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print current settings as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			current, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), current)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-debug <true|false>",
		Short: "Toggle debug breadcrumbs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid debug value %q: %w", args[0], err)
			}
			store, err := open(cmd)
			if err != nil {
				return err
			}
			updated, err := editSettings(cmd.Context(), store, func(s *schema.Settings) error {
				s.Debug = enabled
				return nil
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-default-group <name>",
		Short: "Set the name of the default tab group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := schema.NormalizeGroupName(args[0])
			if err != nil {
				return err
			}
			store, err := open(cmd)
			if err != nil {
				return err
			}
			updated, err := editSettings(cmd.Context(), store, func(s *schema.Settings) error {
				s.DefaultTabGroupName = name
				return nil
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle-autohide <group-id>",
		Short: "Exempt a tab group from auto-collapse, or re-enable it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || schema.GroupID(id) == schema.GroupNone {
				return fmt.Errorf("%w: invalid group id %q", schema.ErrInvalidRequest, args[0])
			}
			store, err := open(cmd)
			if err != nil {
				return err
			}
			var disabled bool
			if _, err := editSettings(cmd.Context(), store, func(s *schema.Settings) error {
				disabled = s.ToggleAutoHide(schema.GroupID(id))
				return nil
			}); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), schema.ToggleAutoHideResponse{GroupID: schema.GroupID(id), AutoHideDisabled: disabled})
		},
	})
	return cmd
}

func editSettings(ctx context.Context, store *settings.Store, fn func(*schema.Settings) error) (schema.Settings, error) {
	current, err := store.Load(ctx)
	if err != nil {
		return schema.Settings{}, err
	}
	if err := fn(&current); err != nil {
		return schema.Settings{}, err
	}
	current = schema.NormalizeSettings(current)
	if err := store.Save(ctx, current); err != nil {
		return schema.Settings{}, err
	}
	return current, nil
}

func printJSON(w io.Writer, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
