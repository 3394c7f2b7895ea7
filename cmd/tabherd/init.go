package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/tabherd/internal/appconfig"
)

func newInitCmd() *cobra.Command {
	var outputPath string
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := appconfig.WriteDefault(outputPath, overwrite)
			if err != nil {
				return err
			}
			pslog.Ctx(cmd.Context()).Info("init wrote", "path", path, "name", "config.yaml")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "config path (default ~/.tabherd/config.yaml)")
	cmd.Flags().BoolVar(&overwrite, "force", false, "overwrite an existing config")
	return cmd
}
