package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/tabherd/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Describe())
			return err
		},
	}
}
