package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	args := applyBrowserLaunch(os.Args)
	root := newRootCmd()
	root.SetArgs(args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("tabherd command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tabherd",
		Short:         "Browser tab placement and grouping host",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newHostCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newSettingsCmd())
	root.AddCommand(newInstallCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newDebugCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// applyBrowserLaunch maps the argument shapes browsers use when starting a
// native messaging host onto the host subcommand. Chromium passes the caller
// origin, Firefox passes the manifest path followed by the extension id.
func applyBrowserLaunch(args []string) []string {
	if len(args) == 0 {
		return args
	}
	origin, ok := browserOrigin(args[1:])
	if !ok {
		if filepath.Base(args[0]) == "tabherd-host" {
			out := make([]string, 0, len(args)+1)
			out = append(out, args[0], "host")
			return append(out, args[1:]...)
		}
		return args
	}
	return []string{args[0], "host", "--origin", origin}
}

func browserOrigin(args []string) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	first := args[0]
	if strings.HasPrefix(first, "chrome-extension://") {
		return first, true
	}
	if filepath.IsAbs(first) && strings.HasSuffix(first, ".json") && len(args) > 1 {
		return args[1], true
	}
	return "", false
}
