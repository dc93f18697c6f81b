package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/chromium-fetch/internal/logger"
	"github.com/oshokin/chromium-fetch/internal/service/fetcher"
)

// latestCmd prints the newest build identifier without downloading.
//
//nolint:gochecknoglobals // Cobra commands are package-level by convention.
var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the newest snapshot build of a platform",
	Example: "  chromium-fetch latest --platform mac\n" +
		"  chromium-fetch latest --platform win --proxy http://proxy.example.com:80",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceUsage = true

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		// Stdout carries only the build identifier.
		logger.SetConsoleOutput(zapcore.Lock(os.Stderr))

		if logLevel == "" {
			logger.SetLevel(zapcore.WarnLevel)
		}

		buildID, err := fetcher.Latest(ctx, newOptions())
		if err != nil {
			return err
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), buildID)

		return nil
	},
}
