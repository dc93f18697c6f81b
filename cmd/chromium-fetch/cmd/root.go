package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/chromium-fetch/internal/config"
	"github.com/oshokin/chromium-fetch/internal/domain/platform"
	"github.com/oshokin/chromium-fetch/internal/service/fetcher"
	"github.com/oshokin/chromium-fetch/internal/version"
)

var (
	// configPath to the optional settings YAML file.
	configPath string
	// outputDirectory receives the downloaded archive.
	outputDirectory string
	// targetPlatform selects the snapshot, win unless set.
	targetPlatform = platform.Win
	// installDirectory triggers installation when set.
	installDirectory string
	// proxyURL for both http and https requests.
	proxyURL string
	// rootCA is a PEM bundle replacing the system roots.
	rootCA string
	// baseURL overrides the snapshot bucket.
	baseURL string
	// logLevel overrides the level from the settings file.
	logLevel string

	// rootCmd downloads and optionally installs the newest snapshot.
	rootCmd = &cobra.Command{
		Use:   "chromium-fetch",
		Short: "Download the latest Chromium snapshot",
		Long: "Resolve the newest Chromium snapshot build of a platform from the public bucket, " +
			"download its archive into the output directory and optionally install it.",
		Example: `  # Fetch the latest archive for a Mac and store it in the current directory
  chromium-fetch --platform mac --output_directory "$PWD"

  # The same through a proxy
  chromium-fetch --platform mac --output_directory "$PWD" --proxy http://proxy.example.com:80

  # Fetch the latest archive for Windows through a proxy and install it to C:\chromium
  chromium-fetch --platform win --output_directory "%CD%" --install C:\chromium --proxy http://proxy.example.com:80 -ca root_ca.cer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Arguments are valid at this point, the error is already logged.
			cmd.SilenceUsage = true

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return fetcher.Run(ctx, newOptions())
		},
	}
)

// Execute runs the chromium-fetch CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.SetArgs(normalizeArgs(os.Args[1:]))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newOptions collects the parsed flags.
func newOptions() *fetcher.Options {
	return &fetcher.Options{
		ConfigPath:       configPath,
		OutputDirectory:  outputDirectory,
		Platform:         targetPlatform,
		InstallDirectory: installDirectory,
		Proxy:            proxyURL,
		RootCA:           rootCA,
		BaseURL:          baseURL,
		LogLevel:         logLevel,
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)

	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&outputDirectory, "output_directory", "o", ".",
		"absolute path of an existing directory for the archive")
	rootCmd.Flags().StringVarP(&installDirectory, "install", "i", "",
		"install directory, on mac the archive is only extracted next to itself")

	rootCmd.PersistentFlags().VarP(&targetPlatform, "platform", "p", "target platform: mac, win or linux")
	rootCmd.PersistentFlags().StringVar(&proxyURL, "proxy", "",
		"proxy URL for http and https requests, defaults to the environment")
	rootCmd.PersistentFlags().StringVar(&rootCA, "root_ca", "",
		"PEM certificate bundle used instead of the system roots, also -ca")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to configuration file (default "+config.DefaultConfigFilename+" when present)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base_url", "", "snapshot bucket URL (default "+config.DefaultBaseURL+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(latestCmd)
}
