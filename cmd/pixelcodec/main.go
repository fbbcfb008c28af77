package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/config"
	"github.com/ironsheep/pixelcodec/internal/constitute"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// dispatcher is built from the configuration before any command runs.
var dispatcher *constitute.Dispatcher

var rootCmd = &cobra.Command{
	Use:   "pixelcodec",
	Short: "Convert images and move raw pixels between byte layouts",
	Long: `pixelcodec reads and writes images in PNG, JPEG, GIF, TIFF, BMP, WebP
(read only), MIFF and headerless raw formats such as RGB, RGBA, CMYK, GRAY
and MONO. Raw pixel data can be exported or imported at any depth from 1 to
64 bits, signed, unsigned or floating point, in either byte order.

Formats are chosen by a TAG: prefix (RGB:pixels.bin), the file header, or the
file extension, in that order.

Environment variables:
  PIXELCODEC_LOG_LEVEL=debug    debug, info, warn or error (default warn)`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML configuration file (policies, delegates, resources)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup configures logging and the dispatcher shared by all commands.
func setup(cmd *cobra.Command, _ []string) error {
	// stdout carries images and the MCP protocol, so logs go to stderr
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(os.Getenv("PIXELCODEC_LOG_LEVEL"))})
	slog.SetDefault(slog.New(handler))

	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		slog.Debug("pixelcodec: loaded configuration", "path", path,
			"policies", len(cfg.Policies), "delegates", len(cfg.Delegates))
	}
	if err := cfg.Apply(); err != nil {
		return fmt.Errorf("applying configuration: %w", err)
	}

	dispatcher = constitute.New(nil,
		constitute.WithDelegates(cfg.DelegateTable()),
		constitute.WithTempDir(cfg.TemporaryPath),
	)
	constitute.SetDefault(dispatcher)
	return nil
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}
