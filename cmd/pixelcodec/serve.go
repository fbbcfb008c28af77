package main

import (
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/pixelcodec/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Run the MCP server. It speaks JSON-RPC 2.0 over stdin and stdout, one
request per line, and exposes the image_identify, image_formats,
image_convert, image_crop, pixels_export, pixels_import and
image_sample_color tools.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server.Version = Version
	slog.Info("pixelcodec: MCP server starting", "version", Version, "commit", GitCommit)
	return server.New(dispatcher).Run(ctx)
}
