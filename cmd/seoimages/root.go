package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/leca/seo-images/internal/config"
)

var (
	cfg *config.Config

	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "seoimages",
	Short: "Responsive image service producing AVIF, WebP and JPEG variants",
	Long: StyleTitle.Render("seoimages") + " converts uploaded images into AVIF, WebP and JPEG variants\n" +
		"at configured widths, stores them on a filesystem or FTP disk, and renders\n" +
		"<picture> markup and an image sitemap for them.",
	SilenceUsage:      true,
	PersistentPreRunE: initialize,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading SEO_IMAGES_* variables")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncFormatsCmd)
}

// initialize loads the dotenv file and configuration and installs the JSON
// logger on stderr.
func initialize(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Variables already set in the environment win over the file.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}
