package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ah-its-andy/webpconv/internal/config"
	"github.com/ah-its-andy/webpconv/internal/converter"
	"github.com/ah-its-andy/webpconv/internal/livelog"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dbPath     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "webpconv",
	Short:        "webpconv - queue images and convert them in batches",
	Long:         "webpconv collects images into a queue, applies per-file or batch-wide format and quality settings, and converts the selection in one batch.",
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (overrides LOG_LEVEL)")
}

// loadConfig reads the configuration and applies the persistent flags, which
// take precedence over the file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if configFile != "" {
		os.Setenv("CONFIG_FILE", configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func builtinOptions(cfg *config.Config, live *livelog.Manager) converter.BuiltinOptions {
	return converter.BuiltinOptions{
		Workers:          cfg.MaxWorkers,
		PreserveMetadata: cfg.PreserveMetadata,
		MagickPath:       cfg.MagickPath,
		ExiftoolPath:     cfg.ExiftoolPath,
		Live:             live,
	}
}

func newRegistry(cfg *config.Config, live *livelog.Manager) *converter.Registry {
	reg := converter.NewRegistry()
	n := converter.RegisterBuiltinConverters(reg, converter.ListAvailableBuiltinConverters(), builtinOptions(cfg, live))
	log.Printf("registered %d converters: %s", n, strings.Join(converter.ListAvailableBuiltinConverters(), ", "))
	return reg
}
