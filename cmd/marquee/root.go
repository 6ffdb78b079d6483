package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"marquee/config"
)

// globalFlags holds the persistent flags shared by every command.
var globalFlags struct {
	ConfigPath     string
	TMDBToken      string
	RankingBackend string
	RankingPath    string
}

var rootCmd = &cobra.Command{
	Use:   "marquee",
	Short: "marquee serves debounced movie search with a trending ranking",
	Long: `marquee runs the movie search backend: a debounced TMDB search per client
session, movie details with trailers, and a durable ranking of the terms
people search for most.

Quick start:
  marquee config init               # write a config.json template
  marquee serve --tmdb-token TOKEN  # start the HTTP API
  marquee trending                  # print the current top searches`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves file and environment configuration, then applies the
// persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(globalFlags.ConfigPath)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(globalFlags.TMDBToken); v != "" {
		cfg.TMDBToken = v
	}
	if v := strings.TrimSpace(globalFlags.RankingBackend); v != "" {
		cfg.RankingBackend = v
	}
	if v := strings.TrimSpace(globalFlags.RankingPath); v != "" {
		cfg.RankingPath = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.ConfigPath, "config", "",
		"path to config.json (default: ./config.json when present)")
	pf.StringVar(&globalFlags.TMDBToken, "tmdb-token", "",
		"TMDB read access token (overrides env "+config.EnvToken+" and config.json)")
	pf.StringVar(&globalFlags.RankingBackend, "ranking-backend", "",
		"ranking store backend: sqlite|bolt (default: sqlite)")
	pf.StringVar(&globalFlags.RankingPath, "ranking-path", "",
		"ranking database file")
}
