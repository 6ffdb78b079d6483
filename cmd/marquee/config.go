package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"marquee/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the marquee configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a config.json template with the built-in defaults",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s. Add your TMDB token as tmdb_token or export %s.\n", path, config.EnvToken)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration with the token redacted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		source := cfg.ConfigPath
		if source == "" {
			source = "(defaults and environment)"
		}
		printSimpleTable(cmd.OutOrStdout(), []string{"Setting", "Value"}, func(add func(...string)) {
			add("source", source)
			add("tmdb_token", cfg.RedactedToken())
			add("language", cfg.Language)
			add("listen", cfg.Listen)
			add("debounce", cfg.Debounce.String())
			add("request_timeout", cfg.RequestTimeout.String())
			add("ranking", cfg.RankingBackend+" "+cfg.RankingPath)
			add("cache_dir", cfg.CacheDir)
			add("trending_top_n", fmt.Sprint(cfg.TrendingTopN))
			add("session_idle_timeout", cfg.SessionIdleTimeout.String())
			add("log_file", cfg.LogFile)
		})
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
