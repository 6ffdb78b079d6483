package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"marquee/internal/ranking"
	"marquee/models"
)

var trendingFlags struct {
	Limit  int
	Format string
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "Print the most searched terms",
	Long: `Print the ranking of search terms straight from the ranking store, most
searched first. The server does not need to be running.

Examples:
  marquee trending
  marquee trending --limit 20
  marquee trending --format json | jq '.[0].term'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		limit := trendingFlags.Limit
		if limit <= 0 {
			limit = cfg.TrendingTopN
		}

		store, err := ranking.Open(cfg.RankingBackend, cfg.RankingPath)
		if err != nil {
			return fmt.Errorf("opening ranking store: %w", err)
		}
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		entries, err := store.ListTop(ctx, limit)
		if err != nil {
			return err
		}
		return writeTrending(cmd.OutOrStdout(), trendingFlags.Format, entries)
	},
}

func writeTrending(w io.Writer, format string, entries []models.RankingEntry) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "", "table":
		if len(entries) == 0 {
			fmt.Fprintln(w, "No searches recorded yet.")
			return nil
		}
		printSimpleTable(w, []string{"#", "Term", "Searches", "Movie", "Updated"}, func(add func(...string)) {
			for i, e := range entries {
				add(
					strconv.Itoa(i+1),
					e.Term,
					strconv.FormatInt(e.Count, 10),
					e.Movie.Title,
					e.UpdatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
		})
		return nil
	default:
		return fmt.Errorf("unknown format %q (want table or json)", format)
	}
}

// printSimpleTable renders a left-aligned bordered table.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

func init() {
	f := trendingCmd.Flags()
	f.IntVar(&trendingFlags.Limit, "limit", 0, "number of terms to show (default: trending_top_n)")
	f.StringVar(&trendingFlags.Format, "format", "table", "output format: table|json")
	rootCmd.AddCommand(trendingCmd)
}
