package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/alpha-grader/internal/grading"
	"github.com/sells-group/alpha-grader/internal/model"
)

var gradesCmd = &cobra.Command{
	Use:   "grades",
	Short: "Show cached grades for a position or ALL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		season, _ := cmd.Flags().GetInt("season")
		week, _ := cmd.Flags().GetInt("week")
		position, _ := cmd.Flags().GetString("position")
		limit, _ := cmd.Flags().GetInt("limit")
		version, _ := cmd.Flags().GetString("version")
		format, _ := cmd.Flags().GetString("format")

		env, err := initEnv(ctx, cfg, "read", false)
		if err != nil {
			return err
		}
		defer env.Close()

		q := grading.Query{Season: season, Position: position, Limit: limit, Version: version}
		if week > 0 {
			q.AsOfWeek = &week
		}
		snap, err := env.Service.GetGradesFromCache(ctx, q)
		if err != nil {
			return err
		}

		if format == "json" {
			return writeJSON(os.Stdout, snap)
		}
		if len(snap.Players) == 0 {
			fmt.Fprintln(os.Stderr, "No cached grades found.")
			return nil
		}
		formatSnapshot(os.Stdout, snap)
		return nil
	},
}

func init() {
	gradesCmd.Flags().Int("season", 0, "season (required)")
	gradesCmd.Flags().Int("week", 0, "as-of week (default latest cached)")
	gradesCmd.Flags().String("position", "ALL", "QB, RB, WR, TE or ALL")
	gradesCmd.Flags().Int("limit", 0, "max players per position (default from config)")
	gradesCmd.Flags().String("version", "", "cache version (default from profile)")
	gradesCmd.Flags().String("format", "table", "output format: table or json")
	_ = gradesCmd.MarkFlagRequired("season")
	rootCmd.AddCommand(gradesCmd)
}

// formatSnapshot writes a header line and a table of grades to out.
func formatSnapshot(out io.Writer, snap grading.Snapshot) {
	header := fmt.Sprintf("%s %d week %d (%s)", snap.Position, snap.Season, snap.AsOfWeek, snap.Version)
	if snap.Fallback != "" {
		header += " fallback=" + string(snap.Fallback)
	}
	if weeks := mixedWeeks(snap.Weeks); weeks != "" {
		header += " weeks=" + weeks
	}
	if snap.Stale {
		header += " STALE"
	}
	_, _ = fmt.Fprintln(out, header)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "POS\tPLAYER\tTEAM\tALPHA\tTIER\tVOL\tEFF\tSTAB\tCTX\tCONF\tTRAJ\tGP\tISSUES")
	for _, g := range snap.Players {
		name := g.Name
		if name == "" {
			name = g.PlayerID
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.0f\t%s\t%d\t%s\n",
			g.Position, truncate(name, 28), g.Team, g.Alpha, g.Tier,
			g.Pillars.Volume, g.Pillars.Efficiency, g.Pillars.Stability, g.Pillars.ContextFit,
			g.Confidence, g.Trajectory, g.GamesPlayed, strings.Join(g.Issues, ","))
	}
	_ = w.Flush()
}

// mixedWeeks lists the served week of each position group when the groups
// disagree, and returns "" otherwise.
func mixedWeeks(weeks []grading.PositionWeek) string {
	var parts []string
	seen := make(map[int]bool)
	for _, pw := range weeks {
		if pw.Fallback == model.ReasonEmptyCache {
			continue
		}
		seen[pw.AsOfWeek] = true
		parts = append(parts, fmt.Sprintf("%s:%d", pw.Position, pw.AsOfWeek))
	}
	if len(seen) < 2 {
		return ""
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
