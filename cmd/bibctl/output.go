package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/helixir/bibliometrics-service/internal/ranking"
)

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeRankTable renders ranked papers as an aligned table.
func writeRankTable(w io.Writer, res *ranking.Result) error {
	if res.NoResults || len(res.Papers) == 0 {
		_, err := fmt.Fprintf(w, "no papers match %q\n", res.Query)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tYEAR\tCITES\tTITLE")
	for i, p := range res.Papers {
		year := "-"
		if p.PublicationYear > 0 {
			year = fmt.Sprint(p.PublicationYear)
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%s\t%d\t%s\n", i+1, p.Score, year, p.TotalCitations, truncate(p.Title, 80))
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
