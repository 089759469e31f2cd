package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"NewsAnalyzer/internal/domain"
)

const maxTitleRunes = 60

func renderIngestResult(w io.Writer, result domain.IngestResult) {
	fmt.Fprintf(w, "run %s: fetched %d, processed %d, skipped %d, errors %d (%s)\n",
		result.RunID, result.Fetched, result.Processed, result.Skipped, len(result.Errors),
		result.Duration.Round(time.Millisecond))

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warning)
	}

	if len(result.Skips)+len(result.Errors) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Outcome", "URL", "Reason"})
	for _, skip := range result.Skips {
		t.AppendRow(table.Row{"skipped", skip.URL, skip.Reason})
	}
	for _, failure := range result.Errors {
		t.AppendRow(table.Row{"error", failure.URL, failure.Reason})
	}
	t.Render()
}

func renderArticles(w io.Writer, articles []domain.EnrichedArticle, total int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Published", "Sentiment", "Score", "Fake", "Title", "URL"})

	for _, a := range articles {
		t.AppendRow(table.Row{
			a.ID,
			a.PublishedAt.Format(time.RFC3339),
			a.SentimentLabel,
			fmt.Sprintf("%.2f", a.SentimentScore),
			fmt.Sprintf("%.2f", a.ReliabilityProbability),
			shorten(a.Title, maxTitleRunes),
			a.URL,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "total", total})
	t.Render()
}

func shorten(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
