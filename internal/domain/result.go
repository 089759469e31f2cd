package domain

import (
	"sort"
	"time"
)

// Skip reasons recorded by the ingestion pipeline.
const (
	ReasonUnparseableTimestamp = "unparseable timestamp"
	ReasonEmptyContent         = "empty content"
	ReasonDuplicate            = "duplicate"
	ReasonMissingURL           = "missing url"
)

// ItemFailure describes why a single article did not end up in the store.
type ItemFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// IngestResult aggregates per-article outcomes of one ingestion call.
type IngestResult struct {
	RunID     string        `json:"run_id"`
	Fetched   int           `json:"fetched"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Errors    []ItemFailure `json:"errors"`
	Skips     []ItemFailure `json:"skips"`
	Warnings  []string      `json:"warnings,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Accounted returns how many fetched articles reached a terminal outcome.
func (r IngestResult) Accounted() int {
	return r.Processed + r.Skipped + len(r.Errors)
}

// Sort orders errors and skips by URL so that results are stable for display.
func (r *IngestResult) Sort() {
	byURL := func(items []ItemFailure) func(i, j int) bool {
		return func(i, j int) bool {
			if items[i].URL == items[j].URL {
				return items[i].Reason < items[j].Reason
			}
			return items[i].URL < items[j].URL
		}
	}
	sort.SliceStable(r.Errors, byURL(r.Errors))
	sort.SliceStable(r.Skips, byURL(r.Skips))
}
