package domain

import "time"

// SearchResult is the normalized outcome of one executed search.
type SearchResult struct {
	Records []Record
	// Total is the capped count estimate, nil when not requested.
	Total *int64
	// Took is the statement execution time, excluding embedding.
	Took time.Duration
	// Warnings are per-request degradations (dropped projection fields).
	Warnings []string
}
