// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package search implements the public keyword search over portal entries.
package search

// Item is one search result.
type Item struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

const (
	// FieldKeyword is the query parameter carrying the search text.
	FieldKeyword = "q"

	// MaxKeywordLength bounds the search text.
	MaxKeywordLength = 100
)
