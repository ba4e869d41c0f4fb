// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import "context"

// Repository defines the data access contract.
type Repository interface {
	// Search returns one page of items whose title or description contains
	// keyword (case-insensitive) and the total number of matches.
	Search(context context.Context, keyword string, limit, offset int) ([]*Item, int, error)
}
