// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lines

import "context"

// Repository defines the data access contract.
type Repository interface {
	// ListActive returns active lines of the given types in display order.
	ListActive(context context.Context, types []LineType) ([]*Line, error)
}
