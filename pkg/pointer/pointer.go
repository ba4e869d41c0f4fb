// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pointer builds and reads the *bool and *int lifecycle fields of
// accounts created before those columns existed (NULL in Postgres).
package pointer

// To returns a pointer to a copy of v.
func To[T any](v T) *T { return &v }

// Val reads p, treating nil as the zero value (a legacy NULL).
func Val[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}
