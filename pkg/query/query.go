// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package query holds small helpers for URL query values and SQL pattern input.
package query

import "strings"

// StringSlice splits a comma-separated query value into trimmed, non-empty parts.
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		if clean := strings.TrimSpace(v); clean != "" {
			res = append(res, clean)
		}
	}
	return res
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns free text into a LIKE/ILIKE pattern matching any value
// that contains it literally. Wildcards in the input are escaped with '\'.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
