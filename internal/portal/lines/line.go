// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package lines serves the access lines listed on the MEMBER and AGENT login tabs.
package lines

import "strings"

// LineType segments lines by the role that signs in through them.
type LineType string

const (
	TypeMember LineType = "MEMBER"
	TypeAgent  LineType = "AGENT"
)

// Types lists every valid [LineType].
var Types = []string{string(TypeMember), string(TypeAgent)}

// ParseLineType accepts any letter case and reports whether input names a known type.
func ParseLineType(input string) (LineType, bool) {
	switch lineType := LineType(strings.ToUpper(strings.TrimSpace(input))); lineType {
	case TypeMember, TypeAgent:
		return lineType, true
	default:
		return "", false
	}
}

// Line is one entry point of the portal.
type Line struct {
	ID     int64    `json:"id"`
	Name   string   `json:"name"`
	URL    string   `json:"url"`
	Type   LineType `json:"type"`
	PingMs *int     `json:"pingMs"`
}

const (
	// FieldType is the query parameter selecting line types.
	FieldType = "type"
)
