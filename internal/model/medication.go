package model

import "strings"

// PatternCustom marks a medication whose doses are enumerated explicitly
// instead of being derived from a slot-count pattern.
const PatternCustom = "custom"

// Medication is a confirmed medication with its dosing pattern. The pattern
// is a compact "-"-separated slot-count code such as "1-0-1", or
// PatternCustom. JSON tags match the persisted collection shape shared with
// the mobile client.
type Medication struct {
	MedID   string `json:"medId"`
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
}

// NormalizeName returns the uniqueness key used for name-based upsert:
// trimmed, lowercased.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsCustom reports whether doses for this medication are explicitly timed
// rather than pattern-generated.
func (m *Medication) IsCustom() bool {
	return m.Pattern == PatternCustom
}
