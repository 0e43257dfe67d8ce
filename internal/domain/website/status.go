package website

import "strings"

// StatusOption is one selectable project status: a stable value, a display
// label, and a color for the dashboard badge.
type StatusOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Built-in project status values.
const (
	StatusPlanning  = "planning"
	StatusActive    = "active"
	StatusOnHold    = "on_hold"
	StatusDelivered = "delivered"
	StatusArchived  = "archived"
)

var builtinStatuses = []StatusOption{
	{Value: StatusPlanning, Label: "Planning", Color: "#6b7280"},
	{Value: StatusActive, Label: "Active", Color: "#22c55e"},
	{Value: StatusOnHold, Label: "On Hold", Color: "#eab308"},
	{Value: StatusDelivered, Label: "Delivered", Color: "#3b82f6"},
	{Value: StatusArchived, Label: "Archived", Color: "#9ca3af"},
}

// BuiltinStatuses returns the fixed built-in status set. Callers get a copy;
// the built-in set is never mutated.
func BuiltinStatuses() []StatusOption {
	out := make([]StatusOption, len(builtinStatuses))
	copy(out, builtinStatuses)
	return out
}

// MergeStatuses combines the built-in set with user-defined extensions.
// Extensions shadowing a built-in value are dropped.
func MergeStatuses(custom []StatusOption) []StatusOption {
	merged := BuiltinStatuses()
	seen := make(map[string]bool, len(merged))
	for _, opt := range merged {
		seen[opt.Value] = true
	}
	for _, opt := range custom {
		if seen[opt.Value] {
			continue
		}
		seen[opt.Value] = true
		merged = append(merged, opt)
	}
	return merged
}

// StatusValue derives the stable value for a user-supplied label.
func StatusValue(label string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(label)), " ", "_")
}
