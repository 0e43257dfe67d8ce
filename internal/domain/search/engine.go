// Package search evaluates ranked, filtered queries over a registry
// snapshot. The engine is stateless and synchronous; callers debounce
// keystrokes with a Debouncer so an evaluation is not issued per character.
package search

import (
	"sort"
	"strings"

	"github.com/ganot/sitewatch/internal/domain/website"
)

// Health filter buckets derived from the last observed HTTP status.
const (
	HealthAll     = "all"
	HealthOnline  = "online"
	HealthOffline = "offline"
	HealthUnknown = "unknown"
)

// DefaultLimit caps a result set when the caller does not supply one.
const DefaultLimit = 50

// QuickLimit caps the dropdown-sized result set of Quick.
const QuickLimit = 5

// MinSuggestLen is the minimum prefix length before suggestions trigger.
const MinSuggestLen = 2

// MaxSuggestions caps the autocomplete list.
const MaxSuggestions = 10

// Criteria is one compound query. The zero value carries no criteria.
type Criteria struct {
	Text          string `json:"text"`
	Health        string `json:"health,omitempty"`
	ProjectStatus string `json:"project_status,omitempty"`
	Industry      string `json:"industry,omitempty"`
	FavoritesOnly bool   `json:"favorites_only,omitempty"`
	WordPress     *bool  `json:"wordpress,omitempty"`
	Limit         int    `json:"limit,omitempty"`
}

// active reports whether any filter or a non-blank text term is set.
func (c Criteria) active() bool {
	if strings.TrimSpace(c.Text) != "" {
		return true
	}
	if c.Health != "" && c.Health != HealthAll {
		return true
	}
	return c.ProjectStatus != "" || c.Industry != "" || c.FavoritesOnly || c.WordPress != nil
}

// Result is a ranked subset of the registry.
type Result struct {
	Matches    []website.Website `json:"matches"`
	TotalCount int               `json:"total_count"`
	HasMore    bool              `json:"has_more"`
}

// Evaluate applies the criteria to a registry snapshot. Empty criteria
// yield an empty result rather than the whole registry, so an idle search
// box never dumps every record into a dropdown.
func Evaluate(records []website.Website, c Criteria) Result {
	if !c.active() {
		return Result{Matches: []website.Website{}}
	}

	term := strings.ToLower(strings.TrimSpace(c.Text))
	matches := make([]website.Website, 0, len(records))
	for _, rec := range records {
		if term != "" && !matchesText(rec, term) {
			continue
		}
		if !matchesHealth(rec, c.Health) {
			continue
		}
		if c.ProjectStatus != "" && rec.ProjectStatus != c.ProjectStatus {
			continue
		}
		if c.Industry != "" && rec.Industry != c.Industry {
			continue
		}
		if c.FavoritesOnly && !rec.Favorite {
			continue
		}
		if c.WordPress != nil && (rec.IsWordPress == nil || *rec.IsWordPress != *c.WordPress) {
			continue
		}
		matches = append(matches, rec)
	}

	rank(matches)

	limit := c.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	total := len(matches)
	hasMore := total > limit
	if hasMore {
		matches = matches[:limit]
	}
	return Result{Matches: matches, TotalCount: total, HasMore: hasMore}
}

// Quick is the text-only search behind compact result dropdowns.
func Quick(records []website.Website, text string) Result {
	return Evaluate(records, Criteria{Text: text, Limit: QuickLimit})
}

func matchesText(rec website.Website, term string) bool {
	return strings.Contains(strings.ToLower(rec.Name), term) ||
		strings.Contains(strings.ToLower(rec.URL), term) ||
		strings.Contains(strings.ToLower(rec.Industry), term) ||
		strings.Contains(strings.ToLower(rec.ProjectStatus), term)
}

func matchesHealth(rec website.Website, health string) bool {
	switch health {
	case "", HealthAll:
		return true
	case HealthOnline:
		return rec.Status != nil && *rec.Status == 200
	case HealthOffline:
		return rec.Status != nil && *rec.Status != 200
	case HealthUnknown:
		return rec.Status == nil
	default:
		return true
	}
}

// rank orders favorites first, then by name, case-insensitively.
func rank(matches []website.Website) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Favorite != matches[j].Favorite {
			return matches[i].Favorite
		}
		return strings.ToLower(matches[i].Name) < strings.ToLower(matches[j].Name)
	})
}

// Suggest returns candidate completions from names, URLs and industries,
// sorted and deduplicated. Prefixes shorter than MinSuggestLen yield
// nothing, and the list is capped at MaxSuggestions.
func Suggest(records []website.Website, prefix string) []string {
	term := strings.ToLower(strings.TrimSpace(prefix))
	if len(term) < MinSuggestLen {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	add := func(candidate string) {
		if candidate == "" {
			return
		}
		key := strings.ToLower(candidate)
		if seen[key] || !strings.Contains(key, term) {
			return
		}
		seen[key] = true
		out = append(out, candidate)
	}
	for _, rec := range records {
		add(rec.Name)
		add(rec.URL)
	}
	for _, rec := range records {
		add(rec.Industry)
	}
	sort.Strings(out)
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}

// Stats summarizes registry health for the dashboard header.
type Stats struct {
	Total           int      `json:"total"`
	Online          int      `json:"online"`
	Offline         int      `json:"offline"`
	Unknown         int      `json:"unknown"`
	WordPress       int      `json:"wordpress"`
	Favorites       int      `json:"favorites"`
	Industries      []string `json:"industries"`
	ProjectStatuses []string `json:"project_statuses"`
}

// Summarize counts records per health bucket and collects the distinct
// industries and project statuses in use, sorted.
func Summarize(records []website.Website) Stats {
	stats := Stats{Total: len(records)}
	industries := make(map[string]bool)
	projectStatuses := make(map[string]bool)
	for _, rec := range records {
		switch {
		case rec.Status == nil:
			stats.Unknown++
		case *rec.Status == 200:
			stats.Online++
		default:
			stats.Offline++
		}
		if rec.IsWordPress != nil && *rec.IsWordPress {
			stats.WordPress++
		}
		if rec.Favorite {
			stats.Favorites++
		}
		if rec.Industry != "" {
			industries[rec.Industry] = true
		}
		if rec.ProjectStatus != "" {
			projectStatuses[rec.ProjectStatus] = true
		}
	}
	stats.Industries = sortedKeys(industries)
	stats.ProjectStatuses = sortedKeys(projectStatuses)
	return stats
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
