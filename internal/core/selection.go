package core

import (
	"fmt"
	"slices"
	"strings"
)

// Themes lists the color schemes the front end understands.
var Themes = []string{"blues", "reds", "greens", "turbo", "viridis"}

// DefaultTheme is used when no theme is selected.
const DefaultTheme = "blues"

// Selection is the immutable filter state of one dashboard request.
type Selection struct {
	Year      int
	countries []string
	Theme     string
}

// NewSelection validates and builds a Selection. Countries are trimmed and
// de-duplicated; an empty list means no country filter.
func NewSelection(year int, countries []string, theme string) (Selection, error) {
	if year < 1 || year > 9999 {
		return Selection{}, fmt.Errorf("%w: %d", ErrInvalidYear, year)
	}
	theme = strings.TrimSpace(strings.ToLower(theme))
	if theme == "" {
		theme = DefaultTheme
	}
	if !slices.Contains(Themes, theme) {
		return Selection{}, fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}

	seen := make(map[string]struct{}, len(countries))
	cs := make([]string, 0, len(countries))
	for _, c := range countries {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cs = append(cs, c)
	}

	return Selection{Year: year, countries: cs, Theme: theme}, nil
}

// Countries returns a copy of the selected countries.
func (s Selection) Countries() []string {
	return slices.Clone(s.countries)
}

// Key identifies the selection for caching.
func (s Selection) Key() string {
	cs := slices.Clone(s.countries)
	slices.Sort(cs)
	return fmt.Sprintf("%d|%s|%s", s.Year, strings.Join(cs, ","), s.Theme)
}
