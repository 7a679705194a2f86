// This file implements parsing and validation of dashboard query parameters.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tradedash/internal/services"
)

const (
	maxCountries   = 200
	maxParamLength = 4096
	paramYear      = "year"
	paramCountries = "countries"
	paramTheme     = "theme"
)

// ParseSelectionRequest reads year, countries and theme from a query string.
//
// Countries may be comma separated, repeated, or both. A countries parameter
// that is present but empty selects every country; an absent one leaves the
// default selection to the service.
func ParseSelectionRequest(query url.Values) (services.SelectionRequest, error) {
	var req services.SelectionRequest

	year, err := ParseYear(query)
	if err != nil {
		return req, err
	}
	req.Year = year

	if values, ok := query[paramCountries]; ok {
		req.CountriesSet = true
		for _, v := range values {
			if len(v) > maxParamLength {
				return req, fmt.Errorf("countries parameter too long")
			}
			for _, c := range strings.Split(v, ",") {
				if c = sanitizeInput(c); c != "" {
					req.Countries = append(req.Countries, c)
				}
			}
		}
		if len(req.Countries) > maxCountries {
			return req, fmt.Errorf("too many countries: %d (max %d)", len(req.Countries), maxCountries)
		}
	}

	req.Theme = sanitizeInput(query.Get(paramTheme))
	return req, nil
}

// ParseYear returns the year parameter, or 0 when it is absent.
func ParseYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get(paramYear))
	if v == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q: must be a number", v)
	}
	if year < 1 || year > 9999 {
		return 0, fmt.Errorf("invalid year %d: must be between 1 and 9999", year)
	}
	return year, nil
}

// sanitizeInput trims whitespace and removes control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
