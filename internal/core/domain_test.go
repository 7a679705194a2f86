package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValid(t *testing.T) {
	cases := []struct {
		d     Date
		ok    bool
		year  int
		month int
	}{
		{NewDate(2025, 1, 1), true, 2025, 1},
		{NewDate(2019, 12, 31), true, 2019, 12},
		{Date{Time: time.Time{}}, false, 0, 0}, // undefined
	}
	for i, tc := range cases {
		if got := tc.d.Valid(); got != tc.ok {
			t.Fatalf("case %d Valid()=%v, want %v", i, got, tc.ok)
		}
		if got := tc.d.Year(); got != tc.year {
			t.Fatalf("case %d Year()=%d, want %d", i, got, tc.year)
		}
		if got := tc.d.Month(); got != tc.month {
			t.Fatalf("case %d Month()=%d, want %d", i, got, tc.month)
		}
	}
}

func TestTransactionHasYear(t *testing.T) {
	tx := Transaction{Country: "Chile", Date: NewDate(2023, 5, 2)}
	if !tx.HasYear(2023) {
		t.Fatalf("expected 2023 match")
	}
	if tx.HasYear(2022) {
		t.Fatalf("unexpected 2022 match")
	}
	undated := Transaction{Country: "Chile"}
	if undated.HasYear(0) {
		t.Fatalf("undefined date must never match a year")
	}
}

func TestTransactionValidate(t *testing.T) {
	if err := (Transaction{Country: "Peru"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Transaction{Country: "  "}).Validate(); !errors.Is(err, ErrEmptyCountry) {
		t.Fatalf("expected ErrEmptyCountry, got %v", err)
	}
}

func TestNewSelection(t *testing.T) {
	s, err := NewSelection(2023, []string{" Chile ", "Peru", "Chile", ""}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Theme != DefaultTheme {
		t.Fatalf("theme=%q, want %q", s.Theme, DefaultTheme)
	}
	got := s.Countries()
	if len(got) != 2 || got[0] != "Chile" || got[1] != "Peru" {
		t.Fatalf("countries=%v", got)
	}

	// Countries returns a copy.
	got[0] = "Mutated"
	if s.Countries()[0] != "Chile" {
		t.Fatalf("selection must be immutable")
	}

	if _, err := NewSelection(2023, nil, "magenta"); !errors.Is(err, ErrUnknownTheme) {
		t.Fatalf("expected ErrUnknownTheme, got %v", err)
	}
	if _, err := NewSelection(0, nil, "reds"); !errors.Is(err, ErrInvalidYear) {
		t.Fatalf("expected ErrInvalidYear, got %v", err)
	}
}

func TestSelectionKeyIgnoresCountryOrder(t *testing.T) {
	a, _ := NewSelection(2022, []string{"B", "A"}, "reds")
	b, _ := NewSelection(2022, []string{"A", "B"}, "REDS")
	if a.Key() != b.Key() {
		t.Fatalf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	c, _ := NewSelection(2021, []string{"A", "B"}, "reds")
	if a.Key() == c.Key() {
		t.Fatalf("different years must not share a key")
	}
}
