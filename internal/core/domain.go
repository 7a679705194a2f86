package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Import Direction = "Import"
	Export Direction = "Export"
)

type (
	// Direction is the Import_Export column of a trade record.
	Direction string

	// Date is a calendar date. The zero value means the source date could not
	// be parsed; such rows stay in the dataset but never match a year.
	Date struct {
		time.Time
	}

	// Transaction is one row of the trade dataset.
	Transaction struct {
		TransactionID  string
		Country        string
		Product        string
		Direction      Direction
		Quantity       int64
		Value          decimal.Decimal
		Date           Date
		Category       string
		Port           string
		ShippingMethod string
	}
)

var (
	ErrInvalidValue  = errors.New("invalid value")
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyCountry  = errors.New("empty country")
	ErrUnknownTheme  = errors.New("unknown color theme")
	ErrInvalidYear   = errors.New("invalid year")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Valid reports whether the date was parsed successfully.
func (d Date) Valid() bool {
	return !d.IsZero()
}

// Year returns the year, or 0 for an undefined date.
func (d Date) Year() int {
	if !d.Valid() {
		return 0
	}
	return d.Time.Year()
}

// Month returns the month (1-12), or 0 for an undefined date.
func (d Date) Month() int {
	if !d.Valid() {
		return 0
	}
	return int(d.Time.Month())
}

// String renders the date as YYYY-MM-DD, empty when undefined.
func (d Date) String() string {
	if !d.Valid() {
		return ""
	}
	return d.Format("2006-01-02")
}

// HasYear reports whether the transaction has a defined date in year.
func (t Transaction) HasYear(year int) bool {
	return t.Date.Valid() && t.Date.Year() == year
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Country) == "" {
		return ErrEmptyCountry
	}
	return nil
}
