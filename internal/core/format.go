package core

import "github.com/shopspring/decimal"

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
)

// FormatValue renders v in millions ("2.5M") when its magnitude exceeds one
// million and in thousands ("0.8K") otherwise, with one decimal.
//
// Examples:
//   FormatValue(2_500_000) -> "2.5M"
//   FormatValue(1_000_001) -> "1.0M"
//   FormatValue(750)       -> "0.8K"
func FormatValue(v decimal.Decimal) string {
	if v.Abs().GreaterThan(million) {
		return v.Div(million).StringFixed(1) + "M"
	}
	return v.Div(thousand).StringFixed(1) + "K"
}

// ParseValue parses a decimal amount, accepting an optional thousands
// separator and surrounding whitespace.
func ParseValue(s string) (decimal.Decimal, error) {
	s = trimNumber(s)
	if s == "" {
		return decimal.Zero, ErrInvalidValue
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidValue
	}
	return d, nil
}

func trimNumber(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case ' ', '\t', ',':
			continue
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
