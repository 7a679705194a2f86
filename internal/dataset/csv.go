// Package dataset loads trade transactions from delimited files and narrows
// them by year and country. Filters return new slices and never modify
// their input.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tradedash/internal/core"
)

// Column names as they appear in the dataset header.
const (
	ColTransactionID  = "Transaction_ID"
	ColCountry        = "Country"
	ColProduct        = "Product"
	ColImportExport   = "Import_Export"
	ColQuantity       = "Quantity"
	ColValue          = "Value"
	ColDate           = "Date"
	ColCategory       = "Category"
	ColPort           = "Port"
	ColShippingMethod = "Shipping_Method"
)

// RequiredColumns must be present in every dataset header.
var RequiredColumns = []string{ColDate, ColCountry, ColCategory, ColValue, ColShippingMethod}

// dateLayouts are tried in order; the first match wins, so an ambiguous
// slashed date such as 03/04/2023 reads month first.
var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"01/02/2006",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
}

// Decoder maps positional records to transactions using a header row.
type Decoder struct {
	index map[string]int
}

// NewDecoder builds a Decoder from a header row. Header names are matched
// after trimming whitespace and a UTF-8 BOM.
func NewDecoder(header []string) (*Decoder, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrMissingColumn, strings.Join(missing, ","))
	}
	return &Decoder{index: idx}, nil
}

func (d *Decoder) get(record []string, col string) string {
	i, ok := d.index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Decode converts a record to a Transaction. An unparseable date yields an
// undefined Date rather than an error.
func (d *Decoder) Decode(record []string) (core.Transaction, error) {
	value, err := core.ParseValue(d.get(record, ColValue))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parsing value %q: %w", d.get(record, ColValue), err)
	}

	var qty int64
	if s := d.get(record, ColQuantity); s != "" {
		qty, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parsing quantity %q: %w", s, err)
		}
	}

	tx := core.Transaction{
		TransactionID:  d.get(record, ColTransactionID),
		Country:        d.get(record, ColCountry),
		Product:        d.get(record, ColProduct),
		Direction:      core.Direction(d.get(record, ColImportExport)),
		Quantity:       qty,
		Value:          value,
		Date:           ParseDate(d.get(record, ColDate)),
		Category:       d.get(record, ColCategory),
		Port:           d.get(record, ColPort),
		ShippingMethod: d.get(record, ColShippingMethod),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// ParseDate parses s with the known layouts, returning the undefined Date
// when none match.
func ParseDate(s string) core.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.NewDate(t.Year(), int(t.Month()), t.Day())
		}
	}
	return core.Date{}
}

// ReadTransactions reads every transaction from a CSV reader. The first row
// must be the header.
func ReadTransactions(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	dec, err := NewDecoder(header)
	if err != nil {
		return nil, err
	}

	var txs []core.Transaction
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		if isBlank(rec) {
			continue
		}
		tx, err := dec.Decode(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// LoadFile opens path and reads its transactions.
func LoadFile(path string) ([]core.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	txs, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return txs, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
