package backend

import (
	"context"

	"tradedash/internal/source"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// Result contains the source instance and optional cleanup function
type Result struct {
	Source  source.TransactionSource
	Cleanup CleanupFunc
}

// Close runs the cleanup function if there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates dataset sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for source creation
type Config struct {
	Type Type

	// CSV specific
	DatasetPath string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string
}

// Type names a dataset source kind.
type Type string

const (
	CSVSource    Type = "csv"
	SheetsSource Type = "sheets"
	SQLiteSource Type = "sqlite"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case CSVSource, SheetsSource, SQLiteSource:
		return true
	default:
		return false
	}
}
