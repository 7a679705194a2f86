// Package source defines where the dashboard dataset comes from.
package source

import (
	"context"

	"tradedash/internal/core"
)

// TransactionSource loads the full trade dataset.
type TransactionSource interface {
	// Load returns every transaction in source order.
	Load(ctx context.Context) ([]core.Transaction, error)
	// Name identifies the source in logs and stats.
	Name() string
}
