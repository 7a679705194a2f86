package csvfile

import (
	"context"
	"errors"

	"tradedash/internal/core"
	"tradedash/internal/dataset"
	"tradedash/internal/source"
)

var _ source.TransactionSource = (*Source)(nil)

// Source reads the dataset from a local CSV file on every Load.
type Source struct {
	path string
}

func New(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Load(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.path == "" {
		return nil, errors.New("dataset path not configured")
	}
	return dataset.LoadFile(s.path)
}

func (s *Source) Name() string {
	return "csv:" + s.path
}
