package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"tradedash/internal/core"
	"tradedash/internal/dataset"
	"tradedash/internal/source"
)

var _ source.TransactionSource = (*SQLiteRepository)(nil)

// ErrNoImport is returned when the snapshot has never been written.
var ErrNoImport = errors.New("no dataset imported")

// ImportInfo describes the snapshot currently stored.
type ImportInfo struct {
	ID         int64
	Source     string
	Rows       int
	ImportedAt time.Time
}

// SQLiteRepository stores a snapshot of the trade dataset so the dashboard
// can start without re-reading the original file.
type SQLiteRepository struct {
	db            *sql.DB
	dbPath        string
	schemaVersion uint
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps modernc sqlite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, dbPath: dbPath, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the snapshot was opened at.
func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Name() string {
	return "sqlite:" + r.dbPath
}

// ReplaceAll overwrites the snapshot with txs in a single transaction and
// records the import. Row order is preserved.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, txs []core.Transaction, sourceName string) (ImportInfo, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportInfo{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return ImportInfo{}, fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO transactions
		(position, transaction_id, country, product, direction, quantity, value, trade_date, category, port, shipping_method)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ImportInfo{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range txs {
		var date sql.NullString
		if t.Date.Valid() {
			date = sql.NullString{String: t.Date.String(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, t.TransactionID, t.Country, t.Product, string(t.Direction),
			t.Quantity, t.Value.String(), date, t.Category, t.Port, t.ShippingMethod); err != nil {
			return ImportInfo{}, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `INSERT INTO imports (source, row_count, imported_at) VALUES (?, ?, ?)`,
		sourceName, len(txs), now)
	if err != nil {
		return ImportInfo{}, fmt.Errorf("record import: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ImportInfo{}, fmt.Errorf("import id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ImportInfo{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Dataset snapshot saved to SQLite",
		"component", "storage",
		"import_id", id,
		"rows", len(txs),
		"source", sourceName)

	return ImportInfo{ID: id, Source: sourceName, Rows: len(txs), ImportedAt: now}, nil
}

// Load implements source.TransactionSource.
func (r *SQLiteRepository) Load(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT transaction_id, country, product, direction, quantity,
		value, trade_date, category, port, shipping_method
		FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t         core.Transaction
			direction string
			value     string
			date      sql.NullString
		)
		if err := rows.Scan(&t.TransactionID, &t.Country, &t.Product, &direction, &t.Quantity,
			&value, &date, &t.Category, &t.Port, &t.ShippingMethod); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Direction = core.Direction(direction)
		if t.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("stored value %q: %w", value, err)
		}
		if date.Valid {
			t.Date = dataset.ParseDate(date.String)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return txs, nil
}

// LastImport returns metadata for the most recent snapshot.
func (r *SQLiteRepository) LastImport(ctx context.Context) (ImportInfo, error) {
	var info ImportInfo
	err := r.db.QueryRowContext(ctx,
		`SELECT id, source, row_count, imported_at FROM imports ORDER BY id DESC LIMIT 1`).
		Scan(&info.ID, &info.Source, &info.Rows, &info.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ImportInfo{}, ErrNoImport
	}
	if err != nil {
		return ImportInfo{}, fmt.Errorf("last import: %w", err)
	}
	return info, nil
}
