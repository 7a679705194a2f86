// Package commands holds the cobra commands of the tradedash CLIs.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tradedash/internal/amqp"
	"tradedash/internal/cli"
	"tradedash/internal/config"
	"tradedash/internal/core"
	"tradedash/internal/dataset"
	applog "tradedash/internal/log"
	"tradedash/internal/services"
	"tradedash/internal/storage"
)

// ImportOrigin marks notifications sent by the importer.
const ImportOrigin = "importer"

// SnapshotStore receives a full dataset.
type SnapshotStore interface {
	ReplaceAll(ctx context.Context, txs []core.Transaction, sourceName string) (storage.ImportInfo, error)
}

type importOptions struct {
	file   string
	dbPath string
	notify bool
}

// NewImportCommand builds the tradedash-import root command.
func NewImportCommand() *cobra.Command {
	cfg := config.Load()
	opts := importOptions{
		file:   cfg.DatasetPath,
		dbPath: cfg.SQLiteDBPath,
		notify: cfg.AMQPEnabled(),
	}

	cmd := &cobra.Command{
		Use:   "tradedash-import",
		Short: "Load a trade CSV into the SQLite snapshot and notify dashboards",
		Args:  cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.SetupLogger(applog.ComponentStorage)

			var publisher services.Publisher
			if opts.notify {
				if !cfg.AMQPEnabled() {
					return fmt.Errorf("--notify requires AMQP_URL")
				}
				client, err := amqp.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
				if err != nil {
					return fmt.Errorf("initializing AMQP client: %w", err)
				}
				defer client.Close()
				publisher = client
			}

			var (
				txs  []core.Transaction
				repo *storage.SQLiteRepository
			)
			g := new(errgroup.Group)
			g.Go(func() (err error) {
				txs, err = dataset.LoadFile(opts.file)
				return err
			})
			g.Go(func() (err error) {
				repo, err = storage.NewSQLiteRepository(opts.dbPath)
				return err
			})
			if err := g.Wait(); err != nil {
				if repo != nil {
					repo.Close()
				}
				return err
			}
			defer repo.Close()
			logger.Debug("Snapshot opened", "path", opts.dbPath, "schema_version", repo.SchemaVersion())

			if prev, err := repo.LastImport(cmd.Context()); err == nil {
				logger.Info("Replacing snapshot", "previous_import_id", prev.ID, "previous_rows", prev.Rows, "imported_at", prev.ImportedAt)
			}

			info, err := runImport(cmd.Context(), cmd.OutOrStdout(), txs, "csv:"+opts.file, repo, publisher)
			if err != nil {
				return err
			}
			logger.Info("Import finished", "import_id", info.ID, applog.FieldRows, info.Rows, applog.FieldSource, info.Source)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", opts.file, "CSV dataset to import")
	cmd.Flags().StringVar(&opts.dbPath, "db", opts.dbPath, "SQLite snapshot path")
	cmd.Flags().BoolVar(&opts.notify, "notify", opts.notify, "publish dataset.reloaded after the import")

	return cmd
}

// runImport stores txs and announces the new snapshot. A failed
// notification does not undo the import; it is reported as an error so the
// operator can retry.
func runImport(ctx context.Context, out io.Writer, txs []core.Transaction, sourceName string, store SnapshotStore, publisher services.Publisher) (storage.ImportInfo, error) {
	if len(txs) == 0 {
		return storage.ImportInfo{}, services.ErrEmptyDataset
	}

	info, err := store.ReplaceAll(ctx, txs, sourceName)
	if err != nil {
		return storage.ImportInfo{}, fmt.Errorf("saving snapshot: %w", err)
	}
	fmt.Fprintf(out, "Imported %d rows from %s (import #%d)\n", info.Rows, sourceName, info.ID)

	if publisher == nil {
		return info, nil
	}

	msg := amqp.NewDatasetReloadedMessage(ImportOrigin, sourceName, info.Rows, dataset.YearsAvailable(txs))
	msg.ImportID = info.ID
	if err := publisher.PublishDatasetReloaded(ctx, msg); err != nil {
		return info, fmt.Errorf("publishing reload notification: %w", err)
	}
	fmt.Fprintln(out, "Dashboards notified")
	return info, nil
}
