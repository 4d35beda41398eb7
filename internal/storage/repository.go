package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"registro/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// connParams are applied to every pooled connection. _txlock=immediate makes
// BEGIN take the write lock, so concurrent writers queue on busy_timeout
// instead of failing on lock upgrade.
const connParams = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN builds the driver connection string for a database file.
func DSN(dbPath string) string {
	return dbPath + "?" + connParams
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("ping database: %w", err))
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, classify(fmt.Errorf("run migrations: %w", err))
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers queries.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.queries.Ping(ctx); err != nil {
		return classify(fmt.Errorf("ping database: %w", err))
	}
	return nil
}

func lookupTable(kind core.LookupKind) (string, error) {
	table, ok := lookupTables[kind]
	if !ok {
		return "", core.NewValidationError("kind", "unknown lookup kind "+string(kind))
	}
	return table, nil
}

// ListLookups returns every row of the given kind ordered by name.
func (r *SQLiteRepository) ListLookups(ctx context.Context, kind core.LookupKind) ([]core.Lookup, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return nil, err
	}

	items, err := r.queries.ListLookups(ctx, table)
	if err != nil {
		return nil, classify(fmt.Errorf("list %s: %w", table, err))
	}
	if items == nil {
		items = []core.Lookup{}
	}
	return items, nil
}

// EnsureLookup returns the id of the row named name, creating it if needed.
// The UNIQUE constraint on name makes concurrent callers converge on one row.
func (r *SQLiteRepository) EnsureLookup(ctx context.Context, kind core.LookupKind, name string) (int64, error) {
	table, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	name, err = core.NormalizeName(name)
	if err != nil {
		return 0, err
	}

	id, err := r.queries.GetLookupID(ctx, table, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, classify(fmt.Errorf("get %s id: %w", table, err))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	if err := qtx.InsertLookupIfAbsent(ctx, table, name); err != nil {
		return 0, classify(fmt.Errorf("insert %s: %w", table, err))
	}
	id, err = qtx.GetLookupID(ctx, table, name)
	if err != nil {
		return 0, classify(fmt.Errorf("get %s id: %w", table, err))
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(fmt.Errorf("commit: %w", err))
	}

	slog.InfoContext(ctx, "Lookup ensured", "kind", kind, "id", id, "name", name)
	return id, nil
}

type lookupRef struct {
	entity string
	table  string
	id     int64
}

// AppendTransaction validates and stores a record as given, returning its
// new id. Referenced lookups are checked within the same write transaction.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	refs := []lookupRef{
		{"client", lookupTables[core.Clients], t.ClientID},
		{"service", lookupTables[core.Services], t.ServiceID},
	}
	if t.SectorID != nil {
		refs = append(refs, lookupRef{"sector", lookupTables[core.Sectors], *t.SectorID})
	}
	for _, ref := range refs {
		ok, err := qtx.LookupExists(ctx, ref.table, ref.id)
		if err != nil {
			return 0, classify(fmt.Errorf("check %s: %w", ref.entity, err))
		}
		if !ok {
			return 0, &core.NotFoundError{Entity: ref.entity, ID: ref.id}
		}
	}

	params := InsertTransactionParams{
		Timestamp: t.Timestamp,
		Requester: t.Requester,
		ClientID:  t.ClientID,
		ServiceID: t.ServiceID,
		Quantity:  t.Quantity,
		UnitValue: t.UnitValue,
	}
	if t.SectorID != nil {
		params.SectorID = sql.NullInt64{Int64: *t.SectorID, Valid: true}
	}
	if t.PaymentMethod != core.PaymentNone {
		params.PaymentMethod = sql.NullString{String: string(t.PaymentMethod), Valid: true}
	}
	if t.Notes != "" {
		params.Notes = sql.NullString{String: t.Notes, Valid: true}
	}

	id, err := qtx.InsertTransaction(ctx, params)
	if err != nil {
		return 0, classify(fmt.Errorf("insert transaction: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return 0, classify(fmt.Errorf("commit: %w", err))
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"timestamp", t.Timestamp,
		"client_id", t.ClientID,
		"service_id", t.ServiceID,
		"quantity", t.Quantity,
		"unit_value", t.UnitValue)

	return id, nil
}

// QueryTransactions returns the joined rows matching every set filter field,
// most recent first.
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, f core.Filter) ([]core.Row, error) {
	if f.PaymentMethod != nil && !f.PaymentMethod.IsValid() {
		return nil, core.NewValidationError("payment_method", "unknown payment method "+string(*f.PaymentMethod))
	}

	rows, err := r.queries.QueryRows(ctx, f)
	if err != nil {
		return nil, classify(fmt.Errorf("query transactions: %w", err))
	}
	if rows == nil {
		rows = []core.Row{}
	}
	return rows, nil
}

// classify marks engine-level failures (locked, busy, unopenable, I/O) as
// core.ErrStorageUnavailable and dangling foreign keys as core.ErrNotFound.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}

	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return err
	}
	if serr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY ||
		(serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(serr.Error(), "FOREIGN KEY")) {
		return fmt.Errorf("%w: %w", core.ErrNotFound, err)
	}
	switch serr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR:
		return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
	}
	return err
}
