package storage

import (
	"context"
	"database/sql"
	"strings"

	"registro/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// lookupTables is the only source of table names interpolated into SQL.
var lookupTables = map[core.LookupKind]string{
	core.Clients:  "clients",
	core.Services: "services",
	core.Sectors:  "sectors",
}

func (q *Queries) ListLookups(ctx context.Context, table string) ([]core.Lookup, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id, name FROM "+table+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.Lookup
	for rows.Next() {
		var l core.Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetLookupID(ctx context.Context, table, name string) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id)
	return id, err
}

func (q *Queries) InsertLookupIfAbsent(ctx context.Context, table, name string) error {
	_, err := q.db.ExecContext(ctx, "INSERT INTO "+table+"(name) VALUES (?) ON CONFLICT(name) DO NOTHING", name)
	return err
}

func (q *Queries) LookupExists(ctx context.Context, table string, id int64) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

const insertTransaction = `INSERT INTO transactions
(timestamp, requester, client_id, service_id, quantity, unit_value, sector_id, payment_method, notes)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

type InsertTransactionParams struct {
	Timestamp     string
	Requester     string
	ClientID      int64
	ServiceID     int64
	Quantity      int64
	UnitValue     float64
	SectorID      sql.NullInt64
	PaymentMethod sql.NullString
	Notes         sql.NullString
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertTransaction,
		arg.Timestamp,
		arg.Requester,
		arg.ClientID,
		arg.ServiceID,
		arg.Quantity,
		arg.UnitValue,
		arg.SectorID,
		arg.PaymentMethod,
		arg.Notes,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectRows = `SELECT t.id, t.timestamp, t.requester,
       t.client_id, c.name, t.service_id, s.name,
       t.quantity, t.unit_value, (t.quantity * t.unit_value) AS total_value,
       t.sector_id, st.name, t.payment_method, t.notes
FROM transactions t
JOIN clients c ON c.id = t.client_id
JOIN services s ON s.id = t.service_id
LEFT JOIN sectors st ON st.id = t.sector_id`

const rowsOrder = "\nORDER BY datetime(t.timestamp) DESC, t.id DESC"

// buildRowsQuery turns a filter into a WHERE clause. Timestamps are
// compared through datetime() so that text storage still orders as time.
func buildRowsQuery(f core.Filter) (string, []interface{}) {
	if f.IsEmpty() {
		return selectRows + rowsOrder, nil
	}

	var (
		conds []string
		args  []interface{}
	)
	if f.Start != nil {
		conds = append(conds, "datetime(t.timestamp) >= datetime(?)")
		args = append(args, *f.Start)
	}
	if f.End != nil {
		conds = append(conds, "datetime(t.timestamp) <= datetime(?)")
		args = append(args, *f.End)
	}
	if f.ClientID != nil {
		conds = append(conds, "t.client_id = ?")
		args = append(args, *f.ClientID)
	}
	if f.ServiceID != nil {
		conds = append(conds, "t.service_id = ?")
		args = append(args, *f.ServiceID)
	}
	if f.SectorID != nil {
		conds = append(conds, "t.sector_id = ?")
		args = append(args, *f.SectorID)
	}
	if f.PaymentMethod != nil {
		conds = append(conds, "ifnull(t.payment_method, '') = ?")
		args = append(args, string(*f.PaymentMethod))
	}

	var b strings.Builder
	b.WriteString(selectRows)
	b.WriteString("\nWHERE ")
	b.WriteString(strings.Join(conds, " AND "))
	b.WriteString(rowsOrder)
	return b.String(), args
}

func (q *Queries) QueryRows(ctx context.Context, f core.Filter) ([]core.Row, error) {
	query, args := buildRowsQuery(f)
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.Row
	for rows.Next() {
		var (
			r        core.Row
			sectorID sql.NullInt64
			sector   sql.NullString
			payment  sql.NullString
			notes    sql.NullString
		)
		if err := rows.Scan(
			&r.ID,
			&r.Timestamp,
			&r.Requester,
			&r.ClientID,
			&r.Client,
			&r.ServiceID,
			&r.Service,
			&r.Quantity,
			&r.UnitValue,
			&r.TotalValue,
			&sectorID,
			&sector,
			&payment,
			&notes,
		); err != nil {
			return nil, err
		}
		if sectorID.Valid {
			id := sectorID.Int64
			r.SectorID = &id
		}
		if sector.Valid {
			name := sector.String
			r.Sector = &name
		}
		r.PaymentMethod = core.PaymentMethod(payment.String)
		r.Notes = notes.String
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) Ping(ctx context.Context) error {
	var one int
	return q.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
