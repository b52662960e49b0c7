package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/R3E-Network/sira_platform/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MovementStore = (*Store)(nil)
var _ storage.AlertStore = (*Store)(nil)
var _ storage.CaseStore = (*Store)(nil)
var _ storage.PlaybookStore = (*Store)(nil)
var _ storage.NotificationStore = (*Store)(nil)
var _ storage.ShipmentStore = (*Store)(nil)
var _ storage.VesselStore = (*Store)(nil)
var _ storage.PortStore = (*Store)(nil)
var _ storage.FleetStore = (*Store)(nil)
var _ storage.CorridorStore = (*Store)(nil)
var _ storage.MarketStore = (*Store)(nil)
var _ storage.IoTStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// columns lists the db tags of v's fields, skipping the named ones.
func columns(v any, skip ...string) []string {
	t := reflect.TypeOf(v)
	out := make([]string, 0, t.NumField())
outer:
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		for _, s := range skip {
			if s == tag {
				continue outer
			}
		}
		out = append(out, tag)
	}
	return out
}

// writeSet holds the insert and update column lists for one table.
type writeSet struct {
	table  string
	insert []string
	update []string
}

func newWriteSet(table string, v any, immutable ...string) writeSet {
	return writeSet{
		table:  table,
		insert: columns(v, "id"),
		update: columns(v, append([]string{"id", "created_at"}, immutable...)...),
	}
}

func quote(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = `"` + c + `"`
	}
	return out
}

func (ws writeSet) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (:%s) RETURNING id",
		ws.table, strings.Join(quote(ws.insert), ", "), strings.Join(ws.insert, ", :"))
}

func (ws writeSet) updateSQL() string {
	sets := make([]string, len(ws.update))
	for i, c := range ws.update {
		sets[i] = fmt.Sprintf(`"%s" = :%s`, c, c)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", ws.table, strings.Join(sets, ", "))
}

func (s *Store) insert(ctx context.Context, ws writeSet, arg any) (int64, error) {
	rows, err := s.db.NamedQueryContext(ctx, ws.insertSQL(), arg)
	if err != nil {
		return 0, mapError(err)
	}
	defer rows.Close()

	var id int64
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, mapError(err)
		}
		return 0, fmt.Errorf("insert into %s returned no id", ws.table)
	}
	if err := rows.Scan(&id); err != nil {
		return 0, err
	}
	return id, rows.Err()
}

func (s *Store) update(ctx context.Context, ws writeSet, id int64, arg any) error {
	res, err := s.db.NamedExecContext(ctx, ws.updateSQL(), arg)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", ws.table, id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) getByID(ctx context.Context, dest any, table string, id int64) error {
	err := s.db.GetContext(ctx, dest, fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table), id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", table, id, storage.ErrNotFound)
	}
	return err
}

func (s *Store) getBy(ctx context.Context, dest any, table, column string, value any) error {
	err := s.db.GetContext(ctx, dest, fmt.Sprintf(`SELECT * FROM %s WHERE "%s" = $1`, table, column), value)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s=%v: %w", table, column, value, storage.ErrNotFound)
	}
	return err
}

func (s *Store) deleteByID(ctx context.Context, table string, id int64) error {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", table), id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", table, id, storage.ErrNotFound)
	}
	return nil
}

// mapError converts driver errors into storage sentinels.
func mapError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%s: %w", pqErr.Constraint, storage.ErrConflict)
		case "23503":
			return fmt.Errorf("%s: %w", pqErr.Constraint, storage.ErrNotFound)
		}
	}
	return err
}

// where accumulates conditions with positional placeholders.
type where struct {
	clauses []string
	args    []any
}

// add appends cond, replacing its single "?" with the next placeholder.
func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.clauses = append(w.clauses, strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1))
}

func (w *where) raw(cond string) {
	w.clauses = append(w.clauses, cond)
}

func (w *where) eq(column, value string) {
	if value != "" {
		w.add(column+" = ?", value)
	}
}

func (w *where) id(column string, value int64) {
	if value != 0 {
		w.add(column+" = ?", value)
	}
}

func (w *where) in(column string, values []string) {
	if len(values) > 0 {
		w.add(column+" = ANY(?)", pq.Array(values))
	}
}

func (w *where) since(column string, t *time.Time) {
	if t != nil {
		w.add(column+" >= ?", *t)
	}
}

func (w *where) until(column string, t *time.Time) {
	if t != nil {
		w.add(column+" <= ?", *t)
	}
}

func (w *where) like(column, sub string) {
	if sub != "" {
		w.add(column+" ILIKE ?", "%"+sub+"%")
	}
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// page renders LIMIT/OFFSET; a zero limit means no limit.
func (w *where) page(offset, limit int) string {
	var b strings.Builder
	if limit > 0 {
		w.args = append(w.args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(w.args))
	}
	if offset > 0 {
		w.args = append(w.args, offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(w.args))
	}
	return b.String()
}

func (s *Store) list(ctx context.Context, dest any, table string, w *where, order string, offset, limit int) error {
	q := "SELECT * FROM " + table + w.String() + " ORDER BY " + order
	q += w.page(offset, limit)
	return s.db.SelectContext(ctx, dest, q, w.args...)
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	if updated != nil && updated.IsZero() {
		*updated = now
	}
}

func refresh(updated *time.Time) {
	*updated = time.Now().UTC()
}

func notFoundOnNoRows(err error, table string, key any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", table, key, storage.ErrNotFound)
	}
	return err
}
