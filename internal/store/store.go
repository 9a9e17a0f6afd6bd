// Package store runs every tenant-scoped query against Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"helpdesk-api/internal/tenant"
)

var (
	// ErrNotFound is returned when a row does not exist in the caller's scope
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write collides with existing state
	ErrConflict = errors.New("conflict")
)

// querier is satisfied by *sql.DB and *sql.Conn
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// rowQuerier is satisfied by querier and *sql.Tx
type rowQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store is the resource query layer
type Store struct {
	db     *sql.DB
	now    func() time.Time
	tracer trace.Tracer
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the clock used for status stamps and SLA windows
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithTracer injects an OpenTelemetry tracer
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// New creates a Store over db
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("helpdesk-api/store")
	}
	return s
}

// DB exposes the underlying handle for health checks
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// q prefers the request's RLS connection when one is attached
func (s *Store) q(ctx context.Context) querier {
	if c := connFrom(ctx); c != nil {
		return c
	}
	return s.db
}

func (s *Store) start(ctx context.Context, name string, scope tenant.Scope) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "store."+name, trace.WithAttributes(
		attribute.String("scope.column", scope.Column()),
		attribute.Int64("scope.value", scope.Value()),
	))
}

func end(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// wrap maps driver errors onto the package sentinels
func wrap(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %s", op, ErrConflict, err.Error())
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// where accumulates AND-ed predicates with positional arguments
type where struct {
	clauses []string
	args    []any
}

// scoped starts a predicate list with the scope column of alias
func scoped(scope tenant.Scope, alias string) *where {
	w := &where{}
	col := scope.Column()
	if alias != "" {
		col = alias + "." + col
	}
	w.add(col+" = $%d", scope.Value())
	return w
}

// add appends a clause; every %d in format is the placeholder of v
func (w *where) add(format string, v any) {
	w.args = append(w.args, v)
	n := len(w.args)
	w.clauses = append(w.clauses, strings.ReplaceAll(format, "%d", fmt.Sprint(n)))
}

// raw appends a clause that binds nothing
func (w *where) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// sets accumulates UPDATE assignments
type sets struct {
	cols []string
	args []any
}

func (s *sets) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *sets) empty() bool {
	return len(s.cols) == 0
}

// update runs UPDATE table SET ... WHERE id AND scope and reports ErrNotFound when
// nothing matched. extra is appended verbatim to the predicate.
func (s *Store) update(ctx context.Context, q rowQuerier, table string, scope tenant.Scope, id int64, st *sets, extra string) error {
	if st.empty() {
		return nil
	}
	args := append([]any(nil), st.args...)
	args = append(args, id, scope.Value())
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d AND %s = $%d%s",
		table, strings.Join(st.cols, ", "), len(args)-1, scope.Column(), len(args), extra)
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// remove hard-deletes a scoped row
func (s *Store) remove(ctx context.Context, table string, scope tenant.Scope, id int64) error {
	res, err := s.q(ctx).ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND %s = $2", table, scope.Column()),
		id, scope.Value())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ref is a foreign key taken from a request
type ref struct {
	field string
	table string
	id    *int64
}

// checkRefs fails with ErrNotFound when a referenced row lies outside scope. Users
// belong to an organisation, or to their profile tenant when scoped by tenant.
func checkRefs(ctx context.Context, q rowQuerier, scope tenant.Scope, refs ...ref) error {
	for _, r := range refs {
		if r.id == nil {
			continue
		}
		var query string
		switch {
		case r.table == "users" && scope.OrganisationID != nil:
			query = "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND organisation_id = $2)"
		case r.table == "users":
			query = fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM users u LEFT JOIN profiles p ON p.id = u.id
				WHERE u.id = $1 AND COALESCE(p.tenant_id, %d) = $2)`, tenant.DefaultTenantID)
		default:
			query = fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND %s = $2)", r.table, scope.Column())
		}
		var ok bool
		if err := q.QueryRowContext(ctx, query, *r.id, scope.Value()).Scan(&ok); err != nil {
			return fmt.Errorf("check %s: %w", r.field, err)
		}
		if !ok {
			return fmt.Errorf("%s %d: %w", r.field, *r.id, ErrNotFound)
		}
	}
	return nil
}

// orgArg returns the value written to organisation_id for new rows
func orgArg(scope tenant.Scope) any {
	if scope.OrganisationID == nil {
		return nil
	}
	return *scope.OrganisationID
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
