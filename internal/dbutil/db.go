// Package dbutil runs assertion queries against the application database.
package dbutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/shehryarbajwa/browserbase-e2e/internal/config"
)

// Row is one result row keyed by column name
type Row map[string]any

// DB wraps a connection pool with query helpers
type DB struct {
	db     *sql.DB
	sqlDir string
	logger *zap.Logger
}

// Open connects with the configured driver. For mysql without a DSN, the
// DSN is built from host, port, user, password and database.
func Open(cfg config.DBConfig, logger *zap.Logger) (*DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "mysql"
	}

	dsn := cfg.DSN
	if driver == "mysql" && dsn == "" {
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.DBName = cfg.Database
		mc.ParseTime = true
		dsn = mc.FormatDSN()
	}
	if dsn == "" {
		return nil, fmt.Errorf("no dsn configured for driver %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	return New(db, cfg.SQLDir, logger), nil
}

func New(db *sql.DB, sqlDir string, logger *zap.Logger) *DB {
	return &DB{db: db, sqlDir: sqlDir, logger: logger}
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Exec runs a statement that returns no rows
func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	return res.RowsAffected()
}

// RunQuery runs query and returns every row. []byte values are returned as strings.
func (d *DB) RunQuery(ctx context.Context, query string, args ...any) ([]Row, error) {
	columns, values, err := d.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(values))
	for _, vals := range values {
		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = vals[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// query returns the column names and each row's values in column order
func (d *DB) query(ctx context.Context, query string, args ...any) ([]string, [][]any, error) {
	d.logger.Debug("running query", zap.String("query", query), zap.Int("args", len(args)))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}

		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, out, nil
}

// RunQueryFromFile loads name from the SQL directory and runs it
func (d *DB) RunQueryFromFile(ctx context.Context, name string, args ...any) ([]Row, error) {
	path := name
	if d.sqlDir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(d.sqlDir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sql file: %w", err)
	}
	return d.RunQuery(ctx, string(data), args...)
}

// SaveResultsToArray returns each row as its values in column order
func (d *DB) SaveResultsToArray(ctx context.Context, query string, args ...any) ([][]any, error) {
	_, values, err := d.query(ctx, query, args...)
	return values, err
}

// VerifyValues compares expected against the first row of the query. Values
// are compared by their printed form so an int 5 matches an int64 5.
func (d *DB) VerifyValues(ctx context.Context, query string, args []any, expected map[string]any) (bool, error) {
	rows, err := d.RunQuery(ctx, query, args...)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		d.logger.Warn("no records found for the given criteria", zap.String("query", query))
		return false, nil
	}

	record := rows[0]
	for key, want := range expected {
		got, ok := record[key]
		if !ok || !sameValue(want, got) {
			d.logger.Warn("value mismatch",
				zap.String("column", key),
				zap.Any("expected", want),
				zap.Any("actual", got))
			return false, nil
		}
	}
	return true, nil
}

func sameValue(want, got any) bool {
	if want == nil || got == nil {
		return want == nil && got == nil
	}
	if reflect.DeepEqual(want, got) {
		return true
	}
	return fmt.Sprint(want) == fmt.Sprint(got)
}

// RecordExists reports whether the query returns at least one row
func (d *DB) RecordExists(ctx context.Context, query string, args ...any) (bool, error) {
	rows, err := d.RunQuery(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// GetRecord returns the first row, or nil when there is none
func (d *DB) GetRecord(ctx context.Context, query string, args ...any) (Row, error) {
	rows, err := d.RunQuery(ctx, query, args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (d *DB) GetRecords(ctx context.Context, query string, args ...any) ([]Row, error) {
	return d.RunQuery(ctx, query, args...)
}

// CountRecords returns the first column of the first row as a count,
// e.g. for SELECT COUNT(*) ... queries. No rows counts as zero.
func (d *DB) CountRecords(ctx context.Context, query string, args ...any) (int64, error) {
	values, err := d.SaveResultsToArray(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 || len(values[0]) == 0 || values[0][0] == nil {
		return 0, nil
	}

	switch v := values[0][0].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("count is not a number: %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected count type %T", v)
	}
}
