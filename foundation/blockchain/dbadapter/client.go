package dbadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Role is a database principal the client can switch the current SQL
// transaction into, per spec §6.2.
type Role string

const (
	// RoleSmartContract has read/write on the public schema and is the
	// role guest queries execute as.
	RoleSmartContract Role = "smartcontract"
	// RoleSmartContractManager has USAGE on basics and
	// SELECT/INSERT/DELETE on basics.contracts; only the create/delete
	// contract handlers switch into it.
	RoleSmartContractManager Role = "smartcontractmanager"
)

// Result mirrors the {rows, rowCount} shape the sandbox's query/queryFast
// guest API resolves with.
type Result struct {
	Rows     []map[string]any
	RowCount int64
}

// Client wraps a single persistent connection to a Postgres-compatible
// engine. It is not safe for concurrent use: the transaction processor
// guarantees at most one in-flight call.
type Client struct {
	conn *pgx.Conn
	log  *zap.SugaredLogger

	dsn string
}

// New constructs a Client bound to log, without yet connecting.
func New(dsn string, log *zap.SugaredLogger) *Client {
	return &Client{dsn: dsn, log: log}
}

// Connect establishes the connection, retrying with the given backoff
// schedule on connectivity failure. It never retries a fatal or
// authentication error.
func (c *Client) Connect(ctx context.Context, backoff []time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= len(backoff); attempt++ {
		conn, err := pgx.Connect(ctx, c.dsn)
		if err == nil {
			c.conn = conn
			return nil
		}
		lastErr = err

		class, _ := Classify(err)
		if class != ClassRetryableConnectivity || attempt == len(backoff) {
			break
		}

		c.log.Infow("dbadapter: connect retry", "attempt", attempt, "error", err)
		select {
		case <-time.After(backoff[attempt]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// A non-retryable connect failure that classifies as corruption or a
	// held advisory lock still needs to reach main.go as a *FatalError,
	// so the node shuts down with the spec-mandated exit code (51 or 50)
	// instead of the generic startup-failure code.
	_, fatalErr := ClassifyFatal(lastErr)
	return fmt.Errorf("dbadapter: connect: %w", fatalErr)
}

// Close closes the underlying connection.
func (c *Client) Close(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close(ctx)
}

// Begin starts a new SQL transaction on the connection.
func (c *Client) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.conn.Begin(ctx)
}

// SetRole issues SET LOCAL ROLE <role> against tx, confining the
// privilege change to the current SQL transaction.
func (c *Client) SetRole(ctx context.Context, tx pgx.Tx, role Role) error {
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ROLE %s;", role))
	return err
}

// SetStatementTimeout sets statement_timeout for the current SQL
// transaction. A zero duration disables the timeout, matching the
// create-contract init path's temporary override (spec §4.6).
func (c *Client) SetStatementTimeout(ctx context.Context, tx pgx.Tx, d time.Duration) error {
	ms := d.Milliseconds()
	_, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d;", ms))
	return err
}

// CurrentStatementTimeout reads back the active statement_timeout so
// the create-contract handler can restore it after clearing it.
func (c *Client) CurrentStatementTimeout(ctx context.Context, tx pgx.Tx) (string, error) {
	row := tx.QueryRow(ctx, "SHOW statement_timeout;")
	var value string
	if err := row.Scan(&value); err != nil {
		return "", err
	}
	return value, nil
}

// Query executes a validated guest query. A statement that returns no
// rows (INSERT/UPDATE/DELETE/DDL without a RETURNING clause) is routed
// through Exec instead, so RowCount reflects rows affected rather than
// always reading 0 for a bare DML statement; everything else is
// executed as a row query and decoded with the deterministic
// bigint/bigint[] parsers of types.go.
func (c *Client) Query(ctx context.Context, tx pgx.Tx, query string, params []any, isSpecialContract bool) (Result, error) {
	normalized := NormalizeGuestQuery(query)
	if err := ValidateGuestQuery(normalized, isSpecialContract); err != nil {
		return Result{}, err
	}

	if !isRowReturningStatement(normalized) {
		return c.execNormalized(ctx, tx, normalized, params)
	}

	rows, err := tx.Query(ctx, normalized, params...)
	if err != nil {
		return Result{}, classifyQueryErr(err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return Result{}, classifyQueryErr(err)
		}

		row := make(map[string]any, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = NormalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{}, classifyQueryErr(err)
	}

	return Result{Rows: out, RowCount: int64(len(out))}, nil
}

// Exec executes a validated guest query that does not return rows
// (INSERT/UPDATE/DELETE/DDL without RETURNING) and returns the
// affected row count. Query dispatches to this internally for any
// statement isRowReturningStatement doesn't recognize as row-returning,
// so guest code never needs to call Exec itself: query()/queryFast()
// both go through Query alone.
func (c *Client) Exec(ctx context.Context, tx pgx.Tx, query string, params []any, isSpecialContract bool) (Result, error) {
	normalized := NormalizeGuestQuery(query)
	if err := ValidateGuestQuery(normalized, isSpecialContract); err != nil {
		return Result{}, err
	}
	return c.execNormalized(ctx, tx, normalized, params)
}

func (c *Client) execNormalized(ctx context.Context, tx pgx.Tx, normalized string, params []any) (Result, error) {
	tag, err := tx.Exec(ctx, normalized, params...)
	if err != nil {
		return Result{}, classifyQueryErr(err)
	}

	return Result{RowCount: tag.RowsAffected()}, nil
}

// classifyQueryErr turns a raw pgx/pgconn error into either a
// *GuestError (constraint violation, safe to hand to guest code) or
// the original error (for the caller to classify at the transaction
// level: retryable, fatal, or "mark invalid and log").
func classifyQueryErr(err error) error {
	class, pgErr := Classify(err)
	if class == ClassConstraintViolation && pgErr != nil {
		return ToGuestError(pgErr)
	}
	return err
}
