// AreaNode - Sharded Game World Cache and Dispatch Node
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/areanode

// Package store wraps the database/sql handle behind the dispatch
// protocol's transaction contract: begin at repeatable-read, hand the
// transaction to a handler, commit or roll back, and classify conflicts so
// the caller can ask for a retry instead of failing the request outright.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DB wraps a connection pool configured for the dispatch workload.
type DB struct {
	conn *sql.DB
}

// Open opens a DuckDB-backed handle at path (":memory:" for an ephemeral
// database) and applies the pool sizing the teacher lineage uses for
// CPU-bound analytic workloads, which suits the node's bursty per-request
// transactions equally well.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db := &DB{conn: conn}
	db.configurePool()
	return db, nil
}

func (db *DB) configurePool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Close closes the underlying pool.
func (db *DB) Close() error { return db.conn.Close() }

// Conn exposes the underlying pool for collaborators that need raw
// database/sql access outside the per-request transaction contract, such
// as the identifier allocator's block claims.
func (db *DB) Conn() *sql.DB { return db.conn }

// Context is the per-request transaction handle passed to dispatch
// handlers, corresponding to the original's templated DB-context type
// parameter on processor_node_db[T].
type Context struct {
	Tx        *sql.Tx
	committed bool
}

// Begin opens a repeatable-read transaction, matching the original's
// context.begin_transaction(repeatable_read).
func (db *DB) Begin(ctx context.Context) (*Context, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Context{Tx: tx}, nil
}

// Committed reports whether Commit has already succeeded on this context,
// mirroring the original's context.committed() guard against double-commit
// in on_request.
func (c *Context) Committed() bool { return c.committed }

// Commit commits the transaction. On a synchronization conflict it rolls
// back and returns the conflict unchanged so the caller can classify it
// with IsConflict.
func (c *Context) Commit() error {
	if err := c.Tx.Commit(); err != nil {
		_ = c.Tx.Rollback()
		return err
	}
	c.committed = true
	return nil
}

// Rollback rolls back the transaction. Safe to call after a failed Commit.
func (c *Context) Rollback() error {
	if c.committed {
		return nil
	}
	return c.Tx.Rollback()
}

// IsConflict classifies a DuckDB transaction-conflict error, grounded on
// the teacher's isTransactionConflict detector. internal/node maps a true
// result to the wire protocol's retry_later outcome instead of failing the
// request.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on update") ||
		strings.Contains(msg, "cannot update a table that has been altered")
}

// IsConnectionLost classifies a connection-level failure, grounded on the
// teacher's isConnectionError detector.
func IsConnectionLost(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is closed")
}
