// Copyright 2025-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

// Wrapper around a pgx transaction to help debug if transactions are leaking

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnsupported = errors.New("unsupported function")
)

type TrackedTx struct {
	id string
	tx pgx.Tx
}

// Begin panics; nested transactions are not supported on a tracked
// transaction.
func (t *TrackedTx) Begin(ctx context.Context) (pgx.Tx, error) {
	log.Panic().Msg("sub-transactions are not supported")
	return nil, ErrUnsupported
}

// BeginFunc panics; nested transactions are not supported on a tracked
// transaction.
func (t *TrackedTx) BeginFunc(ctx context.Context, f func(pgx.Tx) error) (err error) {
	log.Panic().Msg("sub-transactions are not supported")
	return ErrUnsupported
}

// Commit commits the transaction. Commit will return ErrTxClosed if the Tx is already closed, but is
// otherwise safe to call multiple times. If the commit fails with a rollback status (e.g. the
// transaction was already in a broken state) then ErrTxCommitRollback will be returned.
func (t *TrackedTx) Commit(ctx context.Context) error {
	// remove id from tracking
	delete(openTransactions, t.id)
	return t.tx.Commit(ctx)
}

// Rollback rolls back the transaction. Rollback will return ErrTxClosed if the Tx is already closed,
// but is otherwise safe to call multiple times. Hence, a defer tx.Rollback() is safe even if
// tx.Commit() will be called first in a non-error condition.
func (t *TrackedTx) Rollback(ctx context.Context) error {
	delete(openTransactions, t.id)
	return t.tx.Rollback(ctx)
}

func (t *TrackedTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return t.tx.CopyFrom(ctx, tableName, columnNames, rowSrc)
}

func (t *TrackedTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return t.tx.SendBatch(ctx, b)
}

func (t *TrackedTx) LargeObjects() pgx.LargeObjects {
	return t.tx.LargeObjects()
}

func (t *TrackedTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return t.tx.Prepare(ctx, name, sql)
}

func (t *TrackedTx) Exec(ctx context.Context, sql string, arguments ...interface{}) (commandTag pgconn.CommandTag, err error) {
	return t.tx.Exec(ctx, sql, arguments...)
}

func (t *TrackedTx) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t *TrackedTx) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *TrackedTx) QueryFunc(ctx context.Context, sql string, args []interface{}, scans []interface{}, f func(pgx.QueryFuncRow) error) (pgconn.CommandTag, error) {
	return t.tx.QueryFunc(ctx, sql, args, scans, f)
}

// Conn returns the underlying *Conn that on which this transaction is executing.
func (t *TrackedTx) Conn() *pgx.Conn {
	return t.tx.Conn()
}
