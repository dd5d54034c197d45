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

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog/log"
)

// types

type PgxIface interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Ping(context.Context) error
}

// Private

var pool PgxIface
var openTransactions map[string]string

// Public

func SetPool(myPool PgxIface) {
	openTransactions = make(map[string]string)
	pool = myPool
}

// Connect opens the process-wide connection pool and verifies
// connectivity with a ping
func Connect(ctx context.Context, databaseURL string) error {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not parse database url")
		return err
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	myPool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not connect to pool")
		return err
	}
	if err = myPool.Ping(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("could not ping database server")
		return err
	}
	SetPool(myPool)
	return nil
}

// LogOpenTransactions writes an INFO log for each open transaction
func LogOpenTransactions() {
	for k, v := range openTransactions {
		log.Info().Str("TrxId", k).Str("Caller", v).Msg("open transaction")
	}
}

// Trx begins a transaction on the pool. Transactions are tracked in the
// openTransactions map until they commit or roll back so leaks show up
// in LogOpenTransactions.
func Trx(ctx context.Context) (pgx.Tx, error) {
	trx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}

	// record transactions in openTransaction log
	_, file, lineno, ok := runtime.Caller(1)
	caller := fmt.Sprintf("[%v] %s:%d", ok, file, lineno)
	trxID := uuid.New().String()
	openTransactions[trxID] = caller

	return &TrackedTx{
		id: trxID,
		tx: trx,
	}, nil
}
