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

	"github.com/rs/zerolog/log"
)

// schemaStatements create the tick tables and calendar table when they do
// not already exist. Hypertable conversion and retention policies are
// managed outside the process.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS trades (
		id BIGSERIAL PRIMARY KEY,
		time TIMESTAMPTZ NOT NULL,
		ticker VARCHAR(16) NOT NULL,
		price NUMERIC NOT NULL,
		size NUMERIC NOT NULL,
		exchange INT,
		conditions INT[],
		correction INT,
		tape INT,
		trf_id INT,
		trf_timestamp BIGINT,
		participant_timestamp BIGINT,
		massive_trade_id VARCHAR(64),
		sequence_number BIGINT,
		CONSTRAINT uq_trades_unique_trade UNIQUE (time, ticker, massive_trade_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_time ON trades (time)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades (ticker)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_sequence_number ON trades (sequence_number)`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id BIGSERIAL PRIMARY KEY,
		time TIMESTAMPTZ NOT NULL,
		ticker VARCHAR(16) NOT NULL,
		bid_price NUMERIC,
		bid_size NUMERIC,
		bid_exchange INT,
		ask_price NUMERIC,
		ask_size NUMERIC,
		ask_exchange INT,
		conditions INT[],
		indicators INT[],
		participant_timestamp BIGINT,
		sequence_number BIGINT,
		tape INT,
		CONSTRAINT uq_quotes_unique_quote UNIQUE (time, ticker, sequence_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_time ON quotes (time)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_ticker ON quotes (ticker)`,
	`CREATE INDEX IF NOT EXISTS idx_quotes_sequence_number ON quotes (sequence_number)`,
	`CREATE TABLE IF NOT EXISTS market_calendar (
		date DATE PRIMARY KEY,
		status VARCHAR(32) NOT NULL,
		open_time TIME,
		close_time TIME,
		description TEXT
	)`,
}

// EnsureSchema creates any missing tables and indexes. Safe to run on
// every startup.
func EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Error().Stack().Err(err).Str("Query", stmt).Msg("could not apply schema statement")
			return err
		}
	}
	log.Debug().Msg("database schema verified")
	return nil
}
