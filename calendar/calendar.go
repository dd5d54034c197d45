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

// Package calendar reads special trading-day records from the
// market_calendar table. Rows are populated externally (holiday feeds,
// manual overrides); this package only queries them.
package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog/log"

	"github.com/qiuqiuaiweb3/trading-agents/config"
)

const (
	StatusOpen       = "open"
	StatusClosed     = "closed"
	StatusEarlyClose = "early_close"
)

// TimeUnset marks an absent open_time / close_time column
const TimeUnset = config.TimeOfDay(-1)

type Entry struct {
	Date        time.Time
	Status      string
	OpenTime    config.TimeOfDay
	CloseTime   config.TimeOfDay
	Description string
}

// HasCloseTime reports whether the row carried a close_time
func (e *Entry) HasCloseTime() bool {
	return e.CloseTime != TimeUnset
}

// Load returns all calendar entries with dates in [from, to]. TIME
// columns are read as HHMM integers; NULL becomes TimeUnset.
func Load(ctx context.Context, trx pgx.Tx, from time.Time, to time.Time) ([]*Entry, error) {
	sql := `SELECT date, status,
		COALESCE(extract(hours from open_time)::int * 100 + extract(minutes from open_time)::int, -1) AS open_time,
		COALESCE(extract(hours from close_time)::int * 100 + extract(minutes from close_time)::int, -1) AS close_time,
		COALESCE(description, '') AS description
	FROM market_calendar
	WHERE date BETWEEN $1 AND $2
	ORDER BY date ASC`

	rows, err := trx.Query(ctx, sql, from, to)
	if err != nil {
		log.Error().Stack().Err(err).Str("Query", sql).Msg("could not query market calendar")
		return nil, fmt.Errorf("could not query market calendar: %w", err)
	}

	entries := make([]*Entry, 0, 16)
	for rows.Next() {
		var entry Entry
		var openTime, closeTime int
		if err := rows.Scan(&entry.Date, &entry.Status, &openTime, &closeTime, &entry.Description); err != nil {
			log.Error().Stack().Err(err).Msg("could not scan market calendar row")
			return nil, fmt.Errorf("could not scan market calendar row: %w", err)
		}
		entry.OpenTime = config.TimeOfDay(openTime)
		entry.CloseTime = config.TimeOfDay(closeTime)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		log.Error().Stack().Err(err).Msg("market calendar read failed")
		return nil, fmt.Errorf("market calendar read failed: %w", err)
	}

	return entries, nil
}
