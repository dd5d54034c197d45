// Copyright 2025-2026
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ticks persists trade and quote records to the database
package ticks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/qiuqiuaiweb3/trading-agents/massive"
	"github.com/rs/zerolog/log"
)

const (
	tradeCols = 13
	quoteCols = 13
)

const tradeSQL = `
	INSERT INTO trades (
		"time",
		"ticker",
		"price",
		"size",
		"exchange",
		"conditions",
		"correction",
		"tape",
		"trf_id",
		"trf_timestamp",
		"participant_timestamp",
		"massive_trade_id",
		"sequence_number"
	) VALUES %s
	ON CONFLICT ON CONSTRAINT uq_trades_unique_trade DO NOTHING`

const quoteSQL = `
	INSERT INTO quotes (
		"time",
		"ticker",
		"bid_price",
		"bid_size",
		"bid_exchange",
		"ask_price",
		"ask_size",
		"ask_exchange",
		"conditions",
		"indicators",
		"participant_timestamp",
		"sequence_number",
		"tape"
	) VALUES %s
	ON CONFLICT ON CONSTRAINT uq_quotes_unique_quote DO NOTHING`

// NanosToUTC converts a nanosecond unix timestamp, the format the Massive
// API reports all event times in, to a UTC time.Time
func NanosToUTC(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// SaveTrades writes a batch of trades for the given ticker using the
// supplied transaction. Records without a SIP timestamp are dropped.
// Records already present in the database are ignored via the unique
// constraint on (time, ticker, massive_trade_id); the returned count only
// reflects rows actually written. The caller owns the transaction and is
// responsible for commit or rollback.
func SaveTrades(ctx context.Context, trx pgx.Tx, ticker string, trades []*massive.Trade) (int64, error) {
	if len(trades) == 0 {
		return 0, nil
	}

	subLog := log.With().Str("Ticker", ticker).Logger()

	valueClauses := make([]string, 0, len(trades))
	args := make([]interface{}, 0, len(trades)*tradeCols)
	dropped := 0

	for _, trade := range trades {
		if trade.SIPTimestamp == nil {
			dropped++
			continue
		}

		valueClauses = append(valueClauses, placeholderGroup(len(args), tradeCols))
		args = append(args,
			NanosToUTC(*trade.SIPTimestamp),
			ticker,
			trade.Price,
			trade.Size,
			trade.Exchange,
			trade.Conditions,
			trade.Correction,
			trade.Tape,
			trade.TrfID,
			trade.TrfTimestamp,
			trade.ParticipantTimestamp,
			trade.ID,
			trade.SequenceNumber,
		)
	}

	if dropped > 0 {
		subLog.Debug().Int("NumDropped", dropped).Msg("dropping trades without a sip timestamp")
	}
	if len(valueClauses) == 0 {
		return 0, nil
	}

	tag, err := trx.Exec(ctx, fmt.Sprintf(tradeSQL, strings.Join(valueClauses, ", ")), args...)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to save trades")
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// SaveQuotes writes a batch of quotes for the given ticker using the
// supplied transaction. Records without a SIP timestamp are dropped.
// Records already present in the database are ignored via the unique
// constraint on (time, ticker, sequence_number); the returned count only
// reflects rows actually written. The caller owns the transaction and is
// responsible for commit or rollback.
func SaveQuotes(ctx context.Context, trx pgx.Tx, ticker string, quotes []*massive.Quote) (int64, error) {
	if len(quotes) == 0 {
		return 0, nil
	}

	subLog := log.With().Str("Ticker", ticker).Logger()

	valueClauses := make([]string, 0, len(quotes))
	args := make([]interface{}, 0, len(quotes)*quoteCols)
	dropped := 0

	for _, quote := range quotes {
		if quote.SIPTimestamp == nil {
			dropped++
			continue
		}

		valueClauses = append(valueClauses, placeholderGroup(len(args), quoteCols))
		args = append(args,
			NanosToUTC(*quote.SIPTimestamp),
			ticker,
			quote.BidPrice,
			quote.BidSize,
			quote.BidExchange,
			quote.AskPrice,
			quote.AskSize,
			quote.AskExchange,
			quote.Conditions,
			quote.Indicators,
			quote.ParticipantTimestamp,
			quote.SequenceNumber,
			quote.Tape,
		)
	}

	if dropped > 0 {
		subLog.Debug().Int("NumDropped", dropped).Msg("dropping quotes without a sip timestamp")
	}
	if len(valueClauses) == 0 {
		return 0, nil
	}

	tag, err := trx.Exec(ctx, fmt.Sprintf(quoteSQL, strings.Join(valueClauses, ", ")), args...)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("failed to save quotes")
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func placeholderGroup(offset int, n int) string {
	placeholders := make([]string, n)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", offset+i+1)
	}
	return "(" + strings.Join(placeholders, ", ") + ")"
}
