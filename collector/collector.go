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

// Package collector drives one collection pass over the ticker universe,
// fetching the current day's trades and quotes from Massive and writing
// them to the database.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/qiuqiuaiweb3/trading-agents/config"
	"github.com/qiuqiuaiweb3/trading-agents/database"
	"github.com/qiuqiuaiweb3/trading-agents/marketclock"
	"github.com/qiuqiuaiweb3/trading-agents/massive"
	"github.com/qiuqiuaiweb3/trading-agents/observability/opentelemetry"
	"github.com/qiuqiuaiweb3/trading-agents/ticks"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// GracePeriodMinutes extends collection past the end of after-hours
	// trading to capture trades the TRF reports late
	GracePeriodMinutes = 15

	// perTickerCap bounds how many records a single cycle fetches per
	// ticker and data type; alongside the descending sort this keeps a
	// cycle to the most recent records
	perTickerCap = 2000

	pageSize = 1000
)

// CycleStats summarizes the most recent collection cycle
type CycleStats struct {
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	Tickers         int       `json:"tickers"`
	Trades          int64     `json:"trades"`
	Quotes          int64     `json:"quotes"`
	Errors          int       `json:"errors"`
}

// TickerStats reports what a single ticker contributed to a cycle
type TickerStats struct {
	Trades int64
	Quotes int64
	Failed bool
}

// Collector fetches tick data for a fixed ticker universe. It is driven
// by an outer loop calling RunCycle at the collection interval.
type Collector struct {
	cfg     *config.Config
	clock   *marketclock.Clock
	tickers []string

	lock      sync.RWMutex
	lastCycle CycleStats
}

// New creates a collector over the given universe
func New(cfg *config.Config, clock *marketclock.Clock, tickers []string) *Collector {
	return &Collector{
		cfg:     cfg,
		clock:   clock,
		tickers: tickers,
	}
}

// LastCycle returns statistics for the most recently completed cycle
func (c *Collector) LastCycle() CycleStats {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.lastCycle
}

// ShouldRun reports whether a collection cycle should run right now
func (c *Collector) ShouldRun() bool {
	return c.ShouldRunAt(c.clock.Now())
}

// ShouldRunAt reports whether a collection cycle should run at instant t.
// Collection runs whenever the market is open, extended sessions
// included, and during the grace window that follows the end of
// after-hours trading on a trading day.
func (c *Collector) ShouldRunAt(t time.Time) bool {
	if c.clock.IsOpen(t, true) {
		return true
	}

	if !c.clock.IsTradingDay(t) {
		return false
	}

	tod := config.TimeOfDayFromTime(t.In(c.clock.Timezone()))
	afClose := c.clock.Hours().AfClose
	return tod >= afClose && tod < afClose.AddMinutes(GracePeriodMinutes)
}

// RunCycle performs one pass over the ticker universe. When the market is
// closed and the grace window has passed the cycle is skipped.
func (c *Collector) RunCycle(ctx context.Context) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "collector.RunCycle")
	defer span.End()

	if !c.ShouldRun() {
		log.Info().Msg("market is closed and outside the grace period; skipping cycle")
		return
	}

	log.Info().Int("NumTickers", len(c.tickers)).Msg("starting collection cycle")
	span.SetAttributes(attribute.KeyValue{
		Key:   "NumTickers",
		Value: attribute.IntValue(len(c.tickers)),
	})

	stats := CycleStats{
		StartedAt: time.Now(),
		Tickers:   len(c.tickers),
	}

	client := massive.NewClient(c.cfg.MassiveAPIKey, c.cfg.MassiveBaseURL)
	defer client.Close()

	for _, ticker := range c.tickers {
		tickerStats := c.CollectTicker(ctx, client, ticker)
		stats.Trades += tickerStats.Trades
		stats.Quotes += tickerStats.Quotes
		if tickerStats.Failed {
			stats.Errors++
		}
	}

	stats.DurationSeconds = time.Since(stats.StartedAt).Seconds()

	c.lock.Lock()
	c.lastCycle = stats
	c.lock.Unlock()

	log.Info().
		Float64("DurationSeconds", stats.DurationSeconds).
		Int64("NumTrades", stats.Trades).
		Int64("NumQuotes", stats.Quotes).
		Int("NumErrors", stats.Errors).
		Msg("cycle completed")
}

// CollectTicker fetches the current day's trades and quotes for a single
// ticker and persists each batch in its own transaction. Errors are
// logged and contained so a failing ticker cannot starve the rest of the
// universe.
func (c *Collector) CollectTicker(ctx context.Context, client *massive.Client, ticker string) TickerStats {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "collector.CollectTicker")
	defer span.End()
	span.SetAttributes(attribute.KeyValue{
		Key:   "Ticker",
		Value: attribute.StringValue(ticker),
	})

	subLog := log.With().Str("Ticker", ticker).Logger()
	stats := TickerStats{}

	// request the most recent records first so the per-ticker cap trims
	// the oldest, already-collected end of the day
	params := &massive.ListParams{
		Date:  c.clock.Now().Format("2006-01-02"),
		Limit: pageSize,
		Order: "desc",
	}

	trades := make([]*massive.Trade, 0, perTickerCap)
	tradeIter := client.ListTrades(ctx, ticker, params)
	for tradeIter.Next() {
		trades = append(trades, tradeIter.Trade())
		if len(trades) >= perTickerCap {
			break
		}
	}
	if err := tradeIter.Err(); err != nil {
		span.SetStatus(codes.Error, "trade fetch failed")
		subLog.Error().Err(err).Msg("error collecting trades")
		stats.Failed = true
		return stats
	}

	if len(trades) > 0 {
		count, err := c.saveTrades(ctx, ticker, trades)
		if err != nil {
			span.SetStatus(codes.Error, "trade save failed")
			subLog.Error().Err(err).Msg("error saving trades")
			stats.Failed = true
			return stats
		}
		stats.Trades = count
	}

	quotes := make([]*massive.Quote, 0, perTickerCap)
	quoteIter := client.ListQuotes(ctx, ticker, params)
	for quoteIter.Next() {
		quotes = append(quotes, quoteIter.Quote())
		if len(quotes) >= perTickerCap {
			break
		}
	}
	if err := quoteIter.Err(); err != nil {
		span.SetStatus(codes.Error, "quote fetch failed")
		subLog.Error().Err(err).Msg("error collecting quotes")
		stats.Failed = true
		return stats
	}

	if len(quotes) > 0 {
		count, err := c.saveQuotes(ctx, ticker, quotes)
		if err != nil {
			span.SetStatus(codes.Error, "quote save failed")
			subLog.Error().Err(err).Msg("error saving quotes")
			stats.Failed = true
			return stats
		}
		stats.Quotes = count
	}

	subLog.Debug().
		Int("NumTrades", len(trades)).
		Int("NumQuotes", len(quotes)).
		Msg("collected ticker")

	return stats
}

func (c *Collector) saveTrades(ctx context.Context, ticker string, trades []*massive.Trade) (int64, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not create database transaction")
		return 0, err
	}

	count, err := ticks.SaveTrades(ctx, trx, ticker, trades)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return 0, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("failed to commit trade transaction")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return 0, err
	}

	return count, nil
}

func (c *Collector) saveQuotes(ctx context.Context, ticker string, quotes []*massive.Quote) (int64, error) {
	trx, err := database.Trx(ctx)
	if err != nil {
		log.Error().Stack().Err(err).Msg("could not create database transaction")
		return 0, err
	}

	count, err := ticks.SaveQuotes(ctx, trx, ticker, quotes)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return 0, err
	}

	if err := trx.Commit(ctx); err != nil {
		log.Error().Stack().Err(err).Msg("failed to commit quote transaction")
		if err := trx.Rollback(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		return 0, err
	}

	return count, nil
}
