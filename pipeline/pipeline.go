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

// Package pipeline assembles the long-running collection service: it
// connects the database, warms the market calendar, schedules the nightly
// calendar refresh, serves the status endpoints and drives the collector
// until the process is told to stop.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/qiuqiuaiweb3/trading-agents/collector"
	"github.com/qiuqiuaiweb3/trading-agents/config"
	"github.com/qiuqiuaiweb3/trading-agents/database"
	"github.com/qiuqiuaiweb3/trading-agents/marketclock"
	"github.com/qiuqiuaiweb3/trading-agents/server"
	"github.com/qiuqiuaiweb3/trading-agents/universe"
)

const (
	// errorBackoff is how long the loop pauses after an unexpected failure
	errorBackoff = 10 * time.Second

	// maxIdleSleep caps how long the loop sleeps while the market is
	// closed so calendar refreshes are picked up within the hour
	maxIdleSleep = time.Hour
)

// Driver owns every component of the collection service
type Driver struct {
	cfg       *config.Config
	clock     *marketclock.Clock
	collector *collector.Collector
	scheduler *gocron.Scheduler
	app       *fiber.App
	tickers   []string
}

// New connects the backing services and assembles the pipeline. Startup
// failures are fatal; a calendar cache that cannot be warmed is not and
// only costs holiday awareness until the next refresh.
func New(ctx context.Context, cfg *config.Config) (*Driver, error) {
	if err := database.Connect(ctx, cfg.DatabaseURL); err != nil {
		return nil, err
	}
	if err := database.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	tickers, err := universe.Load(cfg.TickersFile)
	if err != nil {
		return nil, err
	}

	clock := marketclock.New(cfg)
	clock.RefreshCalendar(ctx)

	coll := collector.New(cfg, clock, tickers)

	scheduler := gocron.NewScheduler(cfg.MarketTZ)
	_, err = scheduler.Cron(cfg.CalendarRefreshSchedule).Do(func() {
		clock.RefreshCalendar(context.Background())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule calendar refresh: %w", err)
	}

	var app *fiber.App
	if cfg.ServerPort > 0 {
		app = server.New(clock, coll, len(tickers))
	}

	return &Driver{
		cfg:       cfg,
		clock:     clock,
		collector: coll,
		scheduler: scheduler,
		app:       app,
		tickers:   tickers,
	}, nil
}

// Run drives collection cycles until an interrupt or terminate signal
// arrives, then shuts the scheduler and status server down
func (d *Driver) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// shutdown cleanly on interrupt
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		sig := <-sigs // block until signal is read
		log.Info().Str("Signal", sig.String()).Msg("received signal; shutting down")
		cancel()
	}()

	d.scheduler.StartAsync()

	if d.app != nil {
		go func() {
			if err := d.app.Listen(fmt.Sprintf(":%d", d.cfg.ServerPort)); err != nil {
				log.Error().Stack().Err(err).Msg("status server exited")
			}
		}()
	}

	log.Info().
		Int("NumTickers", len(d.tickers)).
		Dur("Interval", d.cfg.CollectInterval).
		Msg("data collector started")

	for ctx.Err() == nil {
		if err := d.runOnce(ctx); err != nil {
			log.Error().Stack().Err(err).Msg("unexpected error in collection loop")
			sleepCtx(ctx, errorBackoff)
		}
	}

	d.scheduler.Stop()
	if d.app != nil {
		if err := d.app.Shutdown(); err != nil {
			log.Error().Stack().Err(err).Msg("error shutting down status server")
		}
	}
	database.LogOpenTransactions()

	log.Info().Msg("stopped gracefully")
	return nil
}

// runOnce performs a single pass of the collection loop: run a cycle and
// pause, or sleep until the market is next worth polling. A panic escaping
// the cycle is converted to an error so one bad pass cannot take the
// process down.
func (d *Driver) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collection cycle panicked: %v", r)
		}
	}()

	if d.collector.ShouldRun() {
		d.collector.RunCycle(ctx)
		sleepCtx(ctx, d.cfg.CollectInterval)
		return nil
	}

	wait := idleWait(d.clock.TimeUntilNextOpen())
	log.Info().
		Time("NextOpen", d.clock.NextOpenFrom(d.clock.Now())).
		Dur("Sleep", wait).
		Msg("market is closed; sleeping")
	sleepCtx(ctx, wait)
	return nil
}

// idleWait clamps the time until the next market open to the idle-loop
// sleep bounds. The one hour ceiling lets the loop pick up calendar
// changes well before a multi-day closure ends; the one second floor
// avoids busy-waiting right at the open.
func idleWait(untilOpen time.Duration) time.Duration {
	if untilOpen > maxIdleSleep {
		return maxIdleSleep
	}
	if untilOpen < time.Second {
		return time.Second
	}
	return untilOpen
}

// sleepCtx pauses for dur but returns as soon as ctx is canceled
func sleepCtx(ctx context.Context, dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
