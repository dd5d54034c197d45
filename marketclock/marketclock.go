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

// Package marketclock classifies instants into trading phases. Phase
// arithmetic happens in the configured market timezone; calendar
// overrides (holidays, early closes) are cached in memory and refreshed
// from the database on a schedule.
package marketclock

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/qiuqiuaiweb3/trading-agents/calendar"
	"github.com/qiuqiuaiweb3/trading-agents/config"
	"github.com/qiuqiuaiweb3/trading-agents/database"
)

type Phase string

const (
	Closed     Phase = "closed"
	PreMarket  Phase = "pre_market"
	Regular    Phase = "regular"
	AfterHours Phase = "after_hours"
)

type Clock struct {
	hours config.MarketHours
	tz    *time.Location

	// calendar cache keyed by midnight of the local date; the scheduled
	// refresh is the single writer
	lock    sync.RWMutex
	entries map[int64]*calendar.Entry
}

func New(cfg *config.Config) *Clock {
	return &Clock{
		hours:   cfg.Hours,
		tz:      cfg.MarketTZ,
		entries: make(map[int64]*calendar.Entry),
	}
}

// Now returns the current instant in the market timezone
func (clock *Clock) Now() time.Time {
	return time.Now().In(clock.tz)
}

// Hours returns the configured daily phase schedule
func (clock *Clock) Hours() config.MarketHours {
	return clock.hours
}

// Timezone returns the market timezone the clock operates in
func (clock *Clock) Timezone() *time.Location {
	return clock.tz
}

func (clock *Clock) entryFor(t time.Time) *calendar.Entry {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, clock.tz)
	clock.lock.RLock()
	defer clock.lock.RUnlock()
	return clock.entries[midnight.Unix()]
}

// PhaseAt classifies t into a trading phase. t is converted to the
// market timezone first; calendar overrides win over the regular
// weekday schedule. An early close ends the regular session at the
// entry's close time and the day has no after-hours; an early-close row
// without a close time falls through to the regular rules.
func (clock *Clock) PhaseAt(t time.Time) Phase {
	t = t.In(clock.tz)
	tod := config.TimeOfDayFromTime(t)

	if entry := clock.entryFor(t); entry != nil {
		switch entry.Status {
		case calendar.StatusClosed:
			return Closed
		case calendar.StatusEarlyClose:
			if entry.HasCloseTime() {
				switch {
				case tod >= clock.hours.PreOpen && tod < clock.hours.RegOpen:
					return PreMarket
				case tod >= clock.hours.RegOpen && tod < entry.CloseTime:
					return Regular
				default:
					return Closed
				}
			}
		}
	}

	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return Closed
	}

	switch {
	case tod >= clock.hours.PreOpen && tod < clock.hours.RegOpen:
		return PreMarket
	case tod >= clock.hours.RegOpen && tod < clock.hours.RegClose:
		return Regular
	case tod >= clock.hours.AfOpen && tod < clock.hours.AfClose:
		return AfterHours
	}
	return Closed
}

// CurrentPhase classifies the current instant
func (clock *Clock) CurrentPhase() Phase {
	return clock.PhaseAt(clock.Now())
}

// IsOpen reports whether the market is open at t. With includeExtended
// any of pre-market, regular or after-hours counts; without it only the
// regular session does.
func (clock *Clock) IsOpen(t time.Time, includeExtended bool) bool {
	phase := clock.PhaseAt(t)
	if !includeExtended {
		return phase == Regular
	}
	return phase == PreMarket || phase == Regular || phase == AfterHours
}

// IsOpenNow applies IsOpen to the current instant
func (clock *Clock) IsOpenNow(includeExtended bool) bool {
	return clock.IsOpen(clock.Now(), includeExtended)
}

// IsTradingDay reports whether the date of t is neither a weekend nor a
// calendar-closed day. Early-close days are trading days.
func (clock *Clock) IsTradingDay(t time.Time) bool {
	t = t.In(clock.tz)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	if entry := clock.entryFor(t); entry != nil && entry.Status == calendar.StatusClosed {
		return false
	}
	return true
}

func (clock *Clock) at(day time.Time, tod config.TimeOfDay) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, clock.tz)
}

// NextOpenFrom returns the first pre-market open after t, skipping
// weekends and calendar-closed days.
func (clock *Clock) NextOpenFrom(t time.Time) time.Time {
	t = t.In(clock.tz)
	todayOpen := clock.at(t, clock.hours.PreOpen)
	if t.Before(todayOpen) && clock.IsTradingDay(t) {
		return todayOpen
	}

	day := t.AddDate(0, 0, 1)
	for !clock.IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return clock.at(day, clock.hours.PreOpen)
}

// TimeUntilNextOpen is the duration from now to the next pre-market
// open; used for the sleep strategy while the market is closed.
func (clock *Clock) TimeUntilNextOpen() time.Duration {
	now := clock.Now()
	return clock.NextOpenFrom(now).Sub(now)
}

// PreloadCalendar replaces the calendar cache with entries in
// [from, to]. Failure to load is logged and leaves the existing cache
// in place; with an empty cache the clock degrades to the regular
// weekday schedule.
func (clock *Clock) PreloadCalendar(ctx context.Context, from time.Time, to time.Time) {
	subLog := log.With().Time("From", from).Time("To", to).Logger()

	trx, err := database.Trx(ctx)
	if err != nil {
		subLog.Error().Stack().Err(err).Msg("could not begin market calendar transaction, continuing without special days")
		return
	}

	entries, err := calendar.Load(ctx, trx, from, to)
	if err != nil {
		if err := trx.Rollback(ctx); err != nil {
			subLog.Error().Stack().Err(err).Msg("could not rollback transaction")
		}
		subLog.Error().Stack().Err(err).Msg("could not load market calendar, continuing without special days")
		return
	}
	if err := trx.Commit(ctx); err != nil {
		subLog.Error().Stack().Err(err).Msg("could not commit transaction")
	}

	cache := make(map[int64]*calendar.Entry, len(entries))
	for _, entry := range entries {
		midnight := time.Date(entry.Date.Year(), entry.Date.Month(), entry.Date.Day(), 0, 0, 0, 0, clock.tz)
		cache[midnight.Unix()] = entry
	}

	clock.lock.Lock()
	clock.entries = cache
	clock.lock.Unlock()

	subLog.Info().Int("NumEntries", len(cache)).Msg("loaded market calendar")
}

// RefreshCalendar reloads the cache over the default range, today
// through 1 January of next year.
func (clock *Clock) RefreshCalendar(ctx context.Context) {
	now := clock.Now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, clock.tz)
	to := time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, clock.tz)
	clock.PreloadCalendar(ctx, from, to)
}
