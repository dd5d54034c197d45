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

// Package config builds the typed process configuration from viper. Load
// is called once at startup; the resulting Config is passed through
// constructors and never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

var (
	ErrMissingKey      = errors.New("required configuration key is not set")
	ErrInvalidTimezone = errors.New("could not load market timezone")
	ErrInvalidSchedule = errors.New("invalid calendar refresh schedule")
	ErrInvalidInterval = errors.New("collect interval must be positive")
)

const (
	DefaultBaseURL     = "https://api.massive.com/v3"
	DefaultTickersFile = "nasdaq100.txt"
	DefaultTimezone    = "America/New_York"
	DefaultRefresh     = "30 3 * * *"
)

type Config struct {
	// MassiveAPIKey authenticates every vendor request (apiKey query param)
	MassiveAPIKey  string
	MassiveBaseURL string

	DatabaseURL string

	TickersFile string

	// CollectInterval is the sleep between cycles while the market is open
	CollectInterval time.Duration

	// MarketTZ is the zone all phase arithmetic happens in
	MarketTZ *time.Location

	Hours MarketHours

	// CalendarRefreshSchedule is a standard cron expression evaluated in
	// MarketTZ that re-reads the market_calendar cache
	CalendarRefreshSchedule string

	// ServerPort is the status server listen port; 0 disables the server
	ServerPort int
}

func init() {
	viper.SetDefault("massive.base_url", DefaultBaseURL)
	viper.SetDefault("tickers.file", DefaultTickersFile)
	viper.SetDefault("collect.interval_seconds", 60)
	viper.SetDefault("market.timezone", DefaultTimezone)
	viper.SetDefault("market.hours.pre_open", "04:00")
	viper.SetDefault("market.hours.pre_close", "09:30")
	viper.SetDefault("market.hours.reg_open", "09:30")
	viper.SetDefault("market.hours.reg_close", "16:00")
	viper.SetDefault("market.hours.af_open", "16:00")
	viper.SetDefault("market.hours.af_close", "20:00")
	viper.SetDefault("calendar.refresh_schedule", DefaultRefresh)
	viper.SetDefault("server.port", 3000)
}

// Load reads the recognized viper keys into a validated Config
func Load() (*Config, error) {
	cfg := &Config{
		MassiveAPIKey:           viper.GetString("massive.api_key"),
		MassiveBaseURL:          viper.GetString("massive.base_url"),
		DatabaseURL:             viper.GetString("database.url"),
		TickersFile:             viper.GetString("tickers.file"),
		CollectInterval:         time.Duration(viper.GetInt("collect.interval_seconds")) * time.Second,
		CalendarRefreshSchedule: viper.GetString("calendar.refresh_schedule"),
		ServerPort:              viper.GetInt("server.port"),
	}

	if cfg.MassiveAPIKey == "" {
		return nil, fmt.Errorf("%w: massive.api_key", ErrMissingKey)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: database.url", ErrMissingKey)
	}
	if cfg.CollectInterval <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.CollectInterval)
	}

	tz, err := time.LoadLocation(viper.GetString("market.timezone"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, viper.GetString("market.timezone"))
	}
	cfg.MarketTZ = tz

	hours, err := loadHours()
	if err != nil {
		return nil, err
	}
	if err := hours.Validate(); err != nil {
		return nil, err
	}
	cfg.Hours = hours

	if _, err := cron.ParseStandard(cfg.CalendarRefreshSchedule); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchedule, cfg.CalendarRefreshSchedule)
	}

	return cfg, nil
}

func loadHours() (MarketHours, error) {
	var hours MarketHours
	for key, dest := range map[string]*TimeOfDay{
		"market.hours.pre_open":  &hours.PreOpen,
		"market.hours.pre_close": &hours.PreClose,
		"market.hours.reg_open":  &hours.RegOpen,
		"market.hours.reg_close": &hours.RegClose,
		"market.hours.af_open":   &hours.AfOpen,
		"market.hours.af_close":  &hours.AfClose,
	} {
		tod, err := ParseTimeOfDay(viper.GetString(key))
		if err != nil {
			return hours, fmt.Errorf("%s: %w", key, err)
		}
		*dest = tod
	}
	return hours, nil
}
