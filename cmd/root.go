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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qiuqiuaiweb3/trading-agents/pkginfo"
)

var Profile bool
var Trace bool

func init() {
	// Massive API
	viper.BindEnv("massive.api_key", "MASSIVE_API_KEY")
	rootCmd.PersistentFlags().String("massive-api-key", "", "Massive API key")
	viper.BindPFlag("massive.api_key", rootCmd.PersistentFlags().Lookup("massive-api-key"))

	viper.BindEnv("massive.base_url", "MASSIVE_BASE_URL")
	rootCmd.PersistentFlags().String("massive-base-url", "", "Massive API base URL")
	viper.BindPFlag("massive.base_url", rootCmd.PersistentFlags().Lookup("massive-base-url"))

	// Database
	viper.BindEnv("database.url", "DATABASE_URL")
	rootCmd.PersistentFlags().String("database-url", "", "PostgreSQL connection string")
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))

	// Ticker universe
	viper.BindEnv("tickers.file", "TICKERS_FILE")
	rootCmd.PersistentFlags().String("tickers-file", "", "File listing the ticker universe, one symbol per line")
	viper.BindPFlag("tickers.file", rootCmd.PersistentFlags().Lookup("tickers-file"))

	// Market schedule
	viper.BindEnv("market.timezone", "MARKET_TIMEZONE")
	viper.BindEnv("market.hours.pre_open", "MARKET_HOURS_PRE_OPEN")
	viper.BindEnv("market.hours.pre_close", "MARKET_HOURS_PRE_CLOSE")
	viper.BindEnv("market.hours.reg_open", "MARKET_HOURS_REG_OPEN")
	viper.BindEnv("market.hours.reg_close", "MARKET_HOURS_REG_CLOSE")
	viper.BindEnv("market.hours.af_open", "MARKET_HOURS_AF_OPEN")
	viper.BindEnv("market.hours.af_close", "MARKET_HOURS_AF_CLOSE")
	viper.BindEnv("calendar.refresh_schedule", "CALENDAR_REFRESH_SCHEDULE")

	// Logging configuration
	viper.BindEnv("log.level", "TA_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	viper.BindEnv("log.report_caller", "TA_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	viper.BindPFlag("log.report_caller", rootCmd.PersistentFlags().Lookup("log-report-caller"))

	viper.BindEnv("log.output", "TA_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stdout", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	viper.BindPFlag("log.output", rootCmd.PersistentFlags().Lookup("log-output"))

	viper.BindEnv("log.pretty", "TA_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "Print logs in human readable form")
	viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))

	viper.BindEnv("log.loki_url", "LOKI_URL")
	rootCmd.PersistentFlags().String("log-loki-url", "", "Loki server to send log messages to, if blank don't send to Loki")
	viper.BindPFlag("log.loki_url", rootCmd.PersistentFlags().Lookup("log-loki-url"))

	// Tracing
	viper.BindEnv("otlp.endpoint", "OTLP_ENDPOINT")
	rootCmd.PersistentFlags().String("otlp-endpoint", "", "OTLP trace collector endpoint, if blank tracing is disabled")
	viper.BindPFlag("otlp.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))

	viper.BindEnv("otlp.http", "OTLP_HTTP")

	rootCmd.PersistentFlags().BoolVar(&Profile, "cpu-profile", false, "Run pprof and save in profile.out")
	rootCmd.PersistentFlags().BoolVar(&Trace, "trace", false, "Trace program execution and save in trace.out")
}

var rootCmd = &cobra.Command{
	Use:     "trading-agents",
	Version: pkginfo.Version,
	Short:   "trading-agents collects intraday market data",
	Long: `A continuously running service that polls the Massive market data API
for equity trades and quotes and stores them in PostgreSQL.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
