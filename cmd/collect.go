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
	"context"
	"os"
	"runtime/pprof"
	"runtime/trace"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qiuqiuaiweb3/trading-agents/common"
	"github.com/qiuqiuaiweb3/trading-agents/config"
	"github.com/qiuqiuaiweb3/trading-agents/observability/opentelemetry"
	"github.com/qiuqiuaiweb3/trading-agents/pipeline"
)

func init() {
	viper.BindEnv("server.port", "PORT")
	collectCmd.Flags().IntP("port", "p", 3000, "Port to run the status server on, 0 disables it")
	viper.BindPFlag("server.port", collectCmd.Flags().Lookup("port"))

	viper.BindEnv("collect.interval_seconds", "COLLECT_INTERVAL_SECONDS")
	collectCmd.Flags().Int("interval", 60, "Seconds to pause between collection cycles")
	viper.BindPFlag("collect.interval_seconds", collectCmd.Flags().Lookup("interval"))

	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run the market data collection service",
	Long: `Continuously poll the Massive API for trades and quotes of every ticker
in the configured universe and store them in PostgreSQL. Polling follows
the market calendar and pauses while the market is closed.`,
	Run: func(cmd *cobra.Command, args []string) {
		if Profile {
			f, err := os.Create("profile.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create profile output file")
			}
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		if Trace {
			f, err := os.Create("trace.out")
			if err != nil {
				log.Fatal().Err(err).Msg("could not create trace output file")
			}
			defer func() {
				if err := f.Close(); err != nil {
					log.Error().Err(err).Msg("could not close trace file")
				}
			}()

			if err := trace.Start(f); err != nil {
				log.Fatal().Err(err).Msg("could not start trace")
			}
			defer trace.Stop()
		}

		common.SetupLogging()

		shutdownTracer, err := opentelemetry.Setup()
		if err != nil {
			log.Fatal().Err(err).Msg("could not setup opentelemetry")
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Error().Err(err).Msg("error shutting down tracer")
			}
		}()

		cfg, err := config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}

		ctx := context.Background()
		driver, err := pipeline.New(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("could not start the collection pipeline")
		}

		if err := driver.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("collection pipeline failed")
		}
	},
}
