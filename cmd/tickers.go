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

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qiuqiuaiweb3/trading-agents/common"
	"github.com/qiuqiuaiweb3/trading-agents/universe"
)

func init() {
	rootCmd.AddCommand(tickersCmd)
}

var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "Print the ticker universe",
	Long:  `Load the configured universe file and print the tickers the collector would poll`,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()

		fn := viper.GetString("tickers.file")
		tickers, err := universe.Load(fn)
		if err != nil {
			log.Fatal().Err(err).Str("File", fn).Msg("could not load ticker universe")
		}

		for _, ticker := range tickers {
			fmt.Println(ticker)
		}
	},
}
