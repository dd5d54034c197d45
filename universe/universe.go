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

// Package universe loads the ticker universe the collector iterates over.
package universe

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/qiuqiuaiweb3/trading-agents/common"
)

var (
	ErrNoTickers = errors.New("ticker universe is empty")
)

// Load reads an ordered list of symbols from a text file. One symbol per
// line; blank lines and lines starting with # are skipped; a trailing
// comma is stripped; symbols are uppercased. A missing file or an empty
// result is an error because the collector would have nothing to do.
func Load(fn string) ([]string, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		log.Error().Err(err).Str("TickersFile", fn).Msg("could not read tickers file")
		return nil, fmt.Errorf("could not read tickers file: %w", err)
	}

	lines := strings.Split(string(raw), "\n")
	tickers := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSuffix(line, ",")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tickers = append(tickers, line)
	}
	common.ArrToUpper(tickers)

	if len(tickers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTickers, fn)
	}

	log.Info().Int("NumTickers", len(tickers)).Str("TickersFile", fn).Msg("loaded ticker universe")
	return tickers, nil
}
