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

package massive

import (
	"context"

	"github.com/goccy/go-json"
)

// pager walks the next_url chain of a paginated listing. The query
// parameters are only sent with the first request; continuation URLs
// already carry the cursor state.
type pager struct {
	ctx    context.Context
	client *Client
	url    string
	params map[string]string
	done   bool
	err    error
}

func newPager(ctx context.Context, client *Client, endpoint string, params map[string]string) *pager {
	return &pager{
		ctx:    ctx,
		client: client,
		url:    endpoint,
		params: params,
	}
}

func (p *pager) more() bool {
	return !p.done && p.err == nil
}

func (p *pager) fail(err error) {
	p.err = err
	p.done = true
}

// fetch retrieves the next page and returns its raw results array. The
// final page is recognized by an absent next_url.
func (p *pager) fetch() (json.RawMessage, error) {
	env, err := p.client.getPage(p.ctx, p.url, p.params)
	if err != nil {
		p.fail(err)
		return nil, err
	}

	p.params = nil
	if env.NextURL == "" {
		p.done = true
	} else {
		p.url = env.NextURL
	}

	return env.Results, nil
}

// TradeIter iterates over the trades of a listing, transparently fetching
// additional pages as needed.
type TradeIter struct {
	pager *pager
	page  []*Trade
	idx   int
	trade *Trade
}

// Next advances the iterator to the next trade. It returns false when no
// records remain or an error occurred; check Err to distinguish the two.
func (it *TradeIter) Next() bool {
	for it.idx >= len(it.page) {
		if !it.pager.more() {
			return false
		}

		raw, err := it.pager.fetch()
		if err != nil {
			return false
		}

		it.page = nil
		it.idx = 0
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &it.page); err != nil {
			it.pager.fail(err)
			return false
		}
	}

	it.trade = it.page[it.idx]
	it.idx++
	return true
}

// Trade returns the record the iterator currently points at. It is only
// valid after Next has returned true.
func (it *TradeIter) Trade() *Trade {
	return it.trade
}

// Err returns the first error the iterator encountered, if any
func (it *TradeIter) Err() error {
	return it.pager.err
}

// QuoteIter iterates over the quotes of a listing, transparently fetching
// additional pages as needed.
type QuoteIter struct {
	pager *pager
	page  []*Quote
	idx   int
	quote *Quote
}

// Next advances the iterator to the next quote. It returns false when no
// records remain or an error occurred; check Err to distinguish the two.
func (it *QuoteIter) Next() bool {
	for it.idx >= len(it.page) {
		if !it.pager.more() {
			return false
		}

		raw, err := it.pager.fetch()
		if err != nil {
			return false
		}

		it.page = nil
		it.idx = 0
		if len(raw) == 0 {
			continue
		}
		if err := json.Unmarshal(raw, &it.page); err != nil {
			it.pager.fail(err)
			return false
		}
	}

	it.quote = it.page[it.idx]
	it.idx++
	return true
}

// Quote returns the record the iterator currently points at. It is only
// valid after Next has returned true.
func (it *QuoteIter) Quote() *Quote {
	return it.quote
}

// Err returns the first error the iterator encountered, if any
func (it *QuoteIter) Err() error {
	return it.pager.err
}
