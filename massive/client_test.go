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

package massive_test

import (
	"context"
	"errors"
	"net/http"

	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/qiuqiuaiweb3/trading-agents/massive"
)

var _ = Describe("Client", func() {
	var (
		client *massive.Client
		ctx    context.Context
	)

	BeforeEach(func() {
		httpmock.Activate()
		client = massive.NewClient("TEST", "")
		ctx = context.Background()
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Context("when listing trades", func() {
		It("should decode a single page and stop when next_url is absent", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"conditions": [12, 41], "exchange": 4, "id": "52983525029461", "participant_timestamp": 1700058600000123456, "price": 189.71, "sequence_number": 1098123, "sip_timestamp": 1700058600001234567, "size": 100, "tape": 3},
						{"correction": 0, "exchange": 11, "id": "52983525029475", "participant_timestamp": 1700058601000200000, "price": 189.72, "sequence_number": 1098140, "sip_timestamp": 1700058601000350000, "size": 25.5, "tape": 3, "trf_id": 202, "trf_timestamp": 1700058601000100000}
					],
					"status": "OK",
					"request_id": "6a7e466379af0a71039d60cc78e72282"
				}`))

			trades := []*massive.Trade{}
			iter := client.ListTrades(ctx, "AAPL", nil)
			for iter.Next() {
				trades = append(trades, iter.Trade())
			}

			Expect(iter.Err()).To(BeNil())
			Expect(trades).To(HaveLen(2))
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))

			first := trades[0]
			Expect(first.ID).To(Equal("52983525029461"))
			Expect(first.Price).To(Equal(189.71))
			Expect(first.Size).To(Equal(100.0))
			Expect(first.SIPTimestamp).NotTo(BeNil())
			Expect(*first.SIPTimestamp).To(Equal(int64(1700058600001234567)))
			Expect(first.Conditions).To(Equal([]int32{12, 41}))
			Expect(*first.Exchange).To(Equal(int32(4)))
			Expect(*first.Tape).To(Equal(int32(3)))
			Expect(first.Correction).To(BeNil())
			Expect(first.TrfID).To(BeNil())
			Expect(first.TrfTimestamp).To(BeNil())

			second := trades[1]
			Expect(second.Size).To(Equal(25.5))
			Expect(second.Correction).NotTo(BeNil())
			Expect(*second.Correction).To(Equal(int32(0)))
			Expect(*second.TrfID).To(Equal(int32(202)))
			Expect(*second.TrfTimestamp).To(Equal(int64(1700058601000100000)))
		})

		It("should end iteration cleanly on a day with no records", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(200, `{"results": [], "status": "OK"}`))

			iter := client.ListTrades(ctx, "AAPL", nil)
			Expect(iter.Next()).To(BeFalse())
			Expect(iter.Err()).To(BeNil())
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})

		It("should follow the next_url cursor across pages", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"id": "52983525029461", "price": 189.71, "sequence_number": 1098123, "sip_timestamp": 1700058600001234567, "size": 100},
						{"id": "52983525029475", "price": 189.72, "sequence_number": 1098140, "sip_timestamp": 1700058601000350000, "size": 50}
					],
					"status": "OK",
					"next_url": "https://api.massive.com/v3/trades/AAPL?cursor=YXA9MiZhcz0x"
				}`))
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&cursor=YXA9MiZhcz0x",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"id": "52983525029488", "price": 189.74, "sequence_number": 1098177, "sip_timestamp": 1700058602000400000, "size": 10}
					],
					"status": "OK"
				}`))

			ids := []string{}
			iter := client.ListTrades(ctx, "AAPL", nil)
			for iter.Next() {
				ids = append(ids, iter.Trade().ID)
			}

			Expect(iter.Err()).To(BeNil())
			Expect(ids).To(Equal([]string{"52983525029461", "52983525029475", "52983525029488"}))
			Expect(httpmock.GetTotalCallCount()).To(Equal(2))
		})

		It("should send the requested date, page size and sort order", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/MSFT?apiKey=TEST&limit=5000&order=desc&sort=timestamp&timestamp=2023-11-15",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"id": "40035254710129", "price": 370.27, "sequence_number": 887123, "sip_timestamp": 1700081999123000000, "size": 200}
					],
					"status": "OK"
				}`))

			trades := []*massive.Trade{}
			iter := client.ListTrades(ctx, "MSFT", &massive.ListParams{
				Date:  "2023-11-15",
				Limit: 5000,
				Order: "desc",
			})
			for iter.Next() {
				trades = append(trades, iter.Trade())
			}

			Expect(iter.Err()).To(BeNil())
			Expect(trades).To(HaveLen(1))
		})

		It("should retry a failed page and then continue paginating", func() {
			firstPageCalls := 0
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				func(req *http.Request) (*http.Response, error) {
					firstPageCalls++
					if firstPageCalls == 1 {
						return httpmock.NewStringResponse(503, "upstream unavailable"), nil
					}
					return httpmock.NewStringResponse(200, `{
						"results": [
							{"id": "52983525029461", "price": 189.71, "sequence_number": 1098123, "sip_timestamp": 1700058600001234567, "size": 100}
						],
						"status": "OK",
						"next_url": "https://api.massive.com/v3/trades/AAPL?cursor=YXA9MiZhcz0x"
					}`), nil
				})
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&cursor=YXA9MiZhcz0x",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"id": "52983525029475", "price": 189.72, "sequence_number": 1098140, "sip_timestamp": 1700058601000350000, "size": 50}
					],
					"status": "OK"
				}`))

			ids := []string{}
			iter := client.ListTrades(ctx, "AAPL", nil)
			for iter.Next() {
				ids = append(ids, iter.Trade().ID)
			}

			Expect(iter.Err()).To(BeNil())
			Expect(ids).To(Equal([]string{"52983525029461", "52983525029475"}))
			Expect(firstPageCalls).To(Equal(2))
		})

		It("should give up after exhausting retries on a persistent error status", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(503, "upstream unavailable"))

			iter := client.ListTrades(ctx, "AAPL", nil)
			Expect(iter.Next()).To(BeFalse())
			Expect(iter.Err()).To(MatchError(massive.ErrRequestFailed))
			Expect(httpmock.GetTotalCallCount()).To(Equal(3))
		})

		It("should report transport errors after exhausting retries", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewErrorResponder(errors.New("connection reset by peer")))

			iter := client.ListTrades(ctx, "AAPL", nil)
			Expect(iter.Next()).To(BeFalse())
			Expect(iter.Err()).To(HaveOccurred())
			Expect(httpmock.GetTotalCallCount()).To(Equal(3))
		})

		It("should not retry when the response body cannot be decoded", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/trades/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(200, `<html>not json</html>`))

			iter := client.ListTrades(ctx, "AAPL", nil)
			Expect(iter.Next()).To(BeFalse())
			Expect(iter.Err()).To(HaveOccurred())
			Expect(httpmock.GetTotalCallCount()).To(Equal(1))
		})
	})

	Context("when listing quotes", func() {
		It("should decode quote fields", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/quotes/AAPL?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"ask_exchange": 12, "ask_price": 189.73, "ask_size": 3, "bid_exchange": 11, "bid_price": 189.71, "bid_size": 5, "indicators": [604], "participant_timestamp": 1700058600000055000, "sequence_number": 2201455, "sip_timestamp": 1700058600000070000, "tape": 3}
					],
					"status": "OK"
				}`))

			quotes := []*massive.Quote{}
			iter := client.ListQuotes(ctx, "AAPL", nil)
			for iter.Next() {
				quotes = append(quotes, iter.Quote())
			}

			Expect(iter.Err()).To(BeNil())
			Expect(quotes).To(HaveLen(1))

			quote := quotes[0]
			Expect(*quote.SIPTimestamp).To(Equal(int64(1700058600000070000)))
			Expect(*quote.BidPrice).To(Equal(189.71))
			Expect(*quote.BidSize).To(Equal(5.0))
			Expect(*quote.BidExchange).To(Equal(int32(11)))
			Expect(*quote.AskPrice).To(Equal(189.73))
			Expect(*quote.AskSize).To(Equal(3.0))
			Expect(*quote.AskExchange).To(Equal(int32(12)))
			Expect(quote.Indicators).To(Equal([]int32{604}))
			Expect(quote.Conditions).To(BeNil())
			Expect(*quote.Tape).To(Equal(int32(3)))
		})

		It("should keep paginating past an empty page that still has a next_url", func() {
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/quotes/TSLA?apiKey=TEST&limit=1000&order=asc&sort=timestamp",
				httpmock.NewStringResponder(200, `{
					"results": [],
					"status": "OK",
					"next_url": "https://api.massive.com/v3/quotes/TSLA?cursor=YXA9NCZhcz01"
				}`))
			httpmock.RegisterResponder("GET", "https://api.massive.com/v3/quotes/TSLA?apiKey=TEST&cursor=YXA9NCZhcz01",
				httpmock.NewStringResponder(200, `{
					"results": [
						{"ask_price": 242.12, "ask_size": 2, "bid_price": 242.08, "bid_size": 1, "sequence_number": 3310441, "sip_timestamp": 1700058660000010000}
					],
					"status": "OK"
				}`))

			quotes := []*massive.Quote{}
			iter := client.ListQuotes(ctx, "TSLA", nil)
			for iter.Next() {
				quotes = append(quotes, iter.Quote())
			}

			Expect(iter.Err()).To(BeNil())
			Expect(quotes).To(HaveLen(1))
			Expect(*quotes[0].SequenceNumber).To(Equal(int64(3310441)))
			Expect(httpmock.GetTotalCallCount()).To(Equal(2))
		})
	})
})
