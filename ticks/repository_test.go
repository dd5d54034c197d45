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

package ticks_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/qiuqiuaiweb3/trading-agents/massive"
	"github.com/qiuqiuaiweb3/trading-agents/ticks"
)

func int32Ptr(v int32) *int32 {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func float64Ptr(v float64) *float64 {
	return &v
}

var _ = Describe("Repository", func() {
	var (
		ctx  context.Context
		mock pgxmock.PgxConnIface
		trx  pgx.Tx
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		mock, err = pgxmock.NewConn()
		Expect(err).To(BeNil())

		mock.ExpectBegin()
		trx, err = mock.Begin(ctx)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
	})

	DescribeTable("converting nanosecond timestamps",
		func(ns int64, expected time.Time) {
			Expect(ticks.NanosToUTC(ns)).To(BeTemporally("==", expected))
			Expect(ticks.NanosToUTC(ns).Location()).To(Equal(time.UTC))
		},

		Entry("epoch", int64(0), time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)),
		Entry("sub-second precision survives", int64(1700058600001234567), time.Date(2023, 11, 15, 14, 30, 0, 1234567, time.UTC)),
		Entry("whole second", int64(1700058601000000000), time.Date(2023, 11, 15, 14, 30, 1, 0, time.UTC)),
	)

	Context("when saving trades", func() {
		It("should map every field onto the insert and report the written count", func() {
			trades := []*massive.Trade{
				{
					ID:                   "52983525029461",
					SIPTimestamp:         int64Ptr(1700058600001234567),
					ParticipantTimestamp: int64Ptr(1700058600000123456),
					TrfTimestamp:         int64Ptr(1700058600000999999),
					SequenceNumber:       int64Ptr(1098123),
					Price:                189.71,
					Size:                 100,
					Exchange:             int32Ptr(4),
					Conditions:           []int32{12, 41},
					Correction:           int32Ptr(0),
					Tape:                 int32Ptr(3),
					TrfID:                int32Ptr(202),
				},
				{
					ID:           "52983525029475",
					SIPTimestamp: int64Ptr(1700058601000350000),
					Price:        189.72,
					Size:         25.5,
				},
			}

			mock.ExpectExec("INSERT INTO trades").
				WithArgs(
					ticks.NanosToUTC(1700058600001234567), "AAPL", 189.71, 100.0,
					int32Ptr(4), []int32{12, 41}, int32Ptr(0), int32Ptr(3), int32Ptr(202),
					int64Ptr(1700058600000999999), int64Ptr(1700058600000123456),
					"52983525029461", int64Ptr(1098123),

					ticks.NanosToUTC(1700058601000350000), "AAPL", 189.72, 25.5,
					(*int32)(nil), []int32(nil), (*int32)(nil), (*int32)(nil), (*int32)(nil),
					(*int64)(nil), (*int64)(nil),
					"52983525029475", (*int64)(nil),
				).
				WillReturnResult(pgxmock.NewResult("INSERT", 2))

			count, err := ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(2)))
		})

		It("should drop records without a sip timestamp", func() {
			trades := []*massive.Trade{
				{ID: "1", Price: 1.0, Size: 1},
				{
					ID:           "52983525029488",
					SIPTimestamp: int64Ptr(1700058602000400000),
					Price:        189.74,
					Size:         10,
				},
			}

			mock.ExpectExec("INSERT INTO trades").
				WithArgs(
					ticks.NanosToUTC(1700058602000400000), "AAPL", 189.74, 10.0,
					(*int32)(nil), []int32(nil), (*int32)(nil), (*int32)(nil), (*int32)(nil),
					(*int64)(nil), (*int64)(nil),
					"52983525029488", (*int64)(nil),
				).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			count, err := ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		It("should not touch the database when every record is missing a sip timestamp", func() {
			trades := []*massive.Trade{
				{ID: "1", Price: 1.0, Size: 1},
				{ID: "2", Price: 2.0, Size: 2},
			}

			count, err := ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("should not touch the database for an empty batch", func() {
			count, err := ticks.SaveTrades(ctx, trx, "AAPL", []*massive.Trade{})
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("should only count rows the database actually wrote", func() {
			trades := []*massive.Trade{
				{ID: "52983525029461", SIPTimestamp: int64Ptr(1700058600001234567), Price: 189.71, Size: 100},
				{ID: "52983525029475", SIPTimestamp: int64Ptr(1700058601000350000), Price: 189.72, Size: 50},
			}

			mock.ExpectExec("INSERT INTO trades").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			count, err := ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))
		})

		It("should report zero writes when a batch is replayed", func() {
			trades := []*massive.Trade{
				{ID: "52983525029461", SIPTimestamp: int64Ptr(1700058600001234567), Price: 189.71, Size: 100},
			}

			// the conflict target swallows the duplicate on the second pass
			mock.ExpectExec("INSERT INTO trades").
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectExec("INSERT INTO trades").
				WillReturnResult(pgxmock.NewResult("INSERT", 0))

			count, err := ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(1)))

			count, err = ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("should surface database errors", func() {
			trades := []*massive.Trade{
				{ID: "52983525029461", SIPTimestamp: int64Ptr(1700058600001234567), Price: 189.71, Size: 100},
			}

			mock.ExpectExec("INSERT INTO trades").
				WillReturnError(errors.New("deadlock detected"))

			count, err := ticks.SaveTrades(ctx, trx, "AAPL", trades)
			Expect(err).To(HaveOccurred())
			Expect(count).To(Equal(int64(0)))
		})
	})

	Context("when saving quotes", func() {
		It("should map every field onto the insert and report the written count", func() {
			quotes := []*massive.Quote{
				{
					SIPTimestamp:         int64Ptr(1700058600000070000),
					ParticipantTimestamp: int64Ptr(1700058600000055000),
					SequenceNumber:       int64Ptr(2201455),
					BidPrice:             float64Ptr(189.71),
					BidSize:              float64Ptr(5),
					BidExchange:          int32Ptr(11),
					AskPrice:             float64Ptr(189.73),
					AskSize:              float64Ptr(3),
					AskExchange:          int32Ptr(12),
					Indicators:           []int32{604},
					Tape:                 int32Ptr(3),
				},
				{
					SIPTimestamp:   int64Ptr(1700058660000010000),
					SequenceNumber: int64Ptr(3310441),
					BidPrice:       float64Ptr(242.08),
					AskPrice:       float64Ptr(242.12),
				},
			}

			mock.ExpectExec("INSERT INTO quotes").
				WithArgs(
					ticks.NanosToUTC(1700058600000070000), "AAPL",
					float64Ptr(189.71), float64Ptr(5), int32Ptr(11),
					float64Ptr(189.73), float64Ptr(3), int32Ptr(12),
					[]int32(nil), []int32{604},
					int64Ptr(1700058600000055000), int64Ptr(2201455), int32Ptr(3),

					ticks.NanosToUTC(1700058660000010000), "AAPL",
					float64Ptr(242.08), (*float64)(nil), (*int32)(nil),
					float64Ptr(242.12), (*float64)(nil), (*int32)(nil),
					[]int32(nil), []int32(nil),
					(*int64)(nil), int64Ptr(3310441), (*int32)(nil),
				).
				WillReturnResult(pgxmock.NewResult("INSERT", 2))

			count, err := ticks.SaveQuotes(ctx, trx, "AAPL", quotes)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(2)))
		})

		It("should drop records without a sip timestamp", func() {
			quotes := []*massive.Quote{
				{BidPrice: float64Ptr(1.0)},
			}

			count, err := ticks.SaveQuotes(ctx, trx, "AAPL", quotes)
			Expect(err).To(BeNil())
			Expect(count).To(Equal(int64(0)))
		})

		It("should surface database errors", func() {
			quotes := []*massive.Quote{
				{SIPTimestamp: int64Ptr(1700058600000070000), BidPrice: float64Ptr(189.71)},
			}

			mock.ExpectExec("INSERT INTO quotes").
				WillReturnError(errors.New("connection refused"))

			count, err := ticks.SaveQuotes(ctx, trx, "AAPL", quotes)
			Expect(err).To(HaveOccurred())
			Expect(count).To(Equal(int64(0)))
		})
	})
})
