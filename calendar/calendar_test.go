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

package calendar_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/pashagolub/pgxmock"

	"github.com/qiuqiuaiweb3/trading-agents/calendar"
	"github.com/qiuqiuaiweb3/trading-agents/config"
)

var _ = Describe("Calendar", func() {
	var (
		dbPool pgxmock.PgxConnIface
		trx    pgx.Tx
		ctx    context.Context
		from   time.Time
		to     time.Time
	)

	BeforeEach(func() {
		var err error
		dbPool, err = pgxmock.NewConn()
		Expect(err).To(BeNil())

		ctx = context.Background()
		from = time.Date(2023, 11, 20, 0, 0, 0, 0, time.UTC)
		to = time.Date(2023, 11, 26, 0, 0, 0, 0, time.UTC)

		dbPool.ExpectBegin()
		trx, err = dbPool.Begin(ctx)
		Expect(err).To(BeNil())
	})

	AfterEach(func() {
		Expect(dbPool.ExpectationsWereMet()).To(Succeed())
	})

	Describe("loading a date range", func() {
		It("should map rows to entries in date order", func() {
			dbPool.ExpectQuery("SELECT date, status").
				WithArgs(from, to).
				WillReturnRows(pgxmock.
					NewRows([]string{"date", "status", "open_time", "close_time", "description"}).
					AddRow(time.Date(2023, 11, 23, 0, 0, 0, 0, time.UTC), "closed", -1, -1, "Thanksgiving").
					AddRow(time.Date(2023, 11, 24, 0, 0, 0, 0, time.UTC), "early_close", 930, 1300, "day after Thanksgiving"))

			entries, err := calendar.Load(ctx, trx, from, to)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(2))

			Expect(entries[0].Date).To(Equal(time.Date(2023, 11, 23, 0, 0, 0, 0, time.UTC)))
			Expect(entries[0].Status).To(Equal(calendar.StatusClosed))
			Expect(entries[0].Description).To(Equal("Thanksgiving"))

			Expect(entries[1].Date).To(Equal(time.Date(2023, 11, 24, 0, 0, 0, 0, time.UTC)))
			Expect(entries[1].Status).To(Equal(calendar.StatusEarlyClose))
			Expect(entries[1].OpenTime).To(Equal(config.TimeOfDay(930)))
			Expect(entries[1].CloseTime).To(Equal(config.TimeOfDay(1300)))
			Expect(entries[1].HasCloseTime()).To(BeTrue())
		})

		It("should read absent session times as unset", func() {
			dbPool.ExpectQuery("SELECT date, status").
				WillReturnRows(pgxmock.
					NewRows([]string{"date", "status", "open_time", "close_time", "description"}).
					AddRow(time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), "closed", -1, -1, "Christmas"))

			entries, err := calendar.Load(ctx, trx, from, to)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].OpenTime).To(Equal(calendar.TimeUnset))
			Expect(entries[0].CloseTime).To(Equal(calendar.TimeUnset))
			Expect(entries[0].HasCloseTime()).To(BeFalse())
		})

		It("should return no entries for a range without special days", func() {
			dbPool.ExpectQuery("SELECT date, status").
				WillReturnRows(pgxmock.
					NewRows([]string{"date", "status", "open_time", "close_time", "description"}))

			entries, err := calendar.Load(ctx, trx, from, to)
			Expect(err).To(BeNil())
			Expect(entries).To(HaveLen(0))
		})

		It("should propagate query failures", func() {
			dbPool.ExpectQuery("SELECT date, status").
				WillReturnError(errors.New("relation \"market_calendar\" does not exist"))

			entries, err := calendar.Load(ctx, trx, from, to)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("could not query market calendar"))
			Expect(entries).To(BeNil())
		})
	})
})
