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

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidTimeOfDay = errors.New("invalid time of day")
	ErrHoursOutOfOrder  = errors.New("market hours out of order")
)

// TimeOfDay is a local wall-clock time encoded as an HHMM integer,
// e.g. 9:30 AM is 930 and 4:00 PM is 1600
type TimeOfDay int

// ParseTimeOfDay converts a HH:MM string into a TimeOfDay
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay(hour*100 + minute), nil
}

// TimeOfDayFromTime extracts the HHMM value of t in t's location
func TimeOfDayFromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*100 + t.Minute())
}

func (tod TimeOfDay) Hour() int {
	return int(tod) / 100
}

func (tod TimeOfDay) Minute() int {
	return int(tod) % 100
}

// AddMinutes returns the time of day m minutes later, carrying into the
// hour field. The result is not wrapped past midnight; callers only use
// offsets that stay inside the same day.
func (tod TimeOfDay) AddMinutes(m int) TimeOfDay {
	total := tod.Hour()*60 + tod.Minute() + m
	return TimeOfDay((total/60)*100 + total%60)
}

func (tod TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", tod.Hour(), tod.Minute())
}

// MarketHours is the daily phase schedule in the market timezone. The
// half-open intervals [PreOpen, RegOpen), [RegOpen, RegClose) and
// [AfOpen, AfClose) are pre-market, regular and after-hours; everything
// else is closed.
type MarketHours struct {
	PreOpen  TimeOfDay
	PreClose TimeOfDay
	RegOpen  TimeOfDay
	RegClose TimeOfDay
	AfOpen   TimeOfDay
	AfClose  TimeOfDay
}

// Validate enforces PreOpen <= PreClose = RegOpen <= RegClose = AfOpen <= AfClose
func (h MarketHours) Validate() error {
	if h.PreOpen > h.PreClose {
		return fmt.Errorf("%w: pre_open %s after pre_close %s", ErrHoursOutOfOrder, h.PreOpen, h.PreClose)
	}
	if h.PreClose != h.RegOpen {
		return fmt.Errorf("%w: pre_close %s must equal reg_open %s", ErrHoursOutOfOrder, h.PreClose, h.RegOpen)
	}
	if h.RegOpen > h.RegClose {
		return fmt.Errorf("%w: reg_open %s after reg_close %s", ErrHoursOutOfOrder, h.RegOpen, h.RegClose)
	}
	if h.RegClose != h.AfOpen {
		return fmt.Errorf("%w: reg_close %s must equal af_open %s", ErrHoursOutOfOrder, h.RegClose, h.AfOpen)
	}
	if h.AfOpen > h.AfClose {
		return fmt.Errorf("%w: af_open %s after af_close %s", ErrHoursOutOfOrder, h.AfOpen, h.AfClose)
	}
	return nil
}
