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
	"strconv"

	"github.com/goccy/go-json"
)

// Trade is a single execution as reported by the consolidated tape. All
// timestamps are nanoseconds since the Unix epoch. Optional fields are
// pointers so that absent values survive the round trip into the database
// as NULL instead of zero.
type Trade struct {
	ID                   string   `json:"id"`
	SIPTimestamp         *int64   `json:"sip_timestamp"`
	ParticipantTimestamp *int64   `json:"participant_timestamp"`
	TrfTimestamp         *int64   `json:"trf_timestamp"`
	SequenceNumber       *int64   `json:"sequence_number"`
	Price                float64  `json:"price"`
	Size                 float64  `json:"size"`
	Exchange             *int32   `json:"exchange"`
	Conditions           []int32  `json:"conditions"`
	Correction           *int32   `json:"correction"`
	Tape                 *int32   `json:"tape"`
	TrfID                *int32   `json:"trf_id"`
}

// Quote is a single NBBO quote update. Timestamps are nanoseconds since
// the Unix epoch.
type Quote struct {
	SIPTimestamp         *int64   `json:"sip_timestamp"`
	ParticipantTimestamp *int64   `json:"participant_timestamp"`
	SequenceNumber       *int64   `json:"sequence_number"`
	BidPrice             *float64 `json:"bid_price"`
	BidSize              *float64 `json:"bid_size"`
	BidExchange          *int32   `json:"bid_exchange"`
	AskPrice             *float64 `json:"ask_price"`
	AskSize              *float64 `json:"ask_size"`
	AskExchange          *int32   `json:"ask_exchange"`
	Conditions           []int32  `json:"conditions"`
	Indicators           []int32  `json:"indicators"`
	Tape                 *int32   `json:"tape"`
}

// ListParams selects which records a trades or quotes listing returns.
// The zero value requests every record in ascending timestamp order with
// the API's default page size.
type ListParams struct {
	// Date restricts results to a single trading day, formatted as
	// YYYY-MM-DD. The API calls this parameter timestamp.
	Date string

	// Limit is the page size; the API accepts up to 50000. Zero means 1000.
	Limit int

	// Sort is the sort field. The empty string means timestamp.
	Sort string

	// Order is asc or desc. The empty string means asc.
	Order string
}

func (p *ListParams) queryParams() map[string]string {
	limit := p.Limit
	if limit == 0 {
		limit = 1000
	}
	sort := p.Sort
	if sort == "" {
		sort = "timestamp"
	}
	order := p.Order
	if order == "" {
		order = "asc"
	}

	params := map[string]string{
		"limit": strconv.Itoa(limit),
		"sort":  sort,
		"order": order,
	}
	if p.Date != "" {
		params["timestamp"] = p.Date
	}
	return params
}

// pageEnvelope is the wrapper around every paginated listing response.
// Results is deferred to raw JSON so both trade and quote iterators can
// share the paging machinery.
type pageEnvelope struct {
	Results   json.RawMessage `json:"results"`
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	NextURL   string          `json:"next_url"`
}
