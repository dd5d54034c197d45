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

// Package massive retrieves tick-level market data from the Massive V3
// REST API. List calls return iterators that fetch additional pages on
// demand by following the next_url cursor in each response.
package massive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/qiuqiuaiweb3/trading-agents/observability/opentelemetry"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var massiveAPI = "https://api.massive.com/v3"

// ErrRequestFailed indicates the API answered with a non-2xx status code
// after all retries were exhausted
var ErrRequestFailed = errors.New("massive request returned an invalid status code")

// Client is a connection to the Massive V3 REST API. Massive authenticates
// with an apiKey query parameter rather than a header, so the key is
// attached to every request the client makes, continuation pages included.
type Client struct {
	restClient *resty.Client
}

// NewClient creates a Massive API client for the given key. If baseURL is
// the empty string the production endpoint is used. Failed requests are
// retried twice with exponential back-off before the error is reported.
func NewClient(apiKey string, baseURL string) *Client {
	if baseURL == "" {
		baseURL = massiveAPI
	}

	// the transport must be set explicitly: given a transport-less client,
	// resty installs a private transport instead of falling back to
	// http.DefaultTransport, which would bypass the seam the test suites
	// activate httpmock on
	restClient := resty.NewWithClient(&http.Client{Transport: http.DefaultTransport}).
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json").
		SetQueryParam("apiKey", apiKey).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= 400
		})

	return &Client{
		restClient: restClient,
	}
}

// Close releases any idle connections held by the client
func (c *Client) Close() {
	c.restClient.GetClient().CloseIdleConnections()
}

// ListTrades returns an iterator over every trade of the requested ticker
// matching params, in the requested sort order
func (c *Client) ListTrades(ctx context.Context, ticker string, params *ListParams) *TradeIter {
	if params == nil {
		params = &ListParams{}
	}
	return &TradeIter{
		pager: newPager(ctx, c, fmt.Sprintf("/trades/%s", ticker), params.queryParams()),
	}
}

// ListQuotes returns an iterator over every NBBO quote of the requested
// ticker matching params, in the requested sort order
func (c *Client) ListQuotes(ctx context.Context, ticker string, params *ListParams) *QuoteIter {
	if params == nil {
		params = &ListParams{}
	}
	return &QuoteIter{
		pager: newPager(ctx, c, fmt.Sprintf("/quotes/%s", ticker), params.queryParams()),
	}
}

// getPage executes a single GET against the API. url is either an endpoint
// path relative to the configured base URL or the absolute next_url taken
// from a previous page.
func (c *Client) getPage(ctx context.Context, url string, params map[string]string) (*pageEnvelope, error) {
	ctx, span := otel.Tracer(opentelemetry.Name).Start(ctx, "massive.getPage")
	defer span.End()

	span.SetAttributes(
		attribute.KeyValue{
			Key:   "Url",
			Value: attribute.StringValue(url),
		},
	)

	req := c.restClient.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(url)
	if err != nil {
		msg := "massive request failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		log.Error().Err(err).Str("Url", url).Msg(msg)
		return nil, err
	}

	if resp.StatusCode() >= 400 {
		span.SetAttributes(attribute.KeyValue{
			Key:   "StatusCode",
			Value: attribute.IntValue(resp.StatusCode()),
		})
		msg := "massive request returned an invalid status code"
		span.SetStatus(codes.Error, msg)
		log.Error().Int("HTTPResponseStatusCode", resp.StatusCode()).Str("Url", url).Msg(msg)
		return nil, fmt.Errorf("%w: %d", ErrRequestFailed, resp.StatusCode())
	}

	env := &pageEnvelope{}
	if err := json.Unmarshal(resp.Body(), env); err != nil {
		msg := "could not unmarshal massive response"
		span.RecordError(err)
		span.SetStatus(codes.Error, msg)
		log.Error().Err(err).Str("Url", url).Msg(msg)
		return nil, err
	}

	return env, nil
}
