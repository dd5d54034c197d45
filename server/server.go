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

// Package server exposes a small read-only HTTP surface over the running
// collector: a liveness probe and a status report. It never writes to the
// database and holds no state of its own.
package server

import (
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/qiuqiuaiweb3/trading-agents/collector"
	"github.com/qiuqiuaiweb3/trading-agents/marketclock"
	"github.com/qiuqiuaiweb3/trading-agents/middleware"
	"github.com/qiuqiuaiweb3/trading-agents/observability/opentelemetry"
	"github.com/qiuqiuaiweb3/trading-agents/pkginfo"
)

// StatusResponse summarizes what the collector is doing right now
type StatusResponse struct {
	Program      string               `json:"program"`
	Version      string               `json:"version"`
	Phase        string               `json:"phase"`
	ShouldRun    bool                 `json:"should_run"`
	UniverseSize int                  `json:"universe_size"`
	LastCycle    collector.CycleStats `json:"last_cycle"`
}

// New builds the fiber application with all routes attached. The caller
// owns the listen / shutdown lifecycle.
func New(clock *marketclock.Clock, coll *collector.Collector, universeSize int) *fiber.App {
	app := fiber.New()
	app.Use(middleware.NewLogger())

	app.Get("/healthz", Healthz)
	app.Get("/status", Status(clock, coll, universeSize))

	return app
}

// Healthz reports process liveness
func Healthz(c *fiber.Ctx) error {
	return c.SendString("ok")
}

// Status returns a handler reporting the current market phase and the
// outcome of the most recent collection cycle
func Status(clock *marketclock.Clock, coll *collector.Collector, universeSize int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, span := otel.Tracer(opentelemetry.Name).Start(c.Context(), "server.Status",
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		span.SetAttributes(opentelemetry.SpanAttributesFromFiber(c)...)

		now := clock.Now()
		return c.JSON(StatusResponse{
			Program:      pkginfo.ProgramName,
			Version:      pkginfo.Version,
			Phase:        string(clock.PhaseAt(now)),
			ShouldRun:    coll.ShouldRunAt(now),
			UniverseSize: universeSize,
			LastCycle:    coll.LastCycle(),
		})
	}
}
