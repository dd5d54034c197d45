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

// Package pkginfo holds build metadata stamped in via ldflags. Use mage to
// build so the commit hash and build date get set.
package pkginfo

var (
	// ProgramName is the name of the installed binary
	ProgramName = "trading-agents"

	// Version is the semantic version of the current build
	Version = "1.0.0-dev"

	// CommitHash contains the current Git revision
	CommitHash string

	// BuildDate contains the date of the current build
	BuildDate string
)
