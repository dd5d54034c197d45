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

package cmd

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"

	"github.com/spf13/cobra"

	"github.com/qiuqiuaiweb3/trading-agents/pkginfo"
)

var showDeps bool

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().BoolVar(&showDeps, "deps", false, "also print the dependency list")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Long:  `Print the program version along with the commit, build date and Go toolchain it was built with`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s v%s %s/%s\n", pkginfo.ProgramName, pkginfo.Version, runtime.GOOS, runtime.GOARCH)

		commit := pkginfo.CommitHash
		if commit == "" {
			commit = "unknown"
		}
		date := pkginfo.BuildDate
		if date == "" {
			date = "unknown"
		}
		fmt.Printf("  commit:     %s\n", commit)
		fmt.Printf("  build date: %s\n", date)
		fmt.Printf("  built with: %s\n", runtime.Version())

		if showDeps {
			fmt.Println("\nDependencies:")
			for _, dep := range dependencyList() {
				fmt.Printf("  %s\n", dep)
			}
		}
	},
}

// dependencyList returns the module's dependencies, sorted, in
// path="version" form. The list is embedded in the binary by the Go
// toolchain so it reflects what was actually linked.
func dependencyList() []string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	deps := make([]string, 0, len(bi.Deps))
	for _, dep := range bi.Deps {
		deps = append(deps, fmt.Sprintf("%s=%q", dep.Path, dep.Version))
	}
	sort.Strings(deps)

	return deps
}
