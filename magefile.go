//go:build mage

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

package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "trading-agents"
	modulePath = "github.com/qiuqiuaiweb3/trading-agents"
)

// allow overriding the go executable, e.g. GOEXE=go1.21 mage build
var goexe = "go"

func init() {
	if exe := os.Getenv("GOEXE"); exe != "" {
		goexe = exe
	}
}

// ldflags stamps the commit hash and build date into pkginfo
func ldflags() string {
	hash, _ := sh.Output("git", "rev-parse", "--short", "HEAD")
	date := time.Now().Format("2006-01-02T15:04:05Z0700")
	return fmt.Sprintf("-X %[1]s/pkginfo.CommitHash=%[2]s -X %[1]s/pkginfo.BuildDate=%[3]s",
		modulePath, hash, date)
}

// Build compiles the trading-agents binary into the working directory
func Build() error {
	fmt.Println("Building...")
	return sh.RunV(goexe, "build", "-o", binaryName, "-ldflags", ldflags(), ".")
}

// Install builds and installs the binary into GOPATH/bin
func Install() error {
	return sh.RunV(goexe, "install", "-ldflags", ldflags(), ".")
}

// Clean removes build artifacts
func Clean() {
	fmt.Println("Cleaning...")
	os.RemoveAll(binaryName)
	os.RemoveAll("coverage.out")
	os.RemoveAll("profile.out")
	os.RemoveAll("trace.out")
}

// Test runs the test suite
func Test() error {
	fmt.Println("Go Test")
	return sh.RunV(goexe, "test", "./...")
}

// TestRace runs the test suite with the race detector enabled
func TestRace() error {
	fmt.Println("Go Test Race")
	return sh.RunV(goexe, "test", "-race", "./...")
}

// TestCoverHTML generates a test coverage report and opens it in a browser
func TestCoverHTML() error {
	fmt.Println("Generate Test Coverage HTML")
	if err := sh.RunV(goexe, "test", "-coverprofile=coverage.out", "-covermode=count", "./..."); err != nil {
		return err
	}
	return sh.RunV(goexe, "tool", "cover", "-html=coverage.out")
}

// Fmt fails if any source file is not gofmt'ed
func Fmt() error {
	fmt.Println("Go Format")

	// gofmt exits zero even when files need formatting, so inspect output
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return fmt.Errorf("error running gofmt: %w", err)
	}
	if out != "" {
		fmt.Println("The following files are not gofmt'ed:")
		fmt.Println(out)
		return errors.New("improperly formatted go files")
	}
	return nil
}

// Vet runs go vet over every package
func Vet() error {
	fmt.Println("Go Vet")
	if err := sh.RunV(goexe, "vet", "./..."); err != nil {
		return fmt.Errorf("error running go vet: %w", err)
	}
	return nil
}

// Check runs the linters followed by the race-enabled test suite
func Check() {
	mg.Deps(Fmt, Vet)

	// race tests saturate the CPUs; don't run anything else in parallel
	mg.Deps(TestRace)
}
