// Copyright 2022 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package flags

import "github.com/urfave/cli/v2"

const (
	// CompileCategory groups flags controlling platform detection and the
	// compiler driver.
	CompileCategory = "COMPILATION"
	// SolcCategory groups flags passed through to the solc/vyper binary.
	SolcCategory = "COMPILER"
	// ExportCategory groups flags controlling output serialization.
	ExportCategory = "EXPORT"
	// FetchCategory groups flags for the verification-service fetcher.
	FetchCategory = "VERIFICATION FETCHER"
	// LoggingCategory groups logging and debugging flags.
	LoggingCategory = "LOGGING AND DEBUGGING"
	// MiscCategory groups flags with no better home.
	MiscCategory = "MISC"
	// TestingCategory groups flags only meaningful under test.
	TestingCategory = "TESTING"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
