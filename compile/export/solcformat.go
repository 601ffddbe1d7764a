// Copyright 2025 The archon-compile Authors
// This file is part of the archon-compile library.
//
// The archon-compile library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The archon-compile library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the archon-compile library. If not, see <http://www.gnu.org/licenses/>.

package export

import (
	"encoding/json"

	"github.com/archon-sec/archon-compile/common/compiler"
	"github.com/archon-sec/archon-compile/compile/model"
)

// MarshalSolc renders project in the legacy `solc` combined-json shape
// (combined_solc.json), reusing the
// common/compiler.Contract/ContractInfo record as the on-disk schema.
func MarshalSolc(project *model.Project) ([]byte, error) {
	out := make(map[string]*compiler.Contract)
	for _, unit := range project.Units() {
		for _, s := range unit.SourceUnitsSorted() {
			for name, c := range s.Contracts {
				key := s.File.Absolute() + ":" + name
				out[key] = &compiler.Contract{
					Code:        "0x" + c.BytecodeInit,
					RuntimeCode: "0x" + c.BytecodeRuntime,
					Hashes:      c.MethodIdentifiers,
					Info: compiler.ContractInfo{
						Source:          s.File.Absolute(),
						Language:        "Solidity",
						CompilerVersion: unit.Compiler.Version,
						SrcMap:          c.SrcMapInit,
						SrcMapRuntime:   c.SrcMapRuntime,
						AbiDefinition:   json.RawMessage(c.ABI),
						UserDoc:         json.RawMessage(c.UserDoc),
						DeveloperDoc:    json.RawMessage(c.DevDoc),
					},
				}
			}
		}
	}
	return json.MarshalIndent(map[string]interface{}{"contracts": out}, "", "  ")
}
