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

package platform

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"strings"

	"github.com/archon-sec/archon-compile/compile/export"
	"github.com/archon-sec/archon-compile/compile/model"
)

// archiveAdapter imports a previously exported archive (either a raw
// JSON document or a .zip containing one). Compilation is skipped
// entirely; the stored result is rehydrated as-is.
type archiveAdapter struct{}

// NewArchiveAdapter returns the archive-import adapter.
func NewArchiveAdapter() Adapter { return archiveAdapter{} }

func (archiveAdapter) Name() string  { return "archive" }
func (archiveAdapter) Priority() int { return 50 }

func (archiveAdapter) Detect(target string, flags Flags) bool {
	if strings.HasSuffix(target, ".zip") {
		return fileExists(target)
	}
	if strings.HasSuffix(target, "_export_archive.json") {
		return fileExists(target)
	}
	return false
}

func (archiveAdapter) readDocument(target string) ([]byte, error) {
	if strings.HasSuffix(target, ".zip") {
		return readFirstArchiveJSONFromZip(target)
	}
	return os.ReadFile(target)
}

func readFirstArchiveJSONFromZip(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, "_export_archive.json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, model.NewError(model.ErrInvalidArchive, "archive", path, 0,
		os.ErrNotExist)
}

func (a archiveAdapter) Compile(ctx context.Context, project *model.Project, target string, opts CompileOptions) ([]*model.CompilationUnit, error) {
	data, err := a.readDocument(target)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidArchive, a.Name(), target, 0, err)
	}

	doc, err := export.ParseArchiveDocument(data)
	if err != nil {
		return nil, err
	}
	return export.RehydrateInto(project, doc)
}

func (archiveAdapter) Clean(target string, opts CompileOptions) error { return nil }

func (archiveAdapter) IsDependency(path string) bool { return false }

func (archiveAdapter) GuessedTests(target string) []string { return nil }
