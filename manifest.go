// Copyright (C) 2022  Shanhu Tech Inc.
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, either version 3 of the License, or (at your
// option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
// for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package quarkmk

import (
	"bufio"
	"os"
	"strings"

	"shanhu.io/text/lexing"
)

type manifestDep struct {
	name string
	pos  *lexing.Pos
}

// readManifest reads a dependency manifest: one module name per line. Blank
// lines and lines starting with '#' are skipped. A missing manifest declares
// no dependencies, and returns found as false.
func readManifest(f string) (deps []*manifestDep, found bool, errs []*lexing.Error) {
	file, err := os.Open(f)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, lexing.SingleErr(err)
	}
	defer file.Close()

	errList := lexing.NewErrorList()
	seen := make(map[string]bool)

	s := bufio.NewScanner(file)
	line := 0
	for s.Scan() {
		line++
		name := strings.TrimSpace(s.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		pos := &lexing.Pos{File: f, Line: line, Col: 1}
		if strings.ContainsAny(name, " \t") {
			errList.Errorf(pos, "invalid module name %q", name)
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		deps = append(deps, &manifestDep{name: name, pos: pos})
	}
	if err := s.Err(); err != nil {
		errList.Add(&lexing.Error{
			Pos: &lexing.Pos{File: f, Line: line},
			Err: err,
		})
	}

	if errs := errList.Errs(); errs != nil {
		return nil, true, errs
	}
	return deps, true, nil
}
