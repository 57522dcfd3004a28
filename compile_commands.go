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
	"log"
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
)

const compileCommandsFile = "compile_commands.json"

// exportCompileCommands copies the compilation database of a mode to the
// workspace root, where editors and clangd look for it. A mode without one
// is skipped.
func exportCompileCommands(env *env, mode string) error {
	src := filepath.Join(env.modeDir(mode), compileCommandsFile)
	ok, err := osutil.IsRegular(src)
	if err != nil {
		return errcode.Annotate(err, "check compile commands")
	}
	if !ok {
		log.Printf("no %s in %s build", compileCommandsFile, mode)
		return nil
	}
	dst := env.root(compileCommandsFile)
	if err := copyFile(src, dst); err != nil {
		return errcode.Annotate(err, "copy compile commands")
	}
	return nil
}
