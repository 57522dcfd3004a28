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
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
)

// Backend is the external build system. It resolves and builds a full
// target graph on its own; the builder only tells it which named targets
// to build.
type Backend interface {
	// Configured checks if the mode has a configured build directory.
	Configured(mode string) (bool, error)

	// Configure runs the configure step for a mode.
	Configure(mode string) error

	// Build builds one target.
	Build(mode, target string) error
}

const cmakeCacheFile = "CMakeCache.txt"

func cmakeConfigureArgs(ws *Workspace, srcDir, buildDir, mode string) (
	[]string, error,
) {
	t, ok := cmakeBuildTypes[mode]
	if !ok {
		return nil, errcode.InvalidArgf("unknown build mode %q", mode)
	}
	args := []string{
		"-B", buildDir,
		"-G", ws.Generator,
		"-DCMAKE_BUILD_TYPE=" + t,
		"-DCMAKE_EXPORT_COMPILE_COMMANDS=ON",
	}
	args = append(args, ws.CMakeArgs...)
	return append(args, srcDir), nil
}

func cmakeBuildArgs(buildDir, target string) []string {
	return []string{"--build", buildDir, "--target", target}
}

func cmakeConfigured(env *env, mode string) (bool, error) {
	f := filepath.Join(env.modeDir(mode), cmakeCacheFile)
	return osutil.IsRegular(f)
}

// cmakeBackend runs cmake on the host.
type cmakeBackend struct {
	env *env
	bin string
}

func newCMakeBackend(env *env) *cmakeBackend {
	return &cmakeBackend{env: env, bin: "cmake"}
}

func (b *cmakeBackend) Configured(mode string) (bool, error) {
	return cmakeConfigured(b.env, mode)
}

// buildDir returns the absolute build directory of a mode. cmake runs in
// the workspace root, so a relative path would be joined twice.
func (b *cmakeBackend) buildDir(mode string) (string, error) {
	dir, err := filepath.Abs(b.env.modeDir(mode))
	if err != nil {
		return "", errcode.Annotate(err, "get absolute build dir")
	}
	return dir, nil
}

func (b *cmakeBackend) Configure(mode string) error {
	src, err := filepath.Abs(b.env.root())
	if err != nil {
		return errcode.Annotate(err, "get absolute root dir")
	}
	buildDir, err := b.buildDir(mode)
	if err != nil {
		return err
	}
	args, err := cmakeConfigureArgs(b.env.ws, src, buildDir, mode)
	if err != nil {
		return err
	}
	return runCmd(src, b.bin, args...)
}

func (b *cmakeBackend) Build(mode, target string) error {
	buildDir, err := b.buildDir(mode)
	if err != nil {
		return err
	}
	args := cmakeBuildArgs(buildDir, target)
	return runCmd(b.env.root(), b.bin, args...)
}
