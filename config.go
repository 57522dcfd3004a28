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
	"path"
	"runtime"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/jsonx"
	"shanhu.io/misc/osutil"
)

// Config provides the configuration to start a builder.
type Config struct {
	Root      string // Workspace root directory.
	Out       string // Build output directory, relative to Root if not absolute.
	Workspace string // Workspace file, relative to Root. Optional.
}

const (
	// WorkspaceFile is the default name of the workspace file.
	WorkspaceFile = "QUARK.jsonx"

	defaultOut = "build"
)

// Workspace is the structure of the QUARK.jsonx file. It describes where
// the engine core and the plugins live, and how the backend lays out its
// outputs. Every field is optional.
type Workspace struct {
	// Name of the core module, which every plugin depends on.
	Core string `json:",omitempty"`

	// Source directory of the core module.
	CoreDir string `json:",omitempty"`

	// Directory that holds one sub directory per plugin.
	PluginsDir string `json:",omitempty"`

	// Name of the host loader target. It is relinked on every build.
	Loader string `json:",omitempty"`

	// Path of the loader executable inside a mode's build directory.
	LoaderPath string `json:",omitempty"`

	// CMake generator.
	Generator string `json:",omitempty"`

	// Extra arguments for the configure step.
	CMakeArgs []string `json:",omitempty"`

	// File extensions and exact file names that count as module sources.
	SourceExts  []string `json:",omitempty"`
	SourceNames []string `json:",omitempty"`

	// Known infrastructure shared libraries that are always staged.
	InfraLibs []string `json:",omitempty"`

	// Extra directories under the build directory whose targets produce
	// valid shared libraries.
	LibDirs []string `json:",omitempty"`

	// Suffixes that debug builds append to shared library names.
	DebugSuffixes []string `json:",omitempty"`

	// Docker image that carries the toolchain. When empty, the backend runs
	// on the host. The image must stay up when started, and the container
	// runs the cmake commands with the workspace mounted.
	Toolchain string `json:",omitempty"`
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

func (w *Workspace) fillDefaults() {
	if w.Core == "" {
		w.Core = "quark"
	}
	if w.CoreDir == "" {
		w.CoreDir = w.Core
	}
	if w.PluginsDir == "" {
		w.PluginsDir = "plugins"
	}
	if w.Loader == "" {
		w.Loader = "quark_loader"
	}
	if w.LoaderPath == "" {
		w.LoaderPath = path.Join(
			w.CoreDir, "src", w.Loader, w.Loader+exeSuffix(),
		)
	}
	if w.Generator == "" {
		w.Generator = "Ninja"
	}
	if w.SourceExts == nil {
		w.SourceExts = []string{
			".c", ".cc", ".cpp", ".cxx",
			".h", ".hh", ".hpp", ".inl",
		}
	}
	if w.SourceNames == nil {
		w.SourceNames = []string{"CMakeLists.txt"}
	}
	if w.InfraLibs == nil {
		w.InfraLibs = []string{"quark_core", "quark_platform", "glfw"}
	}
	if w.LibDirs == nil {
		w.LibDirs = []string{"lib", "_deps"}
	}
	if w.DebugSuffixes == nil {
		w.DebugSuffixes = []string{"_d", "d"}
	}
}

// DefaultWorkspace returns the workspace used when there is no workspace
// file.
func DefaultWorkspace() *Workspace {
	ws := new(Workspace)
	ws.fillDefaults()
	return ws
}

// ReadWorkspace reads a workspace file. A missing file gives the default
// workspace.
func ReadWorkspace(f string) (*Workspace, error) {
	ok, err := osutil.IsRegular(f)
	if err != nil {
		return nil, errcode.Annotate(err, "check workspace file")
	}
	ws := new(Workspace)
	if ok {
		if err := jsonx.ReadFile(f, ws); err != nil {
			return nil, errcode.Annotate(err, "read workspace file")
		}
	}
	ws.fillDefaults()
	if ws.Core == ws.Loader {
		return nil, errcode.InvalidArgf(
			"core and loader are both named %q", ws.Core,
		)
	}
	return ws, nil
}
