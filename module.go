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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
)

const manifestFileName = "deps.txt"

// module is a compilable unit: the engine core or a plugin.
type module struct {
	name string
	dir  string // source root
	core bool
}

func (m *module) manifest() string {
	if m.core {
		return ""
	}
	return filepath.Join(m.dir, manifestFileName)
}

// discoverModules lists the core module followed by all plugins, sorted by
// name.
func discoverModules(env *env) ([]*module, error) {
	ws := env.ws
	coreDir := env.coreDir()
	ok, err := osutil.IsDir(coreDir)
	if err != nil {
		return nil, errcode.Annotate(err, "check core dir")
	}
	if !ok {
		return nil, errcode.NotFoundf("core module dir %q not found", coreDir)
	}
	mods := []*module{{name: ws.Core, dir: coreDir, core: true}}

	pluginsDir := env.pluginsDir()
	ok, err = osutil.IsDir(pluginsDir)
	if err != nil {
		return nil, errcode.Annotate(err, "check plugins dir")
	}
	if !ok {
		return mods, nil
	}

	entries, err := os.ReadDir(pluginsDir)
	if err != nil {
		return nil, errcode.Annotate(err, "list plugins")
	}
	var plugins []*module
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if name == ws.Core || name == ws.Loader {
			return nil, errcode.InvalidArgf(
				"plugin %q uses a reserved name", name,
			)
		}
		plugins = append(plugins, &module{
			name: name,
			dir:  filepath.Join(pluginsDir, name),
		})
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].name < plugins[j].name
	})
	return append(mods, plugins...), nil
}
