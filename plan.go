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
	"shanhu.io/misc/strutil"
)

// Plan is what a build run is going to do.
type Plan struct {
	Mode string

	// Modules whose fingerprint changed.
	Changed []string

	// Modules to rebuild, dependencies first, followed by the loader.
	Targets []string

	// Modules whose source file set changed, or that have no fingerprint
	// yet.
	Reinit []string

	// Plugins that were removed since the last build.
	Removed []string

	// If the backend configure step is going to run.
	Configure bool
}

// propagate returns the rebuild set: every changed module and everything
// that transitively depends on one, plus the loader which is always
// relinked.
func propagate(
	changed []string, inverse map[string]map[string]bool, loader string,
) map[string]bool {
	rebuild := make(map[string]bool)
	frontier := append([]string(nil), changed...)
	for len(frontier) > 0 {
		n := len(frontier) - 1
		name := frontier[n]
		frontier = frontier[:n]
		if rebuild[name] {
			continue
		}
		rebuild[name] = true
		for _, dep := range strutil.SortedList(inverse[name]) {
			if !rebuild[dep] {
				frontier = append(frontier, dep)
			}
		}
	}
	rebuild[loader] = true
	return rebuild
}

// rebuildTargets returns the rebuild set in build order: modules sorted by
// dependency, and the loader last.
func rebuildTargets(g *depGraph, changed []string, loader string) []string {
	set := propagate(changed, g.inverse, loader)
	delete(set, loader)
	return append(g.order(set), loader)
}
