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
	"sort"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/strutil"
	"shanhu.io/text/lexing"
)

// depGraph holds the module dependencies. deps[a] lists what a depends on;
// inverse[b] is the set of modules that depend on b.
type depGraph struct {
	core    string
	names   []string
	deps    map[string][]string
	inverse map[string]map[string]bool
}

// makeDepGraph builds the graph from declared dependencies. The core module
// is prepended to the dependency list of every other module.
func makeDepGraph(core string, declared map[string][]string) *depGraph {
	g := &depGraph{
		core:    core,
		deps:    make(map[string][]string),
		inverse: make(map[string]map[string]bool),
	}
	g.inverse[core] = make(map[string]bool)

	names := make(map[string]bool)
	names[core] = true
	for name := range declared {
		names[name] = true
	}
	g.names = strutil.SortedList(names)

	for _, name := range g.names {
		if name == core {
			g.deps[name] = nil
			continue
		}
		deps := []string{core}
		for _, d := range declared[name] {
			if d != core {
				deps = append(deps, d)
			}
		}
		g.deps[name] = deps
		for _, d := range deps {
			set := g.inverse[d]
			if set == nil {
				set = make(map[string]bool)
				g.inverse[d] = set
			}
			set[name] = true
		}
	}
	return g
}

// buildDepGraph reads the manifests of all modules and builds the
// dependency graph.
func buildDepGraph(core string, mods []*module) (*depGraph, []*lexing.Error) {
	known := make(map[string]bool)
	for _, m := range mods {
		known[m.name] = true
	}

	errList := lexing.NewErrorList()
	declared := make(map[string][]string)
	for _, m := range mods {
		if m.core {
			declared[m.name] = nil
			continue
		}
		deps, found, errs := readManifest(m.manifest())
		if errs != nil {
			errList.AddAll(errs)
			continue
		}
		if !found {
			log.Printf("%s: no %s, no declared deps", m.name, manifestFileName)
		}

		var names []string
		for _, d := range deps {
			if d.name == m.name {
				errList.Errorf(d.pos, "module %q depends on itself", m.name)
				continue
			}
			if !known[d.name] {
				errList.Errorf(d.pos, "unknown module %q", d.name)
				continue
			}
			names = append(names, d.name)
		}
		declared[m.name] = names
	}
	if errs := errList.Errs(); errs != nil {
		return nil, errs
	}
	return makeDepGraph(core, declared), nil
}

// checkCycles returns an error naming the first dependency cycle found.
func (g *depGraph) checkCycles() error {
	done := make(map[string]bool)
	t := newDepTracer()

	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		if !t.push(name) {
			return errcode.InvalidArgf(
				"dependency cycle: %s", strings.Join(t.cycle(name), " -> "),
			)
		}
		for _, d := range g.deps[name] {
			if err := visit(d); err != nil {
				return err
			}
		}
		t.pop()
		done[name] = true
		return nil
	}

	for _, name := range g.names {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// order sorts the modules in set so that dependencies come before
// dependents, also through modules outside of the set. Ties are broken by
// name. The graph must be acyclic.
func (g *depGraph) order(set map[string]bool) []string {
	var names []string
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)

	var ret []string
	visited := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		deps := append([]string(nil), g.deps[name]...)
		sort.Strings(deps)
		for _, d := range deps {
			visit(d)
		}
		if set[name] {
			ret = append(ret, name)
		}
	}
	for _, name := range names {
		visit(name)
	}
	return ret
}
