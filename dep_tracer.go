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

// depTracer tracks the dependency path of a depth-first walk.
type depTracer struct {
	trace []string
	m     map[string]bool
}

func newDepTracer() *depTracer {
	return &depTracer{
		m: make(map[string]bool),
	}
}

// push returns false if name is already on the path.
func (t *depTracer) push(name string) bool {
	if t.m[name] {
		return false
	}
	t.trace = append(t.trace, name)
	t.m[name] = true
	return true
}

func (t *depTracer) pop() {
	n := len(t.trace)
	if n == 0 {
		return
	}
	last := t.trace[n-1]
	delete(t.m, last)
	t.trace = t.trace[:n-1]
}

// cycle returns the path from the earlier visit of name back to name.
func (t *depTracer) cycle(name string) []string {
	for i, n := range t.trace {
		if n == name {
			ret := append([]string(nil), t.trace[i:]...)
			return append(ret, name)
		}
	}
	return []string{name}
}
