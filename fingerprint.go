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
	"bytes"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"shanhu.io/misc/errcode"
)

// fingerprint maps a source file path, relative to the module directory and
// in slash form, to its modification timestamp.
type fingerprint map[string]int64

type sourceFilter struct {
	exts  map[string]bool
	names map[string]bool
}

func newSourceFilter(ws *Workspace) *sourceFilter {
	f := &sourceFilter{
		exts:  make(map[string]bool),
		names: make(map[string]bool),
	}
	for _, ext := range ws.SourceExts {
		f.exts[strings.ToLower(ext)] = true
	}
	for _, name := range ws.SourceNames {
		f.names[name] = true
	}
	return f
}

func (f *sourceFilter) match(name string) bool {
	if f.names[name] {
		return true
	}
	return f.exts[strings.ToLower(filepath.Ext(name))]
}

// scanFingerprint walks dir and stats all source files. Hidden files and
// directories are ignored.
func scanFingerprint(dir string, filter *sourceFilter) (fingerprint, error) {
	fp := make(fingerprint)
	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if p != dir && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !filter.match(name) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return errcode.Annotatef(err, "stat %q", p)
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return errcode.Annotatef(err, "get relative path for %q", p)
		}
		fp[filepath.ToSlash(rel)] = info.ModTime().UnixNano()
		return nil
	}
	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, err
	}
	return fp, nil
}

func (fp fingerprint) paths() []string {
	var ps []string
	for p := range fp {
		ps = append(ps, p)
	}
	sort.Strings(ps)
	return ps
}

// fingerprintDiff is the result of comparing two fingerprints.
type fingerprintDiff struct {
	changed bool // any file added, removed or touched
	reinit  bool // the file set changed
}

func diffFingerprint(prev, cur fingerprint) *fingerprintDiff {
	diff := new(fingerprintDiff)
	if len(prev) != len(cur) {
		diff.reinit = true
	}
	for p, t := range cur {
		pt, ok := prev[p]
		if !ok {
			diff.reinit = true
		} else if pt != t {
			diff.changed = true
		}
	}
	if diff.reinit {
		diff.changed = true
	}
	return diff
}

// pendingFingerprint keeps the file set of fp with every timestamp zeroed.
// Saved after a configure whose build then failed, it keeps the module
// changed for the next run without raising reinit again.
func pendingFingerprint(fp fingerprint) fingerprint {
	ret := make(fingerprint)
	for p := range fp {
		ret[p] = 0
	}
	return ret
}

func parseFingerprint(f string, bs []byte) fingerprint {
	fp := make(fingerprint)
	s := bufio.NewScanner(bytes.NewReader(bs))
	line := 0
	for s.Scan() {
		line++
		text := s.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		// Paths may carry commas; the timestamp never does.
		i := strings.LastIndex(text, ",")
		if i <= 0 {
			log.Printf("%s:%d: malformed line, ignored", f, line)
			continue
		}
		t, err := strconv.ParseInt(text[i+1:], 10, 64)
		if err != nil {
			log.Printf("%s:%d: bad timestamp, ignored", f, line)
			continue
		}
		fp[text[:i]] = t
	}
	return fp
}

func formatFingerprint(fp fingerprint) []byte {
	buf := new(bytes.Buffer)
	for _, p := range fp.paths() {
		fmt.Fprintf(buf, "%s,%d\n", p, fp[p])
	}
	return buf.Bytes()
}

// trackStore keeps the fingerprint cache files, one per module.
type trackStore struct {
	dir string
}

const trackFileExt = ".txt"

func (s *trackStore) file(name string) string {
	return filepath.Join(s.dir, name+trackFileExt)
}

// load reads the cached fingerprint of a module. found is false when there
// is no cache yet.
func (s *trackStore) load(name string) (fp fingerprint, found bool, err error) {
	f := s.file(name)
	bs, err := os.ReadFile(f)
	if err != nil {
		if os.IsNotExist(err) {
			return make(fingerprint), false, nil
		}
		return nil, false, errcode.Annotatef(err, "read %q", f)
	}
	return parseFingerprint(f, bs), true, nil
}

// persist overwrites the cache file of a module.
func (s *trackStore) persist(name string, fp fingerprint) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errcode.Annotate(err, "make track dir")
	}
	f := s.file(name)
	tmp := f + ".tmp"
	if err := os.WriteFile(tmp, formatFingerprint(fp), 0644); err != nil {
		return errcode.Annotatef(err, "write %q", tmp)
	}
	if err := os.Rename(tmp, f); err != nil {
		return errcode.Annotatef(err, "rename %q", tmp)
	}
	return nil
}

// tracked lists the names of all modules that have a cache file.
func (s *trackStore) tracked() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errcode.Annotate(err, "list track dir")
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, trackFileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, trackFileExt))
	}
	return names, nil
}

func (s *trackStore) remove(name string) error {
	if err := os.Remove(s.file(name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
