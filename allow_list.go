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
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"shanhu.io/misc/errcode"
)

// targetDirsFile is where cmake lists the directory of every target it
// generates.
const targetDirsFile = "CMakeFiles/TargetDirectories.txt"

// allowPrefixes returns the directories, in slash form and ending with a
// slash, under which targets produce valid shared libraries.
func allowPrefixes(ws *Workspace, buildDir string) []string {
	base := filepath.ToSlash(buildDir)
	dirs := []string{ws.CoreDir, ws.PluginsDir}
	dirs = append(dirs, ws.LibDirs...)

	var ps []string
	for _, d := range dirs {
		ps = append(ps, path.Join(base, d)+"/")
	}
	return ps
}

// scanTargetDirs reads the target directory list and adds the name of
// every target under one of the prefixes into allow. A target directory
// looks like "<dir>/CMakeFiles/<target>.dir".
func scanTargetDirs(r io.Reader, prefixes []string, allow map[string]bool) error {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := filepath.ToSlash(strings.TrimSpace(s.Text()))
		if line == "" {
			continue
		}
		matched := false
		for _, p := range prefixes {
			if strings.HasPrefix(line, p) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		base := path.Base(line)
		if !strings.HasSuffix(base, ".dir") {
			continue
		}
		if path.Base(path.Dir(line)) != "CMakeFiles" {
			continue
		}
		allow[strings.TrimSuffix(base, ".dir")] = true
	}
	return s.Err()
}

const cacheDirKey = "CMAKE_CACHEFILE_DIR:INTERNAL="

// cacheBuildDir returns the build directory that cmake recorded in its
// cache. It differs from the host path when cmake ran in a container.
func cacheBuildDir(f string) (string, error) {
	file, err := os.Open(f)
	if err != nil {
		return "", err
	}
	defer file.Close()

	s := bufio.NewScanner(file)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if strings.HasPrefix(line, cacheDirKey) {
			return strings.TrimPrefix(line, cacheDirKey), nil
		}
	}
	return "", s.Err()
}

// readAllowList returns the names of the shared libraries that are valid
// outputs of the mode's current configuration.
func readAllowList(env *env, mode string) (map[string]bool, error) {
	allow := make(map[string]bool)
	for _, name := range env.ws.InfraLibs {
		allow[name] = true
	}

	buildDir, err := filepath.Abs(env.modeDir(mode))
	if err != nil {
		return nil, errcode.Annotate(err, "get absolute build dir")
	}
	f := filepath.Join(buildDir, filepath.FromSlash(targetDirsFile))
	file, err := os.Open(f)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("%s not found, only infrastructure libs allowed", f)
			return allow, nil
		}
		return nil, errcode.Annotate(err, "open target dirs")
	}
	defer file.Close()

	recorded, err := cacheBuildDir(filepath.Join(buildDir, cmakeCacheFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, errcode.Annotate(err, "read cmake cache")
	}
	if recorded != "" {
		buildDir = recorded
	}

	prefixes := allowPrefixes(env.ws, buildDir)
	if err := scanTargetDirs(file, prefixes, allow); err != nil {
		return nil, errcode.Annotate(err, "read target dirs")
	}
	return allow, nil
}

var sharedLibExts = []string{".dll", ".so", ".dylib"}

// isSharedLib checks if a file name looks like a shared library, including
// versioned names such as "libfoo.so.1.2".
func isSharedLib(name string) bool {
	for _, ext := range sharedLibExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return strings.Contains(name, ".so.")
}

// libNameCandidates lists the names a shared library file may have been
// built from, most specific first.
func libNameCandidates(file string, suffixes []string) []string {
	name := path.Base(filepath.ToSlash(file))
	if i := strings.Index(name, ".so."); i > 0 {
		name = name[:i]
	} else {
		name = strings.TrimSuffix(name, path.Ext(name))
	}

	bases := []string{name}
	if strings.HasPrefix(name, "lib") && len(name) > len("lib") {
		bases = append(bases, strings.TrimPrefix(name, "lib"))
	}

	var ret []string
	for _, b := range bases {
		ret = append(ret, b)
		for _, s := range suffixes {
			if strings.HasSuffix(b, s) && len(b) > len(s) {
				ret = append(ret, strings.TrimSuffix(b, s))
			}
		}
	}
	return ret
}

// canonicalLibName returns the allowed name of a shared library file, and
// false when the file is not a known output.
func canonicalLibName(
	file string, suffixes []string, allow map[string]bool,
) (string, bool) {
	for _, name := range libNameCandidates(file, suffixes) {
		if allow[name] {
			return name, true
		}
	}
	return "", false
}
