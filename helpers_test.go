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
	"runtime"
	"testing"
	"time"
)

func writeTestFile(t *testing.T, f, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(f), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(f, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// touchTestFile moves the modification time of f forward.
func touchTestFile(t *testing.T, f string) {
	t.Helper()
	info, err := os.Stat(f)
	if err != nil {
		t.Fatal(err)
	}
	mt := info.ModTime().Add(3 * time.Second)
	if err := os.Chtimes(f, mt, mt); err != nil {
		t.Fatal(err)
	}
}

// newTestEnv creates a workspace with a core module and the given plugins.
// deps maps a plugin to the content of its manifest; plugins without an
// entry have no manifest.
func newTestEnv(
	t *testing.T, plugins []string, deps map[string]string,
) *env {
	t.Helper()
	root := t.TempDir()
	e := newEnv(&Config{Root: root}, DefaultWorkspace())

	writeTestFile(t, e.root("quark", "CMakeLists.txt"), "project(quark)\n")
	writeTestFile(t, e.root("quark", "core.cpp"), "int core;\n")
	for _, p := range plugins {
		writeTestFile(t, e.root("plugins", p, p+".cpp"), "int "+p+";\n")
		if d, ok := deps[p]; ok {
			writeTestFile(t, e.root("plugins", p, manifestFileName), d)
		}
	}
	return e
}

type fakeBackend struct {
	configured map[string]bool
	configures []string
	builds     []string

	failConfigure bool
	failTarget    string

	// Called after each successful target build.
	onBuild func(mode, target string)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{configured: make(map[string]bool)}
}

func (b *fakeBackend) Configured(mode string) (bool, error) {
	return b.configured[mode], nil
}

func (b *fakeBackend) Configure(mode string) error {
	b.configures = append(b.configures, mode)
	if b.failConfigure {
		return exitError(1)
	}
	b.configured[mode] = true
	return nil
}

func (b *fakeBackend) Build(mode, target string) error {
	b.builds = append(b.builds, target)
	if target == b.failTarget {
		return exitError(2)
	}
	if b.onBuild != nil {
		b.onBuild(mode, target)
	}
	return nil
}

func (b *fakeBackend) reset() {
	b.configures = nil
	b.builds = nil
}

// chdirTest changes the working directory to dir until the test ends.
func chdirTest(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}

// writeTestScript writes an executable shell script. Tests using it are
// skipped on Windows.
func writeTestScript(t *testing.T, f, content string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a posix shell")
	}
	writeTestFile(t, f, "#!/bin/sh\n"+content)
	if err := os.Chmod(f, 0755); err != nil {
		t.Fatal(err)
	}
}

// physicalPath resolves symlinks in an absolute path, the way a child
// process sees its working directory.
func physicalPath(t *testing.T, p string) string {
	t.Helper()
	abs, err := filepath.Abs(p)
	if err != nil {
		t.Fatal(err)
	}
	ret, err := filepath.EvalSymlinks(abs)
	if err != nil {
		t.Fatal(err)
	}
	return ret
}
