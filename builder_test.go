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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
)

func newTestBuilder(
	t *testing.T, plugins []string, deps map[string]string,
) (*Builder, *fakeBackend) {
	t.Helper()
	e := newTestEnv(t, plugins, deps)
	backend := newFakeBackend()
	backend.onBuild = func(mode, target string) {
		if target == e.ws.Loader {
			writeTestFile(t, e.loaderFile(mode), "loader")
		}
	}
	b := &Builder{env: e, backend: backend, now: time.Now}
	return b, backend
}

func testBuild(t *testing.T, b *Builder, flags *Flags) *Flags {
	t.Helper()
	flags, err := b.Build(ModeDebug, flags)
	if err != nil {
		t.Fatal("build: ", err)
	}
	return flags
}

func testPlan(t *testing.T, b *Builder, flags *Flags) *Plan {
	t.Helper()
	p, err := b.Plan(ModeDebug, flags)
	if err != nil {
		t.Fatal("plan: ", err)
	}
	return p
}

func TestBuilderIncremental(t *testing.T) {
	b, backend := newTestBuilder(
		t, []string{"A", "B", "C"}, map[string]string{"B": "A\n"},
	)

	p := testPlan(t, b, NewFlags())
	if !p.Configure {
		t.Error("first plan should configure")
	}
	if ok, err := osutil.IsDir(b.env.trackDir()); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Error("plan wrote fingerprints")
	}

	// First build: everything.
	flags := testBuild(t, b, NewFlags())
	if diff := cmp.Diff([]string{ModeDebug}, backend.configures); diff != "" {
		t.Errorf("configures (-want +got):\n%s", diff)
	}
	want := []string{"quark", "A", "B", "C", "quark_loader"}
	if diff := cmp.Diff(want, backend.builds); diff != "" {
		t.Errorf("first build (-want +got):\n%s", diff)
	}
	if len(flags.Reconfigure) != 0 {
		t.Errorf("reconfigure flags left: %v", flags.Reconfigure)
	}
	staged, err := osutil.IsRegular(
		filepath.Join(b.StageDir(ModeDebug), stageManifestFile),
	)
	if err != nil {
		t.Fatal(err)
	}
	if !staged {
		t.Error("stage manifest missing")
	}

	// Nothing changed: only the loader is relinked.
	backend.reset()
	flags = testBuild(t, b, flags)
	if len(backend.configures) != 0 {
		t.Errorf("unexpected configure: %v", backend.configures)
	}
	if diff := cmp.Diff([]string{"quark_loader"}, backend.builds); diff != "" {
		t.Errorf("no-op build (-want +got):\n%s", diff)
	}

	// A changed: B depends on it, C does not.
	touchTestFile(t, b.env.root("plugins", "A", "A.cpp"))
	p = testPlan(t, b, flags)
	if diff := cmp.Diff([]string{"A"}, p.Changed); diff != "" {
		t.Errorf("changed (-want +got):\n%s", diff)
	}
	if p.Configure || len(p.Reinit) != 0 {
		t.Errorf("touching a file should not reconfigure: %+v", p)
	}
	backend.reset()
	flags = testBuild(t, b, flags)
	want = []string{"A", "B", "quark_loader"}
	if diff := cmp.Diff(want, backend.builds); diff != "" {
		t.Errorf("build after touch (-want +got):\n%s", diff)
	}

	// A new file in C changes its file set.
	writeTestFile(t, b.env.root("plugins", "C", "extra.h"), "#pragma once\n")
	p = testPlan(t, b, flags)
	if diff := cmp.Diff([]string{"C"}, p.Reinit); diff != "" {
		t.Errorf("reinit (-want +got):\n%s", diff)
	}
	if !p.Configure {
		t.Error("new file should reconfigure")
	}
	backend.reset()
	flags = testBuild(t, b, flags)
	if diff := cmp.Diff([]string{ModeDebug}, backend.configures); diff != "" {
		t.Errorf("configures (-want +got):\n%s", diff)
	}
	want = []string{"C", "quark_loader"}
	if diff := cmp.Diff(want, backend.builds); diff != "" {
		t.Errorf("build after new file (-want +got):\n%s", diff)
	}

	// The core changed: everything.
	touchTestFile(t, b.env.root("quark", "core.cpp"))
	p = testPlan(t, b, flags)
	want = []string{"quark", "A", "B", "C", "quark_loader"}
	if diff := cmp.Diff(want, p.Targets); diff != "" {
		t.Errorf("targets after core change (-want +got):\n%s", diff)
	}

	entries, err := b.History(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Errorf("got %d history entries, want 4", len(entries))
	}
}

func TestBuilderFailedTarget(t *testing.T) {
	b, backend := newTestBuilder(
		t, []string{"A", "B"}, map[string]string{"B": "A\n"},
	)
	flags := testBuild(t, b, NewFlags())

	touchTestFile(t, b.env.root("plugins", "A", "A.cpp"))
	backend.reset()
	backend.failTarget = "B"
	flags, err := b.Build(ModeDebug, flags)
	if err == nil {
		t.Fatal("build should fail")
	}
	var te *TargetError
	if !errors.As(err, &te) || te.Target != "B" {
		t.Fatalf("got error %q, want a failure of B", err)
	}
	if flags == nil {
		t.Fatal("failed build returned no flags")
	}
	if diff := cmp.Diff([]string{"A", "B"}, backend.builds); diff != "" {
		t.Errorf("builds (-want +got):\n%s", diff)
	}

	// The fingerprints are not saved, so A is still changed.
	p := testPlan(t, b, flags)
	if diff := cmp.Diff([]string{"A"}, p.Changed); diff != "" {
		t.Errorf("changed (-want +got):\n%s", diff)
	}

	entries, err := b.History(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d history entries, want 1", len(entries))
	}
	if e := entries[0]; e.OK() || e.Failed != "B" {
		t.Errorf("history entry %+v, want failed at B", e)
	}

	backend.reset()
	backend.failTarget = ""
	testBuild(t, b, flags)
	want := []string{"A", "B", "quark_loader"}
	if diff := cmp.Diff(want, backend.builds); diff != "" {
		t.Errorf("retry builds (-want +got):\n%s", diff)
	}
}

func TestBuilderFailedConfigure(t *testing.T) {
	b, backend := newTestBuilder(t, []string{"A"}, nil)
	backend.failConfigure = true

	flags, err := b.Build(ModeDebug, NewFlags())
	if err == nil {
		t.Fatal("build should fail")
	}
	if !flags.Reconfigure[ModeDebug] {
		t.Error("reconfigure flag should stay after a failed configure")
	}
	if len(backend.builds) != 0 {
		t.Errorf("built after failed configure: %v", backend.builds)
	}
}

func TestBuilderRemovedPlugin(t *testing.T) {
	b, backend := newTestBuilder(t, []string{"A", "C"}, nil)
	flags := testBuild(t, b, NewFlags())

	if err := os.RemoveAll(b.env.root("plugins", "C")); err != nil {
		t.Fatal(err)
	}
	p := testPlan(t, b, flags)
	if diff := cmp.Diff([]string{"C"}, p.Removed); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}

	backend.reset()
	flags = testBuild(t, b, flags)
	if diff := cmp.Diff([]string{ModeDebug}, backend.configures); diff != "" {
		t.Errorf("configures (-want +got):\n%s", diff)
	}
	wantFlags := map[string]bool{
		ModeRelease:          true,
		ModeReleaseDebugInfo: true,
	}
	if diff := cmp.Diff(wantFlags, flags.Reconfigure); diff != "" {
		t.Errorf("reconfigure (-want +got):\n%s", diff)
	}

	_, found, err := b.store().load("C")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Error("fingerprint of removed plugin still tracked")
	}
}

func TestBuilderBadManifest(t *testing.T) {
	b, backend := newTestBuilder(
		t, []string{"A"}, map[string]string{"A": "physics\n"},
	)
	_, err := b.Build(ModeDebug, NewFlags())
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("got %v, want a load error", err)
	}
	if len(loadErr.Errs) != 1 {
		t.Errorf("got %d errors, want 1", len(loadErr.Errs))
	}
	if len(backend.builds) != 0 || len(backend.configures) != 0 {
		t.Error("backend called with a bad manifest")
	}
}

func TestBuilderCycle(t *testing.T) {
	b, _ := newTestBuilder(t, []string{"A", "B"}, map[string]string{
		"A": "B\n",
		"B": "A\n",
	})
	if _, err := b.Plan(ModeDebug, NewFlags()); err == nil {
		t.Error("cycle should fail the plan")
	}
}

func TestBuilderFailedFirstBuild(t *testing.T) {
	b, backend := newTestBuilder(t, []string{"A"}, nil)
	backend.failTarget = "A"
	flags, err := b.Build(ModeDebug, NewFlags())
	if err == nil {
		t.Fatal("build should fail")
	}

	// Configured once already: the retry rebuilds without a new configure.
	p := testPlan(t, b, flags)
	if len(p.Reinit) != 0 || p.Configure {
		t.Errorf("retry should not reconfigure: %+v", p)
	}
	if diff := cmp.Diff([]string{"quark", "A"}, p.Changed); diff != "" {
		t.Errorf("changed (-want +got):\n%s", diff)
	}

	backend.reset()
	backend.failTarget = ""
	testBuild(t, b, flags)
	if len(backend.configures) != 0 {
		t.Errorf("unexpected configure: %v", backend.configures)
	}
	want := []string{"quark", "A", "quark_loader"}
	if diff := cmp.Diff(want, backend.builds); diff != "" {
		t.Errorf("retry builds (-want +got):\n%s", diff)
	}
}

func TestBuilderCompileCommands(t *testing.T) {
	b, _ := newTestBuilder(t, []string{"A"}, nil)
	const db = `[{"file": "quark/core.cpp"}]`
	writeTestFile(
		t, filepath.Join(b.env.modeDir(ModeDebug), compileCommandsFile), db,
	)
	testBuild(t, b, NewFlags())

	bs, err := os.ReadFile(b.env.root(compileCommandsFile))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(bs); got != db {
		t.Errorf("got %q, want %q", got, db)
	}
}

func TestBuilderSetup(t *testing.T) {
	b, backend := newTestBuilder(t, nil, nil)
	backend.configured[ModeDebug] = true

	flags, err := b.Setup(NewFlags())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Modes(), backend.configures); diff != "" {
		t.Errorf("configures (-want +got):\n%s", diff)
	}
	if len(flags.Reconfigure) != 0 {
		t.Errorf("reconfigure flags left: %v", flags.Reconfigure)
	}

	backend.reset()
	backend.failConfigure = true
	flags, err = b.Setup(NewFlags())
	if err == nil {
		t.Fatal("setup should fail")
	}
	for _, m := range Modes() {
		if !flags.Reconfigure[m] {
			t.Errorf("mode %q lost its reconfigure flag", m)
		}
	}
}

func TestBuilderRun(t *testing.T) {
	b, _ := newTestBuilder(t, nil, nil)
	stageDir := b.StageDir(ModeDebug)
	loader := filepath.Join(stageDir, filepath.Base(b.env.loaderFile(ModeDebug)))
	writeTestScript(t, loader, `echo "$(pwd -P) $*"`+"\n")

	out := new(bytes.Buffer)
	if err := b.Run("d", []string{"--plugin", "A"}, out); err != nil {
		t.Fatal(err)
	}
	want := physicalPath(t, stageDir) + " --plugin A\n"
	if got := out.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuilderRunNotStaged(t *testing.T) {
	b, _ := newTestBuilder(t, nil, nil)
	err := b.Run(ModeRelease, nil, nil)
	if !errcode.IsNotFound(err) {
		t.Errorf("got %v, want a not found error", err)
	}
}
