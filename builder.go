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
	"fmt"
	"io"
	"log"
	"path"
	"path/filepath"
	"strings"
	"time"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/osutil"
	"shanhu.io/text/lexing"
	"shanhu.io/virgo/dock"
)

// LoadError carries the positioned errors found in module manifests.
type LoadError struct {
	Errs []*lexing.Error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load modules got %d errors", len(e.Errs))
}

// Builder decides which modules need rebuilding, drives the backend to
// rebuild them, and stages the results.
type Builder struct {
	env     *env
	backend Backend
	now     func() time.Time
}

// NewBuilder creates a builder for a workspace.
func NewBuilder(config *Config) (*Builder, error) {
	root := config.Root
	if root == "" {
		root = "."
	}
	f := config.Workspace
	if f == "" {
		f = WorkspaceFile
	}
	if !filepath.IsAbs(f) {
		f = filepath.Join(root, f)
	}
	ws, err := ReadWorkspace(f)
	if err != nil {
		return nil, err
	}

	env := newEnv(config, ws)
	var backend Backend
	if ws.Toolchain != "" {
		backend = newDockBackend(env, dock.NewUnixClient(""), ws.Toolchain)
	} else {
		backend = newCMakeBackend(env)
	}
	return &Builder{
		env:     env,
		backend: backend,
		now:     time.Now,
	}, nil
}

// FlagsFile returns the file that keeps the persisted flags.
func (b *Builder) FlagsFile() string { return b.env.flagsFile() }

// StageDir returns the staging directory of a mode.
func (b *Builder) StageDir(mode string) string { return b.env.stageDir(mode) }

func (b *Builder) store() *trackStore {
	return &trackStore{dir: b.env.trackDir()}
}

type buildRun struct {
	plan *Plan
	mods []*module
	fps  map[string]fingerprint // new fingerprints of changed modules
}

func (b *Builder) prepare(mode string, flags *Flags) (*buildRun, error) {
	ws := b.env.ws
	mods, err := discoverModules(b.env)
	if err != nil {
		return nil, errcode.Annotate(err, "discover modules")
	}
	g, errs := buildDepGraph(ws.Core, mods)
	if errs != nil {
		return nil, &LoadError{Errs: errs}
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}

	store := b.store()
	filter := newSourceFilter(ws)
	p := &Plan{Mode: mode}
	fps := make(map[string]fingerprint)
	known := make(map[string]bool)

	for _, m := range mods {
		known[m.name] = true
		cur, err := scanFingerprint(m.dir, filter)
		if err != nil {
			return nil, errcode.Annotatef(err, "scan %q", m.name)
		}
		prev, found, err := store.load(m.name)
		if err != nil {
			return nil, errcode.Annotatef(err, "load fingerprint %q", m.name)
		}

		var diff *fingerprintDiff
		if !found {
			log.Printf("%s: no fingerprint yet", m.name)
			diff = &fingerprintDiff{changed: true, reinit: true}
		} else {
			diff = diffFingerprint(prev, cur)
		}
		if diff.reinit {
			p.Reinit = append(p.Reinit, m.name)
		}
		if diff.changed {
			p.Changed = append(p.Changed, m.name)
			fps[m.name] = cur
		}
	}

	tracked, err := store.tracked()
	if err != nil {
		return nil, err
	}
	for _, name := range tracked {
		if !known[name] {
			p.Removed = append(p.Removed, name)
		}
	}

	p.Targets = rebuildTargets(g, p.Changed, ws.Loader)

	reinit := len(p.Reinit) > 0 || len(p.Removed) > 0
	need, err := needConfigure(b.backend, flags, mode, reinit)
	if err != nil {
		return nil, err
	}
	p.Configure = need

	return &buildRun{plan: p, mods: mods, fps: fps}, nil
}

// Plan computes what a build of the mode would do, without building or
// writing anything.
func (b *Builder) Plan(mode string, flags *Flags) (*Plan, error) {
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	r, err := b.prepare(mode, flags.clone())
	if err != nil {
		return nil, err
	}
	return r.plan, nil
}

// Build rebuilds what changed since the last build of the mode and stages
// the results. It returns the updated flags, also when the build fails;
// the caller should persist them in both cases.
func (b *Builder) Build(mode string, flags *Flags) (*Flags, error) {
	flags = flags.clone()
	mode, err := ParseMode(mode)
	if err != nil {
		return flags, err
	}

	start := b.now()
	entry := &HistoryEntry{Start: start, Mode: mode}
	if err := b.build(mode, flags, entry); err != nil {
		entry.Err = err.Error()
		entry.Duration = b.now().Sub(start)
		b.record(entry)
		return flags, err
	}
	entry.Duration = b.now().Sub(start)
	b.record(entry)
	return flags, nil
}

func (b *Builder) build(mode string, flags *Flags, entry *HistoryEntry) error {
	r, err := b.prepare(mode, flags)
	if err != nil {
		return err
	}
	p := r.plan
	entry.Targets = p.Targets
	store := b.store()

	if len(p.Removed) > 0 {
		log.Printf("plugins removed: %s", strings.Join(p.Removed, ", "))
		flags.RequestReconfigure()
		for _, name := range p.Removed {
			if err := store.remove(name); err != nil {
				return errcode.Annotatef(err, "remove fingerprint %q", name)
			}
		}
	}
	reinit := len(p.Reinit) > 0
	if reinit {
		log.Printf("file set changed: %s", strings.Join(p.Reinit, ", "))
		flags.RequestReconfigure(mode)
	}

	d := &driver{backend: b.backend, flags: flags}
	if err := d.ensureConfigured(mode, reinit); err != nil {
		return err
	}
	if err := d.rebuild(mode, p.Targets); err != nil {
		if err, ok := err.(*TargetError); ok {
			entry.Failed = err.Target
		}
		for _, name := range p.Reinit {
			pending := pendingFingerprint(r.fps[name])
			if err := store.persist(name, pending); err != nil {
				log.Printf("save pending fingerprint %q: %s", name, err)
			}
		}
		return err
	}

	for _, name := range p.Changed {
		if err := store.persist(name, r.fps[name]); err != nil {
			return errcode.Annotatef(err, "save fingerprint %q", name)
		}
	}

	if _, err := b.stage(mode, r.mods); err != nil {
		return errcode.Annotate(err, "stage")
	}
	if err := exportCompileCommands(b.env, mode); err != nil {
		return err
	}
	log.Printf("%s build done", mode)
	return nil
}

// Setup runs the configure step of every build mode, and exports the
// compilation database of the debug mode. It returns the updated flags,
// also on failure.
func (b *Builder) Setup(flags *Flags) (*Flags, error) {
	flags = flags.clone()
	flags.RequestReconfigure()
	d := &driver{backend: b.backend, flags: flags}
	for _, mode := range Modes() {
		if err := d.ensureConfigured(mode, false); err != nil {
			return flags, err
		}
	}
	return flags, exportCompileCommands(b.env, ModeDebug)
}

// Run starts the staged loader of a mode in its staging directory, with
// args passed through. The loader's output goes to out, or to stdout when
// out is nil.
func (b *Builder) Run(mode string, args []string, out io.Writer) error {
	mode, err := ParseMode(mode)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(b.env.stageDir(mode))
	if err != nil {
		return errcode.Annotate(err, "get absolute stage dir")
	}
	loader := filepath.Join(dir, path.Base(b.env.ws.LoaderPath))
	ok, err := osutil.IsRegular(loader)
	if err != nil {
		return errcode.Annotate(err, "check loader")
	}
	if !ok {
		return errcode.NotFoundf("%q not staged, build %s first", loader, mode)
	}

	log.Printf("run %s", loader)
	return runJob(&execJob{
		dir:  dir,
		bin:  loader,
		args: args,
		out:  out,
	})
}

func (b *Builder) stage(mode string, mods []*module) (*StageManifest, error) {
	allow, err := readAllowList(b.env, mode)
	if err != nil {
		return nil, errcode.Annotate(err, "read allow list")
	}
	return stage(b.env, mode, mods, allow)
}

// Stage copies the outputs of the last build of the mode into its staging
// directory.
func (b *Builder) Stage(mode string) (*StageManifest, error) {
	mode, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	mods, err := discoverModules(b.env)
	if err != nil {
		return nil, errcode.Annotate(err, "discover modules")
	}
	return b.stage(mode, mods)
}

func (b *Builder) openHistory() (*history, error) {
	f, err := b.env.prepareOut(historyFile)
	if err != nil {
		return nil, errcode.Annotate(err, "make out dir")
	}
	return openHistory(f)
}

func (b *Builder) record(e *HistoryEntry) {
	h, err := b.openHistory()
	if err != nil {
		log.Printf("open history: %s", err)
		return
	}
	defer h.Close()
	if err := h.add(e); err != nil {
		log.Printf("record history: %s", err)
	}
}

// History returns the last n build runs, the latest first.
func (b *Builder) History(n int) ([]*HistoryEntry, error) {
	h, err := b.openHistory()
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.recent(n)
}
