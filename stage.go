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
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/jsonutil"
	"shanhu.io/misc/osutil"
)

// StageManifest records what went into a staging directory.
type StageManifest struct {
	Mode    string
	Loader  string
	Core    string
	Plugins []string `json:",omitempty"`

	// Shared libraries copied into the stage root.
	Libs []string `json:",omitempty"`

	// Shared libraries in the build directory that are not outputs of the
	// current configuration, relative to the build directory.
	Skipped []string `json:",omitempty"`
}

const stageManifestFile = "stage.json"

type stager struct {
	env   *env
	mode  string
	dir   string
	allow map[string]bool
}

// stage wipes the staging directory of the mode, and then copies the
// loader, the module trees and the allowed shared libraries into it.
func stage(
	env *env, mode string, mods []*module, allow map[string]bool,
) (*StageManifest, error) {
	s := &stager{
		env:   env,
		mode:  mode,
		dir:   env.stageDir(mode),
		allow: allow,
	}
	return s.stage(mods)
}

func (s *stager) stage(mods []*module) (*StageManifest, error) {
	log.Printf("stage %s into %s", s.mode, s.dir)
	if err := os.RemoveAll(s.dir); err != nil {
		return nil, errcode.Annotate(err, "clear stage dir")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, errcode.Annotate(err, "make stage dir")
	}

	m := &StageManifest{Mode: s.mode}

	loader := s.env.loaderFile(s.mode)
	ok, err := osutil.IsRegular(loader)
	if err != nil {
		return nil, errcode.Annotate(err, "check loader")
	}
	if !ok {
		return nil, errcode.NotFoundf("loader %q not found", loader)
	}
	m.Loader = filepath.Base(loader)
	if err := copyFile(loader, filepath.Join(s.dir, m.Loader)); err != nil {
		return nil, errcode.Annotate(err, "copy loader")
	}

	ws := s.env.ws
	for _, mod := range mods {
		var to string
		if mod.core {
			to = filepath.Join(s.dir, filepath.FromSlash(ws.CoreDir))
			m.Core = mod.name
		} else {
			to = filepath.Join(
				s.dir, filepath.FromSlash(ws.PluginsDir), mod.name,
			)
			m.Plugins = append(m.Plugins, mod.name)
		}
		n, err := copyTree(mod.dir, to)
		if err != nil {
			return nil, errcode.Annotatef(err, "copy module %q", mod.name)
		}
		log.Printf("copied %s (%d files)", mod.name, n)
	}

	if err := s.copyLibs(m); err != nil {
		return nil, errcode.Annotate(err, "copy shared libs")
	}

	f := filepath.Join(s.dir, stageManifestFile)
	if err := jsonutil.WriteFile(f, m); err != nil {
		return nil, errcode.Annotate(err, "write stage manifest")
	}
	return m, nil
}

func (s *stager) copyLibs(m *StageManifest) error {
	buildDir := s.env.modeDir(s.mode)
	copied := make(map[string]string)
	suffixes := s.env.ws.DebugSuffixes

	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isSharedLib(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(buildDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if _, ok := canonicalLibName(p, suffixes, s.allow); !ok {
			log.Printf("skip stale lib %s", rel)
			m.Skipped = append(m.Skipped, rel)
			return nil
		}

		name := d.Name()
		if prev, ok := copied[name]; ok {
			log.Printf("skip %s, already copied from %s", rel, prev)
			return nil
		}
		if err := copyFile(p, filepath.Join(s.dir, name)); err != nil {
			return errcode.Annotatef(err, "copy %q", rel)
		}
		copied[name] = rel
		m.Libs = append(m.Libs, name)
		return nil
	}

	ok, err := osutil.IsDir(buildDir)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return filepath.WalkDir(buildDir, walk)
}
