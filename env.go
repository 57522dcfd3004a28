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
	"path"
	"path/filepath"
)

type env struct {
	rootDir string
	outDir  string
	ws      *Workspace
}

func newEnv(config *Config, ws *Workspace) *env {
	root := config.Root
	if root == "" {
		root = "."
	}
	out := config.Out
	if out == "" {
		out = defaultOut
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(root, out)
	}
	return &env{
		rootDir: root,
		outDir:  out,
		ws:      ws,
	}
}

func joinUnder(dir string, ps []string) string {
	if len(ps) == 0 {
		return dir
	}
	p := path.Join(ps...)
	return filepath.Join(dir, filepath.FromSlash(p))
}

func (e *env) root(ps ...string) string { return joinUnder(e.rootDir, ps) }

func (e *env) out(ps ...string) string { return joinUnder(e.outDir, ps) }

func (e *env) prepareOut(ps ...string) (string, error) {
	p := e.out(ps...)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return p, nil
}

// modeDir is the backend build directory of a build mode.
func (e *env) modeDir(mode string) string { return e.out(mode) }

func (e *env) trackDir() string { return e.out("track") }

func (e *env) flagsFile() string { return e.out("flags.txt") }

const historyFile = "history.db"

func (e *env) stageDir(mode string) string { return e.out("stage", mode) }

func (e *env) coreDir() string { return e.root(e.ws.CoreDir) }

func (e *env) pluginsDir() string { return e.root(e.ws.PluginsDir) }

func (e *env) loaderFile(mode string) string {
	return joinUnder(e.modeDir(mode), []string{e.ws.LoaderPath})
}
