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
	"path/filepath"

	"shanhu.io/misc/errcode"
	"shanhu.io/virgo/dock"
)

// dockBackend runs cmake inside a toolchain container. The workspace and
// the output directory are mounted into the container, so build outputs
// land on the host as with the host backend.
type dockBackend struct {
	env    *env
	client *dock.Client
	image  string
}

const (
	contSrcRoot = "/quark/src"
	contOutRoot = "/quark/out"
)

func newDockBackend(env *env, client *dock.Client, image string) *dockBackend {
	return &dockBackend{
		env:    env,
		client: client,
		image:  image,
	}
}

func (b *dockBackend) contModeDir(mode string) string {
	return linuxPathJoin(contOutRoot, mode)
}

func (b *dockBackend) run(args []string) error {
	absSrc, err := filepath.Abs(b.env.root())
	if err != nil {
		return errcode.Annotate(err, "get absolute src dir")
	}
	absOut, err := filepath.Abs(b.env.out())
	if err != nil {
		return errcode.Annotate(err, "get absolute out dir")
	}

	config := &dock.ContConfig{
		Mounts: []*dock.ContMount{{
			Host: absSrc,
			Cont: contSrcRoot,
		}, {
			Host: absOut,
			Cont: contOutRoot,
		}},
	}
	cont, err := dock.CreateCont(b.client, b.image, config)
	if err != nil {
		return errcode.Annotate(err, "create container")
	}
	defer cont.Drop()

	if err := cont.Start(); err != nil {
		return errcode.Annotate(err, "start container")
	}

	return execError(cont.ExecWithSetup(&dock.ExecSetup{
		Cmd:        append([]string{"cmake"}, args...),
		WorkingDir: contSrcRoot,
	}))
}

func (b *dockBackend) Configured(mode string) (bool, error) {
	return cmakeConfigured(b.env, mode)
}

func (b *dockBackend) Configure(mode string) error {
	args, err := cmakeConfigureArgs(
		b.env.ws, contSrcRoot, b.contModeDir(mode), mode,
	)
	if err != nil {
		return err
	}
	return b.run(args)
}

func (b *dockBackend) Build(mode, target string) error {
	return b.run(cmakeBuildArgs(b.contModeDir(mode), target))
}
