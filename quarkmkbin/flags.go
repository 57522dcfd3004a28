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

package quarkmkbin

import (
	"shanhu.io/misc/flagutil"
	"shanhu.io/quarkmk"
)

var cmdFlags = flagutil.NewFactory("quarkmk")

func declareBuildFlags(flags *flagutil.FlagSet, c *quarkmk.Config) {
	flags.StringVar(&c.Root, "root", ".", "workspace root directory")
	flags.StringVar(&c.Out, "out", "build", "build output directory")
	flags.StringVar(
		&c.Workspace, "config", quarkmk.WorkspaceFile,
		"workspace config file",
	)
}

func modeArg(args []string) (string, error) {
	if len(args) == 0 {
		return quarkmk.ModeDebug, nil
	}
	return quarkmk.ParseMode(args[0])
}
