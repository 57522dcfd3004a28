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

// Package quarkmkbin is the command line interface of quarkmk.
package quarkmkbin

import (
	"shanhu.io/misc/subcmd"
)

func cmd() *subcmd.List {
	c := subcmd.New()
	c.Add("build", "builds changed modules and stages a mode", cmdBuild)
	c.Add("plan", "shows what a build would rebuild", cmdPlan)
	c.Add("stage", "stages the last build of a mode", cmdStage)
	c.Add("reconfigure", "forces the configure step", cmdReconfigure)
	c.Add("setup", "configures all build modes", cmdSetup)
	c.Add("run", "runs the staged loader of a mode", cmdRun)
	c.Add("history", "lists recent builds", cmdHistory)
	return c
}

// Main is the main entrance of the quarkmk command.
func Main() { cmd().Main() }
