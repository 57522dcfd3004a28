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
	"io"
	"os"
	"os/exec"

	"shanhu.io/misc/osutil"
)

type execJob struct {
	dir  string
	bin  string
	args []string
	out  io.Writer
}

func (j *execJob) command() *exec.Cmd {
	cmd := exec.Command(j.bin, j.args...)
	cmd.Dir = j.dir
	if j.out == nil {
		cmd.Stdout = os.Stdout
	} else {
		cmd.Stdout = j.out
	}
	cmd.Stderr = os.Stderr
	for _, k := range []string{
		"HOME", "PATH", "TMPDIR", "TEMP", "TMP",
		"CC", "CXX", "SYSTEMROOT", "LOCALAPPDATA",
	} {
		osutil.CmdCopyEnv(cmd, k)
	}
	return cmd
}

func runCmd(dir, bin string, args ...string) error {
	return runJob(&execJob{
		dir:  dir,
		bin:  bin,
		args: args,
	})
}

func runJob(j *execJob) error {
	if err := j.command().Run(); err != nil {
		if err, ok := err.(*exec.ExitError); ok {
			return exitError(err.ExitCode())
		}
		return err
	}
	return nil
}
