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
	"fmt"
	"strconv"
	"strings"
	"time"

	"shanhu.io/misc/errcode"
)

func cmdHistory(args []string) error {
	b, args, err := newBuilder(args)
	if err != nil {
		return err
	}
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return errcode.InvalidArgf("bad count %q", args[0])
		}
		n = v
	}

	entries, err := b.History(n)
	if err != nil {
		return errcode.Annotate(err, "read history")
	}
	for _, e := range entries {
		status := "ok"
		if !e.OK() {
			status = "FAIL"
			if e.Failed != "" {
				status += " " + e.Failed
			}
		}
		fmt.Printf(
			"%s  %-24s %-10s %s  [%s]\n",
			e.Start.Format(time.RFC3339), e.Mode, status,
			e.Duration.Round(time.Millisecond),
			strings.Join(e.Targets, " "),
		)
	}
	return nil
}
