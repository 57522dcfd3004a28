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
	"shanhu.io/misc/errcode"
)

// Build modes.
const (
	ModeDebug            = "debug"
	ModeRelease          = "release"
	ModeReleaseDebugInfo = "release_with_debug_info"
)

var cmakeBuildTypes = map[string]string{
	ModeDebug:            "Debug",
	ModeRelease:          "Release",
	ModeReleaseDebugInfo: "RelWithDebInfo",
}

var modeAliases = map[string]string{
	"d":  ModeDebug,
	"r":  ModeRelease,
	"rd": ModeReleaseDebugInfo,
}

// Modes lists all build modes.
func Modes() []string {
	return []string{ModeDebug, ModeRelease, ModeReleaseDebugInfo}
}

// ParseMode resolves a build mode name or its alias.
func ParseMode(s string) (string, error) {
	if m, ok := modeAliases[s]; ok {
		return m, nil
	}
	if _, ok := cmakeBuildTypes[s]; ok {
		return s, nil
	}
	return "", errcode.InvalidArgf("unknown build mode %q", s)
}
