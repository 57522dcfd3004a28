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
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFlags(t *testing.T) {
	const input = `# flags
reconfigure.debug=true
reconfigure.release=false
reconfigure.release_with_debug_info=maybe
toolchain.pin = abc
broken line
`
	f := ParseFlags([]byte(input))
	want := map[string]bool{ModeDebug: true}
	if diff := cmp.Diff(want, f.Reconfigure); diff != "" {
		t.Errorf("reconfigure (-want +got):\n%s", diff)
	}

	got := string(f.bytes())
	const wantOut = "reconfigure.debug=true\ntoolchain.pin=abc\n"
	if got != wantOut {
		t.Errorf("got %q, want %q", got, wantOut)
	}
}

func TestReadWriteFlags(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out", "flags.txt")

	f, err := ReadFlags(file)
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Reconfigure) != 0 {
		t.Errorf("got %v from a missing file", f.Reconfigure)
	}

	f.RequestReconfigure(ModeRelease)
	if err := WriteFlags(file, f); err != nil {
		t.Fatal(err)
	}
	read, err := ReadFlags(file)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]bool{ModeRelease: true}
	if diff := cmp.Diff(want, read.Reconfigure); diff != "" {
		t.Errorf("reconfigure (-want +got):\n%s", diff)
	}
}

func TestRequestReconfigureAll(t *testing.T) {
	f := NewFlags()
	f.RequestReconfigure()
	for _, m := range Modes() {
		if !f.Reconfigure[m] {
			t.Errorf("mode %q not requested", m)
		}
	}
}

func TestFlagsClone(t *testing.T) {
	var nilFlags *Flags
	if c := nilFlags.clone(); c == nil || len(c.Reconfigure) != 0 {
		t.Errorf("clone of nil flags got %v", c)
	}

	f := NewFlags()
	f.RequestReconfigure(ModeDebug)
	c := f.clone()
	delete(c.Reconfigure, ModeDebug)
	if !f.Reconfigure[ModeDebug] {
		t.Error("clone shares the reconfigure map")
	}
}
