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
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"shanhu.io/misc/errcode"
)

const reconfigurePrefix = "reconfigure."

// Flags are configuration flags that persist across builds. They are read
// by the caller before a build, handed to the builder, and the updated
// copy is written back by the caller after the build, whether it failed or
// not.
type Flags struct {
	// Build modes that must rerun the backend configure step.
	Reconfigure map[string]bool

	// Lines with keys that this version does not know about. They are kept
	// as is.
	others map[string]string
}

// NewFlags creates an empty set of flags.
func NewFlags() *Flags {
	return &Flags{
		Reconfigure: make(map[string]bool),
		others:      make(map[string]string),
	}
}

// RequestReconfigure asks the next builds of the given modes to rerun the
// configure step. With no modes given, all modes are requested.
func (f *Flags) RequestReconfigure(modes ...string) {
	if len(modes) == 0 {
		modes = Modes()
	}
	for _, m := range modes {
		f.Reconfigure[m] = true
	}
}

func (f *Flags) clone() *Flags {
	c := NewFlags()
	if f == nil {
		return c
	}
	for k, v := range f.Reconfigure {
		if v {
			c.Reconfigure[k] = true
		}
	}
	for k, v := range f.others {
		c.others[k] = v
	}
	return c
}

// ParseFlags parses key=value lines.
func ParseFlags(bs []byte) *Flags {
	f := NewFlags()
	s := bufio.NewScanner(bytes.NewReader(bs))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			log.Printf("bad flag line %q, ignored", line)
			continue
		}
		k := strings.TrimSpace(line[:i])
		v := strings.TrimSpace(line[i+1:])

		if strings.HasPrefix(k, reconfigurePrefix) {
			b, err := strconv.ParseBool(v)
			if err != nil {
				log.Printf("bad flag value %q for %q, ignored", v, k)
				continue
			}
			if b {
				f.Reconfigure[strings.TrimPrefix(k, reconfigurePrefix)] = true
			}
			continue
		}
		f.others[k] = v
	}
	return f
}

// ReadFlags reads flags from a file. A missing file gives empty flags.
func ReadFlags(file string) (*Flags, error) {
	bs, err := os.ReadFile(file)
	if err != nil {
		if os.IsNotExist(err) {
			return NewFlags(), nil
		}
		return nil, errcode.Annotate(err, "read flags")
	}
	return ParseFlags(bs), nil
}

func (f *Flags) bytes() []byte {
	m := make(map[string]string)
	for k, v := range f.others {
		m[k] = v
	}
	for mode, v := range f.Reconfigure {
		if v {
			m[reconfigurePrefix+mode] = "true"
		}
	}

	var keys []string
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := new(bytes.Buffer)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s=%s\n", k, m[k])
	}
	return buf.Bytes()
}

// WriteFlags writes the flags into a file, replacing the old content.
func WriteFlags(file string, f *Flags) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return errcode.Annotate(err, "make flags dir")
	}
	return os.WriteFile(file, f.bytes(), 0644)
}
