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
	"fmt"
	"log"

	"shanhu.io/misc/errcode"
)

// TargetError is returned when the backend fails to build a target.
type TargetError struct {
	Mode   string
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("build %q (%s): %s", e.Target, e.Mode, e.Err)
}

func (e *TargetError) Unwrap() error { return e.Err }

type driver struct {
	backend Backend
	flags   *Flags
}

func needConfigure(b Backend, flags *Flags, mode string, reinit bool) (
	bool, error,
) {
	if reinit || flags.Reconfigure[mode] {
		return true, nil
	}
	configured, err := b.Configured(mode)
	if err != nil {
		return false, errcode.Annotate(err, "check configured")
	}
	return !configured, nil
}

// ensureConfigured runs the configure step of the mode when it was never
// configured, when the flags ask for it, or when reinit is set. A
// successful configure clears the flag of the mode.
func (d *driver) ensureConfigured(mode string, reinit bool) error {
	need, err := needConfigure(d.backend, d.flags, mode, reinit)
	if err != nil {
		return err
	}
	if !need {
		return nil
	}

	log.Printf("configure %s", mode)
	if err := d.backend.Configure(mode); err != nil {
		return errcode.Annotatef(err, "configure %s", mode)
	}
	delete(d.flags.Reconfigure, mode)
	return nil
}

// rebuild builds the targets one by one, and stops at the first failure.
func (d *driver) rebuild(mode string, targets []string) error {
	for _, t := range targets {
		log.Printf("build %s", t)
		if err := d.backend.Build(mode, t); err != nil {
			return &TargetError{Mode: mode, Target: t, Err: err}
		}
	}
	return nil
}
