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
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"shanhu.io/misc/errcode"
	"shanhu.io/quarkmk"
	"shanhu.io/text/lexing"
)

func newBuilder(args []string) (*quarkmk.Builder, []string, error) {
	flags := cmdFlags.New()
	config := new(quarkmk.Config)
	declareBuildFlags(flags, config)
	args = flags.ParseArgs(args)

	b, err := quarkmk.NewBuilder(config)
	if err != nil {
		return nil, nil, errcode.Annotate(err, "create builder")
	}
	return b, args, nil
}

func printLoadErrs(err error) error {
	var loadErr *quarkmk.LoadError
	if !errors.As(err, &loadErr) {
		return err
	}
	wd, _ := os.Getwd()
	lexing.FprintErrs(os.Stderr, loadErr.Errs, wd)
	return errcode.InvalidArgf("read manifests got %d errors", len(loadErr.Errs))
}

func cmdBuild(args []string) error {
	b, args, err := newBuilder(args)
	if err != nil {
		return err
	}
	mode, err := modeArg(args)
	if err != nil {
		return err
	}

	flags, err := quarkmk.ReadFlags(b.FlagsFile())
	if err != nil {
		return err
	}
	newFlags, buildErr := b.Build(mode, flags)
	if err := quarkmk.WriteFlags(b.FlagsFile(), newFlags); err != nil {
		log.Printf("save flags: %s", err)
	}
	if buildErr != nil {
		return printLoadErrs(buildErr)
	}
	return nil
}

func cmdPlan(args []string) error {
	b, args, err := newBuilder(args)
	if err != nil {
		return err
	}
	mode, err := modeArg(args)
	if err != nil {
		return err
	}
	flags, err := quarkmk.ReadFlags(b.FlagsFile())
	if err != nil {
		return err
	}

	p, err := b.Plan(mode, flags)
	if err != nil {
		return printLoadErrs(err)
	}

	list := func(names []string) string {
		if len(names) == 0 {
			return "-"
		}
		return strings.Join(names, " ")
	}
	fmt.Printf("mode:      %s\n", p.Mode)
	fmt.Printf("configure: %t\n", p.Configure)
	fmt.Printf("changed:   %s\n", list(p.Changed))
	fmt.Printf("reinit:    %s\n", list(p.Reinit))
	fmt.Printf("removed:   %s\n", list(p.Removed))
	fmt.Printf("targets:   %s\n", list(p.Targets))
	return nil
}

func cmdStage(args []string) error {
	b, args, err := newBuilder(args)
	if err != nil {
		return err
	}
	mode, err := modeArg(args)
	if err != nil {
		return err
	}
	m, err := b.Stage(mode)
	if err != nil {
		return err
	}
	log.Printf(
		"staged %s: %d plugins, %d libs, %d skipped",
		b.StageDir(m.Mode), len(m.Plugins), len(m.Libs), len(m.Skipped),
	)
	return nil
}

func cmdReconfigure(args []string) error {
	b, args, err := newBuilder(args)
	if err != nil {
		return err
	}
	var modes []string
	for _, arg := range args {
		mode, err := quarkmk.ParseMode(arg)
		if err != nil {
			return err
		}
		modes = append(modes, mode)
	}

	flags, err := quarkmk.ReadFlags(b.FlagsFile())
	if err != nil {
		return err
	}
	flags.RequestReconfigure(modes...)
	return quarkmk.WriteFlags(b.FlagsFile(), flags)
}

func cmdSetup(args []string) error {
	b, _, err := newBuilder(args)
	if err != nil {
		return err
	}
	flags, err := quarkmk.ReadFlags(b.FlagsFile())
	if err != nil {
		return err
	}
	newFlags, setupErr := b.Setup(flags)
	if err := quarkmk.WriteFlags(b.FlagsFile(), newFlags); err != nil {
		log.Printf("save flags: %s", err)
	}
	return setupErr
}

func cmdRun(args []string) error {
	b, args, err := newBuilder(args)
	if err != nil {
		return err
	}
	mode, err := modeArg(args)
	if err != nil {
		return err
	}
	var loaderArgs []string
	if len(args) > 1 {
		loaderArgs = args[1:]
	}
	return b.Run(mode, loaderArgs, nil)
}
