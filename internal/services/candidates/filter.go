// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package candidates

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/soulseekarr/soulseekarr/internal/models"
)

// FilterEnv is the view of a candidate an operator filter expression sees,
// e.g. `Lossless || Bitrate >= 256` or `not (Peer in ["slowpeer"])`.
type FilterEnv struct {
	Format     string
	Bitrate    int
	SampleRate int
	BitDepth   int
	SizeMB     float64
	Peer       string
	Path       string
	Directory  string
	Lossless   bool
	FreeSlot   bool
}

func filterEnvFor(c *models.Candidate) FilterEnv {
	return FilterEnv{
		Format:     string(c.Format),
		Bitrate:    c.BitRate,
		SampleRate: c.SampleRate,
		BitDepth:   c.BitDepth,
		SizeMB:     c.SizeMB(),
		Peer:       c.Peer,
		Path:       c.Path,
		Directory:  c.Directory,
		Lossless:   c.Format.IsLossless(),
		FreeSlot:   c.HasFreeSlot,
	}
}

// CompileFilter compiles an operator filter expression. An empty source
// yields a nil program, which accepts everything.
func CompileFilter(source string) (*vm.Program, error) {
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(FilterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter expression: %w", err)
	}
	return program, nil
}

func runFilter(program *vm.Program, c *models.Candidate) (bool, error) {
	if program == nil {
		return true, nil
	}
	result, err := expr.Run(program, filterEnvFor(c))
	if err != nil {
		return false, err
	}
	keep, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter expression returned %T, not bool", result)
	}
	return keep, nil
}
