package cmd

import (
	"github.com/pkg/errors"

	"github.com/gagarinchain/accountability/accountability"
)

// Exit codes from the distilled specification's CLI section: success,
// invalid input, a Byzantine-timeout verdict, or an internal invariant
// violation.
const (
	exitSuccess            = 0
	exitInvalidInput       = 2
	exitByzantineTimeout   = 3
	exitInvariantViolation = 4
)

// exitCodeFor classifies an error returned from a command's RunE into one
// of the §6 exit codes. Errors that don't match any known sentinel are
// still treated as invariant violations - an unrecognized failure from
// this module is, by definition, not one of the two documented outcomes.
func exitCodeFor(err error) int {
	if err == nil {
		return exitSuccess
	}
	switch {
	case errors.Is(err, accountability.ErrSameBlock),
		errors.Is(err, accountability.ErrAncestors),
		errors.Is(err, accountability.ErrSameRound):
		return exitInvalidInput
	case errors.Is(err, errByzantineTimeout):
		return exitByzantineTimeout
	default:
		return exitInvariantViolation
	}
}
