package cmd

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/gagarinchain/accountability/accountability"
)

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"same block", accountability.ErrSameBlock, exitInvalidInput},
		{"ancestors", errors.Wrap(accountability.ErrAncestors, "open"), exitInvalidInput},
		{"same round", accountability.ErrSameRound, exitInvalidInput},
		{"byzantine timeout", errByzantineTimeout, exitByzantineTimeout},
		{"unknown instance", accountability.ErrUnknownInstance, exitInvariantViolation},
		{"opaque", errors.New("boom"), exitInvariantViolation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, exitCodeFor(c.err))
		})
	}
}
