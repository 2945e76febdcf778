package stacktrace

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func panicking() (paths []string) {
	defer func() {
		if recover() != nil {
			paths = Internal(0)
		}
	}()

	var m map[string]int
	m["boom"]++

	return nil
}

func TestInternal(t *testing.T) {
	t.Parallel()

	t.Run("direct call", func(t *testing.T) {
		t.Parallel()

		paths := Internal(0)
		require.NotEmpty(t, paths)
		assert.True(t, strings.HasPrefix(paths[0], "internal/pkg/stacktrace/stacktrace_test.go:"), paths[0])
	})

	t.Run("inside recover keeps the panicking frame", func(t *testing.T) {
		t.Parallel()

		paths := panicking()
		require.NotEmpty(t, paths)
		assert.True(t, slices.ContainsFunc(paths, func(p string) bool {
			return strings.HasPrefix(p, "internal/pkg/stacktrace/stacktrace_test.go:")
		}), paths)
	})
}
