package stagefile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	if len(b) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSuffix(string(b), "\n"), "\n")
}

func TestSplitRoundTrip(t *testing.T) {
	lines := []string{"a,1", "b,2", "c,3", "d,4", "e,5", "f,6", "g,7", "h,8", "i,9", "j,10"}

	for _, splits := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("splits=%d", splits), func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, "data.txt")
			writeLines(t, input, lines)

			parts, err := Split(input, input, splits, 0)
			require.NoError(t, err)
			require.Len(t, parts, splits)

			if splits == 1 {
				require.Equal(t, []string{input}, parts)
				return
			}

			// Reading the parts in index order, interleaved round-robin,
			// reproduces the original line order.
			partLines := make([][]string, splits)
			for i, p := range parts {
				require.Equal(t, fmt.Sprintf("%s.%d", input, i), p)
				partLines[i] = readLines(t, p)
			}
			var merged []string
			for row := 0; ; row++ {
				any := false
				for i := 0; i < splits; i++ {
					if row < len(partLines[i]) {
						merged = append(merged, partLines[i][row])
						any = true
					}
				}
				if !any {
					break
				}
			}
			require.Equal(t, lines, merged)
		})
	}
}

func TestSplitIgnoreHeader(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.txt")
	writeLines(t, input, []string{"col_a,col_b", "a,1", "b,2", "c,3"})

	parts, err := Split(input, input, 3, 1)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	require.Equal(t, []string{"a,1"}, readLines(t, parts[0]))
	require.Equal(t, []string{"b,2"}, readLines(t, parts[1]))
	require.Equal(t, []string{"c,3"}, readLines(t, parts[2]))
}

func TestSplitFewerLinesThanParts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.txt")
	writeLines(t, input, []string{"only"})

	parts, err := Split(input, input, 3, 0)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	require.Equal(t, []string{"only"}, readLines(t, parts[0]))
	// Trailing parts exist but are zero bytes.
	for _, p := range parts[1:] {
		fi, err := os.Stat(p)
		require.NoError(t, err)
		require.Zero(t, fi.Size())
	}
}

func TestSplitInvalidCount(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.txt")
	writeLines(t, input, []string{"a", "b"})

	for _, splits := range []int{0, -1} {
		parts, err := Split(input, input, splits, 0)
		require.Nil(t, parts)

		var splitErr *SplitError
		require.True(t, errors.As(err, &splitErr))

		// No part files may exist.
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
	}
}

func TestSplitCleanupOnFailure(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.txt")

	parts, err := Split(missing, filepath.Join(dir, "out.txt"), 3, 0)
	require.Nil(t, parts)

	var splitErr *SplitError
	require.True(t, errors.As(err, &splitErr))

	// The part files opened before the input failure must have been removed.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
