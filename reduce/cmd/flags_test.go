package cmd

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PatchLens/go-reduce-lens/reduce"
)

func parseArgs(t *testing.T, args ...string) (*reduce.Config, error) {
	t.Helper()

	oldArgs := os.Args
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine = fs
	os.Args = append([]string{os.Args[0]}, args...)
	defer func() {
		os.Args = oldArgs
	}()

	return ParseFlags()
}

func TestParseFlags(t *testing.T) {
	t.Run("single_shot", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "prog.c")
		require.NoError(t, os.WriteFile(file, []byte("int main(void) { return 0; }\n"), 0o644))

		cfg, err := parseArgs(t, "-file", file, "-counter", "3")
		require.NoError(t, err)

		assert.Equal(t, file, cfg.FilePath)
		assert.Equal(t, reduce.SimplifyCallExprName, cfg.Transformation)
		assert.Equal(t, 3, cfg.Counter)
		assert.False(t, cfg.QueryInstanceOnly)
		assert.False(t, cfg.Reduce)
	})

	t.Run("reduce_mode", func(t *testing.T) {
		cfg, err := parseArgs(t, "-file", "prog.c", "-reduce",
			"-maxrounds", "5", "-cachedir", "cache", "-json", "out.json")
		require.NoError(t, err)

		assert.True(t, cfg.Reduce)
		assert.Equal(t, 5, cfg.MaxRounds)
		assert.Equal(t, "cache", cfg.CacheDir)
		assert.Equal(t, "out.json", cfg.ReportJsonFile)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := parseArgs(t)
		require.Error(t, err)
	})

	t.Run("invalid_counter", func(t *testing.T) {
		_, err := parseArgs(t, "-file", "prog.c", "-counter", "0")
		require.Error(t, err)
	})

	t.Run("query_and_reduce_exclusive", func(t *testing.T) {
		_, err := parseArgs(t, "-file", "prog.c", "-query", "-reduce")
		require.Error(t, err)
	})

	t.Run("unknown_transformation", func(t *testing.T) {
		_, err := parseArgs(t, "-file", "prog.c", "-transformation", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), reduce.SimplifyCallExprName)
	})
}
