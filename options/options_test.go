package options

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[memory]
limit_mb = 256
eviction_threshold = 0.7

[batch]
max_batch_size = 500

[effects]
blur_iterations = 3
contrast = 0.25
`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "compositor.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFileValuesApplyUnlessFlagSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	o := Register(fs)
	require.NoError(t, fs.Parse([]string{"-max-batch", "64", "-width", "640"}))

	fc, err := LoadConfig(writeConfig(t, t.TempDir(), sample))
	require.NoError(t, err)
	o.Apply(fc, Explicit(fs))

	assert.Equal(t, 256, *o.MemoryLimitMB)
	assert.Equal(t, 0.7, *o.EvictionThreshold)
	assert.Equal(t, 64, *o.MaxBatchSize, "explicit flag wins")
	assert.Equal(t, 640, *o.Width)
	assert.Equal(t, 3, *o.Effects.BlurIterations)
	assert.Equal(t, 0.25, *o.Effects.Contrast)
	assert.Equal(t, 0.3, *o.Effects.VignetteIntensity, "absent keys keep the flag default")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, t.TempDir(), "[memory\nlimit_mb = "))
	assert.Error(t, err)

	fc, err := LoadConfig(writeConfig(t, t.TempDir(), "[effects]\nsparkle = 1\n"))
	require.NoError(t, err)
	assert.Nil(t, fc.Effects.BlurRadius)
}

func TestLoadConfigExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	writeConfig(t, home, sample)

	fc, err := LoadConfig("~/compositor.toml")
	require.NoError(t, err)
	require.NotNil(t, fc.Memory.LimitMB)
	assert.Equal(t, 256, *fc.Memory.LimitMB)
}

func TestWatchDeliversReloads(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, sample)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := Watch(ctx, path)
	require.NoError(t, err)

	writeConfig(t, dir, "[effects]\nbrightness = 0.5\n")
	select {
	case fc := <-ch:
		require.NotNil(t, fc.Effects.Brightness)
		assert.Equal(t, 0.5, *fc.Effects.Brightness)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
