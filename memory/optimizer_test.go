package memory

import (
	"fmt"
	"testing"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/graphics/graphicstest"
	"github.com/richinsley/gocompositor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 10x10 RGBA8 textures are 400 bytes each.
const tex = 400

func newOptimizer(t *testing.T, limit int64) (*graphicstest.Device, *Optimizer) {
	t.Helper()
	dev := graphicstest.New()
	return dev, New(state.New(dev), Config{Limit: limit, EvictionThreshold: 0.8})
}

func register(t *testing.T, dev *graphicstest.Device, o *Optimizer, id string) *TextureResource {
	t.Helper()
	res, err := o.RegisterTexture(id, dev.CreateTexture(), 10, 10, graphics.RGBA8)
	require.NoError(t, err)
	return res
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	dev, o := newOptimizer(t, 10*tex)
	a := register(t, dev, o, "A")
	b := register(t, dev, o, "B")
	c := register(t, dev, o, "C")
	require.NoError(t, o.TouchTexture("A"))

	n, err := o.ForceEviction(0.2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.True(t, b.Evicted())
	assert.False(t, a.Evicted())
	assert.False(t, c.Evicted())
	_, err = b.TextureID()
	assert.ErrorIs(t, err, graphics.ErrDisposed)
	assert.Equal(t, 2, dev.LiveTextures())
	assert.Empty(t, dev.Misuse)

	// C is next: A was touched after C was registered.
	_, err = o.ForceEviction(0.1)
	require.NoError(t, err)
	assert.True(t, c.Evicted())
	assert.False(t, a.Evicted())
}

func TestTotalIsTextureSumPlusBuffers(t *testing.T) {
	dev, o := newOptimizer(t, 0)
	register(t, dev, o, "a")
	_, err := o.RegisterTexture("b", dev.CreateTexture(), 16, 8, graphics.RGBA16F)
	require.NoError(t, err)
	_, err = o.RegisterTexture("c", dev.CreateTexture(), 3, 3, graphics.RGB8)
	require.NoError(t, err)
	o.RegisterBuffer(1000)
	o.RegisterBuffer(24)
	o.UnregisterBuffer(500)

	want := int64(tex + 16*8*8 + 3*3*3 + 524)
	s := o.Stats()
	assert.Equal(t, 3, s.TextureCount)
	assert.Equal(t, int64(524), s.BufferMemory)
	assert.Equal(t, want, s.TotalMemory)
	assert.Equal(t, s.TextureMemory+s.BufferMemory, s.TotalMemory)

	o.SetLimit(want)
	_, err = o.ForceEviction(0.5)
	require.NoError(t, err)
	s = o.Stats()
	assert.Equal(t, s.TextureMemory+s.BufferMemory, s.TotalMemory)
	var sum int64
	for _, row := range o.DetailedStats().Textures {
		sum += row.Size
	}
	assert.Equal(t, sum, s.TextureMemory)
}

func TestBufferAccountingFloorsAtZero(t *testing.T) {
	_, o := newOptimizer(t, 0)
	o.RegisterBuffer(100)
	o.UnregisterBuffer(250)
	assert.Zero(t, o.Stats().BufferMemory)
	o.RegisterBuffer(-5)
	assert.Zero(t, o.Stats().BufferMemory)
}

func TestEvictionHysteresis(t *testing.T) {
	// Threshold 8 textures, low-water mark 6.
	dev, o := newOptimizer(t, 10*tex)
	for i := 0; i < 8; i++ {
		register(t, dev, o, fmt.Sprintf("t%d", i))
	}
	assert.Zero(t, o.Stats().Evictions, "at the threshold is not above it")

	register(t, dev, o, "t8")
	s := o.Stats()
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, int64(3), s.EvictedTextures)
	assert.Equal(t, int64(6*tex), s.TotalMemory)

	// Filling back up to the threshold must not evict again.
	register(t, dev, o, "t9")
	register(t, dev, o, "t10")
	s = o.Stats()
	assert.Equal(t, int64(8*tex), s.TotalMemory)
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, int64(3), s.EvictedTextures)

	_, ok := o.Texture("t0")
	assert.False(t, ok)
	_, ok = o.Texture("t3")
	assert.True(t, ok)
}

func TestNewTextureIsNotEvictedByItsOwnRegistration(t *testing.T) {
	dev, o := newOptimizer(t, 1000)
	big, err := o.RegisterTexture("big", dev.CreateTexture(), 20, 20, graphics.RGBA8)
	require.NoError(t, err)
	assert.False(t, big.Evicted())

	s := o.Stats()
	assert.Equal(t, int64(1), s.BudgetMisses)
	assert.Greater(t, s.UsagePercent, 1.0)
}

func TestUnregisterBufferDoesNotEvict(t *testing.T) {
	// Buffers cannot be evicted, so usage stays over the threshold.
	_, o := newOptimizer(t, 1000)
	o.RegisterBuffer(900)
	s := o.Stats()
	require.Equal(t, int64(1), s.Evictions)
	require.Equal(t, int64(1), s.BudgetMisses)

	for i := 0; i < 3; i++ {
		o.UnregisterBuffer(10)
	}
	s = o.Stats()
	assert.Equal(t, int64(1), s.Evictions)
	assert.Equal(t, int64(1), s.BudgetMisses)
	assert.Equal(t, int64(870), s.BufferMemory)
}

func TestBufferPressureEvictsTextures(t *testing.T) {
	dev, o := newOptimizer(t, 10*tex)
	for i := 0; i < 5; i++ {
		register(t, dev, o, fmt.Sprintf("t%d", i))
	}
	var seen []string
	o.OnEvict(func(r *TextureResource) { seen = append(seen, r.ID) })

	o.RegisterBuffer(4 * tex)
	assert.Equal(t, []string{"t0", "t1", "t2"}, seen)
	assert.Equal(t, int64(6*tex), o.Stats().TotalMemory)
}

func TestForceEvictionReportsUnreachableTarget(t *testing.T) {
	dev, o := newOptimizer(t, 10*tex)
	register(t, dev, o, "a")
	o.RegisterBuffer(3 * tex)

	n, err := o.ForceEviction(0.1)
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, ErrBudgetUnreachable)
	assert.Equal(t, int64(1), o.Stats().Evictions)

	n, err = o.ForceEviction(0.5)
	assert.Zero(t, n)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), o.Stats().Evictions, "every forced run counts")
}

func TestPeakMemory(t *testing.T) {
	dev, o := newOptimizer(t, 0)
	register(t, dev, o, "a")
	register(t, dev, o, "b")
	require.NoError(t, o.RemoveTexture("a"))
	assert.Equal(t, int64(2*tex), o.Stats().PeakMemory)

	o.SetLimit(100 * tex)
	assert.Equal(t, int64(tex), o.Stats().PeakMemory)
}

func TestUsageErrors(t *testing.T) {
	dev, o := newOptimizer(t, 0)
	register(t, dev, o, "a")

	_, err := o.RegisterTexture("a", dev.CreateTexture(), 1, 1, graphics.R8)
	assert.ErrorIs(t, err, ErrDuplicateTexture)
	_, err = o.RegisterTexture("zero", dev.CreateTexture(), 0, 4, graphics.R8)
	assert.Error(t, err)
	assert.ErrorIs(t, o.TouchTexture("missing"), ErrUnknownTexture)
	assert.ErrorIs(t, o.RemoveTexture("missing"), ErrUnknownTexture)
	assert.ErrorIs(t, o.UpdateTexture("missing", nil), ErrUnknownTexture)
	assert.Error(t, o.UpdateTexture("a", make([]byte, 10)))
}

func TestCreateAndUpdateTexture(t *testing.T) {
	dev, o := newOptimizer(t, 0)
	res, err := o.CreateTexture("frame", 4, 2, graphics.RGBA8, nil)
	require.NoError(t, err)
	h, err := res.TextureID()
	require.NoError(t, err)
	assert.Equal(t, 4, dev.Textures[h].Width)
	assert.Equal(t, "", dev.Content(h))

	other := register(t, dev, o, "other")
	require.NoError(t, o.UpdateTexture("frame", make([]byte, 32)))
	assert.Equal(t, "upload", dev.Content(h))

	rows := o.DetailedStats().Textures
	require.Len(t, rows, 2)
	assert.Equal(t, other.ID, rows[0].ID, "least recently used first")
	assert.Equal(t, "frame", rows[1].ID)
}

func TestDispose(t *testing.T) {
	dev, o := newOptimizer(t, 0)
	a := register(t, dev, o, "a")
	register(t, dev, o, "b")
	o.RegisterBuffer(10)

	o.Dispose()
	assert.True(t, a.Evicted())
	assert.Zero(t, dev.LiveTextures())
	assert.Zero(t, o.Stats().TotalMemory)
	assert.Empty(t, dev.Misuse)
}
