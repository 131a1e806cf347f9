package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostProcessor(t *testing.T) (*fixture, *PostProcessor) {
	t.Helper()
	f := newFixture(t)
	pp, err := NewPostProcessor(f.st, f.cache, 100, 50)
	require.NoError(t, err)
	return f, pp
}

func TestBlurAlternatesDirections(t *testing.T) {
	f, pp := newPostProcessor(t)
	src := graphics.StaticTexture(f.source(t, "img"))
	out := f.target(t, 100, 50)
	f.dev.ResetCalls()

	require.NoError(t, pp.Blur(src, out, 2, 1.5))

	require.Len(t, f.dev.Draws, 4)
	h, err := pp.blur.Handle()
	require.NoError(t, err)

	var dirs [][2]float32
	for _, c := range f.dev.Calls {
		if c.Name == "Uniform2f" {
			dirs = append(dirs, c.Args[1].([2]float32))
		}
	}
	require.Len(t, dirs, 4)
	assert.Equal(t, [2]float32{0.01, 0}, dirs[0])
	assert.Equal(t, [2]float32{0, 0.02}, dirs[1])
	assert.Equal(t, dirs[0], dirs[2])
	assert.Equal(t, dirs[1], dirs[3])

	want := "img"
	for i := 0; i < 4; i++ {
		want = fmt.Sprintf("p%d[%s]", h, want)
	}
	assert.Equal(t, want, f.dev.Content(colorOf(t, out)))

	// Intermediate passes alternate between the two ping-pong targets and
	// never render into the texture they sample.
	for i, d := range f.dev.Draws {
		if i > 0 {
			assert.NotEqual(t, f.dev.Draws[i-1].Framebuffer, d.Framebuffer)
		}
	}
	final, err := out.Handle()
	require.NoError(t, err)
	assert.Equal(t, final, f.dev.Draws[3].Framebuffer)
	assert.Empty(t, f.dev.Misuse)
}

func TestBlurClampsIterations(t *testing.T) {
	f, pp := newPostProcessor(t)
	src := graphics.StaticTexture(f.source(t, "img"))
	f.dev.ResetCalls()

	require.NoError(t, pp.Blur(src, nil, 0, 1))
	require.Len(t, f.dev.Draws, 2)
	assert.Equal(t, graphics.Screen, f.dev.Draws[1].Framebuffer)
	assert.Equal(t, 2, strings.Count(f.dev.ScreenContent, "p"))
}

func TestSinglePassEffects(t *testing.T) {
	f, pp := newPostProcessor(t)
	src := graphics.StaticTexture(f.source(t, "img"))
	out := f.target(t, 100, 50)

	require.NoError(t, pp.BrightnessContrast(src, out, 0.1, 0.2))
	h, err := pp.bc.Handle()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("p%d[img]", h), f.dev.Content(colorOf(t, out)))
	v, _ := f.dev.UniformValue(h, "uContrast")
	assert.Equal(t, float32(0.2), v)

	require.NoError(t, pp.Vignette(out, nil, 0.5, 0.3))
	hv, err := pp.vignette.Handle()
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("p%d[p%d[img]]", hv, h), f.dev.ScreenContent)
	v, _ = f.dev.UniformValue(hv, "uSoftness")
	assert.Equal(t, float32(0.3), v)
}

func TestPostProcessorSharesCachedPrograms(t *testing.T) {
	f, pp := newPostProcessor(t)
	again, err := NewPostProcessor(f.st, f.cache, 10, 10)
	require.NoError(t, err)
	assert.Same(t, pp.blur, again.blur)
	assert.Equal(t, 3, f.cache.Len())
	again.Dispose()
}

func TestPostProcessorResizeAndDispose(t *testing.T) {
	f, pp := newPostProcessor(t)
	require.NoError(t, pp.Resize(200, 100))
	assert.Equal(t, 200, pp.pp.Width())
	w, h := pp.r.Viewport()
	assert.Equal(t, 200, w)
	assert.Equal(t, 100, h)

	src := graphics.StaticTexture(f.source(t, "img"))
	f.dev.ResetCalls()
	require.NoError(t, pp.Blur(src, nil, 1, 1))
	var first [2]float32
	for _, c := range f.dev.Calls {
		if c.Name == "Uniform2f" {
			first = c.Args[1].([2]float32)
			break
		}
	}
	assert.Equal(t, [2]float32{0.005, 0}, first)

	textures := f.dev.LiveTextures()
	pp.Dispose()
	assert.Equal(t, textures-2, f.dev.LiveTextures())
	assert.ErrorIs(t, pp.Vignette(src, nil, 1, 1), graphics.ErrDisposed)
	assert.Equal(t, 3, f.cache.Len())
}
