package renderer

import (
	"fmt"
	"testing"

	"github.com/richinsley/gocompositor/batch"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sceneFixture struct {
	*fixture
	batch *batch.Renderer
	scene *Scene
}

func newScene(t *testing.T, tiles int) *sceneFixture {
	t.Helper()
	f := newFixture(t)
	b, err := batch.New(f.st, f.cache, batch.Config{})
	require.NoError(t, err)
	s, err := NewScene(f.st, f.cache, b, SceneConfig{Width: 400, Height: 200, Tiles: tiles})
	require.NoError(t, err)
	f.r.SetViewport(400, 200)
	return &sceneFixture{fixture: f, batch: b, scene: s}
}

func (f *sceneFixture) handle(t *testing.T, vs, fs string) graphics.Program {
	t.Helper()
	p, err := f.cache.GetOrCreate(vs, fs)
	require.NoError(t, err)
	h, err := p.Handle()
	require.NoError(t, err)
	return h
}

func (f *sceneFixture) batchProgram(t *testing.T) graphics.Program {
	return f.handle(t, shader.BatchVertex(false), shader.BatchFragment(false))
}

func (f *sceneFixture) effect(t *testing.T, fs string) graphics.Program {
	return f.handle(t, shader.FullscreenVertex(false), fs)
}

func TestTileRects(t *testing.T) {
	rects := tileRects(400, 200, 4)
	require.Len(t, rects, 4)
	assert.Equal(t, graphics.Rect{X: 5, Y: 155, W: 90, H: 40}, rects[0])
	assert.Equal(t, float32(305), rects[3].X)

	assert.Nil(t, tileRects(400, 200, 0))
	assert.Nil(t, tileRects(0, 200, 3))
}

func TestSceneBatchesBackgroundAndTiles(t *testing.T) {
	f := newScene(t, 4)
	f.scene.SetBackground(graphics.StaticTexture(f.source(t, "video")))

	require.NoError(t, f.scene.Render(nil))

	stats := f.batch.Stats()
	assert.Equal(t, int64(1), stats.DrawCalls)
	assert.Equal(t, int64(5), stats.TotalSprites)

	composite := fmt.Sprintf("p%d[video]", f.batchProgram(t))
	assert.Equal(t, composite, f.dev.Content(colorOf(t, f.scene.Target())))
	blit := f.effect(t, shader.BlitFragment(false, false))
	assert.Equal(t, fmt.Sprintf("p%d[%s]", blit, composite), f.dev.ScreenContent)
	assert.False(t, f.st.Snapshot().Blend, "effects run without blending")
	assert.Empty(t, f.dev.Misuse)
}

func TestSceneLayersBreakTheBatch(t *testing.T) {
	f := newScene(t, 2)
	f.scene.SetBackground(graphics.StaticTexture(f.source(t, "video")))
	require.NoError(t, f.scene.AddLayer(Layer{
		Name:    "logo",
		Texture: graphics.StaticTexture(f.source(t, "logo")),
		Dst:     graphics.Rect{X: 10, Y: 10, W: 64, H: 32},
	}))
	assert.Error(t, f.scene.AddLayer(Layer{Name: "logo"}))

	require.NoError(t, f.scene.Render(nil))
	stats := f.batch.Stats()
	assert.Equal(t, int64(2), stats.DrawCalls)
	assert.Equal(t, int64(4), stats.TotalSprites)
	assert.Equal(t, fmt.Sprintf("p%d[logo]", f.batchProgram(t)), f.dev.Content(colorOf(t, f.scene.Target())))

	assert.True(t, f.scene.SetLayerHidden("logo", true))
	require.NoError(t, f.scene.Render(nil))
	assert.Equal(t, int64(1), f.batch.Stats().DrawCalls)
	assert.Equal(t, int64(3), f.batch.Stats().TotalSprites)
	assert.True(t, f.scene.SetLayerHidden("logo", false))
	assert.False(t, f.scene.SetLayerHidden("missing", true))

	assert.True(t, f.scene.RemoveLayer("logo"))
	assert.False(t, f.scene.RemoveLayer("logo"))
	require.NoError(t, f.scene.Render(nil))
	assert.Equal(t, int64(1), f.batch.Stats().DrawCalls)
}

func TestSceneEffectChain(t *testing.T) {
	f := newScene(t, 0)
	f.scene.SetBackground(graphics.StaticTexture(f.source(t, "video")))
	f.scene.SetEffects(Effects{
		BlurIterations:    1,
		BlurRadius:        1,
		Contrast:          0.2,
		VignetteIntensity: 0.5,
		VignetteSoftness:  0.4,
	})
	out := f.target(t, 400, 200)

	require.NoError(t, f.scene.Render(out))

	blur := f.effect(t, shader.BlurFragment(false))
	bc := f.effect(t, shader.BrightnessContrastFragment(false))
	vig := f.effect(t, shader.VignetteFragment(false))
	want := fmt.Sprintf("p%d[p%d[p%d[p%d[p%d[video]]]]]", vig, bc, blur, blur, f.batchProgram(t))
	assert.Equal(t, want, f.dev.Content(colorOf(t, out)))
	assert.Empty(t, f.dev.ScreenContent)
	assert.Empty(t, f.dev.Misuse)
}

func TestSceneSkipsDisabledEffects(t *testing.T) {
	f := newScene(t, 0)
	f.scene.SetBackground(graphics.StaticTexture(f.source(t, "video")))
	f.scene.SetEffects(Effects{Brightness: 0.1})
	assert.Len(t, f.scene.steps(), 1)

	require.NoError(t, f.scene.Render(nil))
	bc := f.effect(t, shader.BrightnessContrastFragment(false))
	assert.Equal(t, fmt.Sprintf("p%d[p%d[video]]", bc, f.batchProgram(t)), f.dev.ScreenContent)
}

func TestSceneWithoutBackground(t *testing.T) {
	f := newScene(t, 4)
	require.NoError(t, f.scene.Render(nil))
	assert.Zero(t, f.batch.Stats().DrawCalls)
	blit := f.effect(t, shader.BlitFragment(false, false))
	assert.Equal(t, fmt.Sprintf("p%d[]", blit), f.dev.ScreenContent)
}

func TestSceneSurfacesSourceErrors(t *testing.T) {
	f := newScene(t, 0)
	fb := f.target(t, 4, 4)
	fb.Dispose()
	f.scene.SetBackground(fb)
	assert.ErrorIs(t, f.scene.Render(nil), graphics.ErrDisposed)
}

func TestSceneResizeAndDispose(t *testing.T) {
	f := newScene(t, 0)
	require.NoError(t, f.scene.Resize(100, 50))
	assert.Equal(t, 100, f.scene.Target().Width())
	assert.Equal(t, 50, f.scene.Target().Height())

	f.scene.SetBackground(graphics.StaticTexture(f.source(t, "video")))
	require.NoError(t, f.scene.Render(nil))
	assert.Equal(t, [4]int32{0, 0, 100, 50}, f.dev.CurrentViewport())

	before := f.dev.LiveTextures()
	f.scene.Dispose()
	assert.Equal(t, before-5, f.dev.LiveTextures())
	f.batch.Dispose()
	assert.Empty(t, f.dev.Misuse)
}
