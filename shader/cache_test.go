package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/graphics/graphicstest"
	"github.com/richinsley/gocompositor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, opts ...Option) (*graphicstest.Device, *Cache) {
	t.Helper()
	dev := graphicstest.New()
	return dev, NewCache(state.New(dev), opts...)
}

func TestGetOrCreateSharesIdenticalSources(t *testing.T) {
	dev, c := newCache(t)

	a, err := c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	require.NoError(t, err)
	b, err := c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, dev.Count("LinkProgram"))
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1, Programs: 1}, c.Stats())
}

func TestDifferentSourcesDoNotCollide(t *testing.T) {
	_, c := newCache(t)
	frags := []string{
		BlitFragment(false, false),
		BlitFragment(true, false),
		BlurFragment(false),
		BrightnessContrastFragment(false),
		VignetteFragment(false),
		BlitFragment(false, true),
	}
	seen := map[*Program]bool{}
	for _, fs := range frags {
		p, err := c.GetOrCreate(FullscreenVertex(false), fs)
		require.NoError(t, err)
		assert.False(t, seen[p])
		seen[p] = true
	}
	assert.Equal(t, len(frags), c.Len())
}

func TestHashCollisionFallsBackToExactCompare(t *testing.T) {
	// "Aa" and "BB" share a 31-multiplier hash.
	require.Equal(t, hashSource("Aa"), hashSource("BB"))

	_, c := newCache(t)
	vs := FullscreenVertex(false)
	a, err := c.GetOrCreate(vs, BlitFragment(false, false)+"//Aa\n")
	require.NoError(t, err)
	b, err := c.GetOrCreate(vs, BlitFragment(false, false)+"//BB\n")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Remove(vs, BlitFragment(false, false)+"//BB\n"))
	assert.False(t, a.Disposed())
	assert.True(t, b.Disposed())
}

func TestCompileErrorListsEveryStage(t *testing.T) {
	dev, c := newCache(t)
	dev.FailCompile = func(stage graphics.ShaderStage, source string) string {
		if strings.Contains(source, "broken") {
			return "0:3: error: syntax error\n0:4: error: undeclared identifier\n"
		}
		return ""
	}

	_, err := c.GetOrCreate("broken vertex", "broken fragment")
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Diagnostics, 2)
	assert.Equal(t, "vertex", ce.Diagnostics[0].Stage)
	assert.Equal(t, "fragment", ce.Diagnostics[1].Stage)
	assert.Equal(t, []string{"0:3: error: syntax error", "0:4: error: undeclared identifier"}, ce.Diagnostics[0].Lines)
	assert.Contains(t, err.Error(), "[fragment]")
	assert.Zero(t, c.Len(), "failed builds are not cached")

	// One good stage must not leak its shader object.
	_, err = c.GetOrCreate(FullscreenVertex(false), "broken fragment")
	require.Error(t, err)
	assert.Equal(t, 1, dev.Count("DeleteShader"))
	assert.Empty(t, dev.Misuse)
}

func TestLinkError(t *testing.T) {
	dev, c := newCache(t)
	dev.FailLink = func(vertex, fragment string) string { return "varying mismatch" }

	_, err := c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "link", ce.Diagnostics[0].Stage)
	assert.Equal(t, 2, dev.Count("DeleteShader"))

	dev.FailLink = nil
	_, err = c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	assert.NoError(t, err, "a retry with working sources succeeds")
}

// renamingTranslator prefixes every uniform the way the ANGLE-based
// translator does.
type renamingTranslator struct{ fail bool }

func (r renamingTranslator) Translate(source string, stage graphics.ShaderStage) (Translation, error) {
	if r.fail {
		return Translation{}, errors.New("ERROR: 0:1: 'foo' : no such function")
	}
	code := strings.ReplaceAll(source, "uTexture0", "_uuTexture0")
	names := map[string]string{}
	if code != source {
		names["uTexture0"] = "_uuTexture0"
	}
	return Translation{Code: "// translated\n" + code, Names: names}, nil
}

func TestTranslator(t *testing.T) {
	dev, c := newCache(t, WithTranslator(renamingTranslator{}))
	p, err := c.GetOrCreate(FullscreenVertex(true), BlitFragment(false, true))
	require.NoError(t, err)
	loc, err := p.UniformLocation("uTexture0")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, loc, int32(0))

	require.NoError(t, p.SetUniform("uTexture0", Int(3)))
	h, _ := p.Handle()
	v, ok := dev.UniformValue(h, "_uuTexture0")
	require.True(t, ok)
	assert.Equal(t, int32(3), v)

	_, c = newCache(t, WithTranslator(renamingTranslator{fail: true}))
	_, err = c.GetOrCreate(FullscreenVertex(true), BlitFragment(false, true))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "vertex translation", ce.Diagnostics[0].Stage)
}

func TestProgramLocationsAreCached(t *testing.T) {
	dev, c := newCache(t)
	p, err := c.GetOrCreate(BatchVertex(false), BatchFragment(false))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		loc, err := p.UniformLocation("uProjection")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, loc, int32(0))
		missing, err := p.UniformLocation("uMissing")
		require.NoError(t, err)
		assert.Equal(t, int32(-1), missing)
		attr, err := p.AttribLocation("in_uv")
		require.NoError(t, err)
		assert.Equal(t, int32(1), attr)
	}
	assert.Equal(t, 2, dev.Count("UniformLocation"))
	assert.Equal(t, 1, dev.Count("AttribLocation"))
}

func TestSetUniformDispatch(t *testing.T) {
	dev, c := newCache(t)
	p, err := c.GetOrCreate(FullscreenVertex(false), BlurFragment(false))
	require.NoError(t, err)
	h, err := p.Handle()
	require.NoError(t, err)

	vec, err := Vector(0.5, 0)
	require.NoError(t, err)
	require.NoError(t, p.SetUniforms(map[string]UniformValue{
		"uDirection": vec,
		"uRadius":    Number(1.5),
		"uTexture0":  Number(2),
		"uUnused":    Float(1),
	}))

	v, _ := dev.UniformValue(h, "uDirection")
	assert.Equal(t, [2]float32{0.5, 0}, v)
	v, _ = dev.UniformValue(h, "uRadius")
	assert.Equal(t, float32(1.5), v)
	v, _ = dev.UniformValue(h, "uTexture0")
	assert.Equal(t, int32(2), v)
	assert.Empty(t, dev.Misuse)

	_, err = Vector(1, 2, 3, 4, 5)
	assert.Error(t, err)
	assert.IsType(t, Vec3{}, must(Vector(1, 2, 3)))
	assert.IsType(t, Vec4{}, must(Vector(1, 2, 3, 4)))
	assert.Equal(t, Int(-3), Number(-3))
	assert.Equal(t, Float(0.25), Number(0.25))
}

func TestMat4Uniform(t *testing.T) {
	dev, c := newCache(t)
	p, err := c.GetOrCreate(BatchVertex(false), BatchFragment(false))
	require.NoError(t, err)
	h, _ := p.Handle()

	m := mgl32.Ortho2D(0, 640, 480, 0)
	require.NoError(t, p.SetUniform("uProjection", Mat4(m)))
	v, ok := dev.UniformValue(h, "uProjection")
	require.True(t, ok)
	assert.Equal(t, [16]float32(m), v)
}

func TestDisposedProgramIsRejected(t *testing.T) {
	dev, c := newCache(t)
	p, err := c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	require.NoError(t, err)

	p.Dispose()
	p.Dispose()
	assert.Equal(t, 1, dev.Count("DeleteProgram"))
	assert.ErrorIs(t, p.Use(), graphics.ErrDisposed)
	assert.ErrorIs(t, p.SetUniform("uTexture0", Int(0)), graphics.ErrDisposed)
	_, err = p.UniformLocation("uTexture0")
	assert.ErrorIs(t, err, graphics.ErrDisposed)

	q, err := c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	require.NoError(t, err)
	assert.NotSame(t, p, q, "a disposed cached program is rebuilt")
	assert.Equal(t, 1, c.Len())
}

func TestClearDisposesEverything(t *testing.T) {
	dev, c := newCache(t)
	a, _ := c.GetOrCreate(FullscreenVertex(false), BlitFragment(false, false))
	b, _ := c.GetOrCreate(FullscreenVertex(false), VignetteFragment(false))
	c.Clear()

	assert.True(t, a.Disposed())
	assert.True(t, b.Disposed())
	assert.Zero(t, c.Len())
	assert.Zero(t, dev.LivePrograms())
	assert.False(t, c.Remove(FullscreenVertex(false), BlitFragment(false, false)))
}

func must(v UniformValue, err error) UniformValue {
	if err != nil {
		panic(err)
	}
	return v
}
