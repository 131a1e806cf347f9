package profiler

import (
	"testing"
	"time"

	"github.com/richinsley/gocompositor/batch"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/graphics/graphicstest"
	"github.com/richinsley/gocompositor/memory"
	"github.com/richinsley/gocompositor/shader"
	"github.com/richinsley/gocompositor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestDeviceCounters(t *testing.T) {
	fake := graphicstest.New()
	dev := NewDevice(fake)
	st := state.New(dev)

	b := dev.CreateBuffer()
	dev.BindBuffer(graphics.ArrayBuffer, b)
	dev.BufferData(graphics.ArrayBuffer, 64, nil, graphics.DynamicDraw)
	dev.BufferSubData(graphics.ArrayBuffer, 0, make([]byte, 32))

	tex := dev.CreateTexture()
	st.BindTexture(graphics.Texture2D, tex)
	dev.TexImage2D(graphics.Texture2D, graphics.RGBA8, 2, 2, make([]byte, 16))

	dev.DrawArrays(graphics.Triangles, 0, 6)
	dev.DrawArrays(graphics.TriangleStrip, 0, 4)
	vao := dev.CreateVertexArray()
	st.BindVertexArray(vao)
	dev.DrawElements(graphics.Triangles, 12, graphics.UnsignedShort, 0)

	c := dev.Counters()
	assert.Equal(t, int64(3), c.DrawCalls)
	assert.Equal(t, int64(2+2+4), c.Primitives)
	assert.Equal(t, int64(32+16), c.UploadBytes)
	assert.Equal(t, 3, len(fake.Draws), "calls reach the wrapped device")

	dev.ResetCounters()
	assert.Zero(t, dev.Counters())
}

func TestFrameStats(t *testing.T) {
	fake := graphicstest.New()
	dev := NewDevice(fake)
	st := state.New(dev)
	clock := &fakeClock{t: time.Unix(0, 0)}

	opt := memory.New(st, memory.Config{Limit: 1 << 20})
	br, err := batch.New(st, shader.NewCache(st), batch.Config{MaxBatchSize: 4, Accounting: opt})
	require.NoError(t, err)
	p := New(dev, st, WithClock(clock.now), WithMemory(opt), WithBatch(br))

	res, err := opt.CreateTexture("sprite", 8, 8, graphics.RGBA8, nil)
	require.NoError(t, err)

	p.BeginFrame()
	require.NoError(t, br.Begin())
	for i := 0; i < 6; i++ {
		require.NoError(t, br.Draw(batch.Item{Texture: res, Dst: graphics.Rect{W: 8, H: 8}}))
	}
	require.NoError(t, br.End())
	clock.advance(10 * time.Millisecond)
	fs := p.EndFrame()

	assert.Equal(t, int64(0), fs.Frame)
	assert.Equal(t, 10*time.Millisecond, fs.Duration)
	assert.Equal(t, int64(2), fs.DrawCalls)
	assert.Equal(t, int64(12), fs.Primitives)
	assert.Equal(t, int64(6*64), fs.UploadBytes)
	assert.Positive(t, fs.StateChanges)
	assert.Equal(t, int64(6), fs.Batch.TotalSprites)
	assert.Equal(t, 1, fs.Memory.TextureCount)
	assert.Equal(t, int64(8*8*4), fs.Memory.TextureMemory)
}

func TestReportAggregatesFrames(t *testing.T) {
	dev := NewDevice(graphicstest.New())
	st := state.New(dev)
	clock := &fakeClock{t: time.Unix(100, 0)}
	p := New(dev, st, WithClock(clock.now))

	assert.Zero(t, p.Report().FPS)

	for _, d := range []time.Duration{10, 20, 30} {
		p.BeginFrame()
		stop := p.Section("composite")
		clock.advance(d * time.Millisecond / 2)
		stop()
		end := p.Section("present")
		clock.advance(time.Millisecond)
		end()
		clock.advance(d*time.Millisecond/2 - time.Millisecond)
		p.EndFrame()
	}

	r := p.Report()
	assert.Equal(t, int64(3), r.Frames)
	assert.Equal(t, 60*time.Millisecond, r.Total)
	assert.Equal(t, 20*time.Millisecond, r.Avg)
	assert.Equal(t, 10*time.Millisecond, r.Min)
	assert.Equal(t, 30*time.Millisecond, r.Max)
	assert.InDelta(t, 50.0, r.FPS, 1e-9)
	assert.Equal(t, int64(2), r.Last.Frame)

	require.Len(t, r.Sections, 2)
	assert.Equal(t, "composite", r.Sections[0].Name)
	assert.Equal(t, int64(3), r.Sections[0].Calls)
	assert.Equal(t, 30*time.Millisecond, r.Sections[0].Total)
	assert.Equal(t, 10*time.Millisecond, r.Sections[0].Avg)
	assert.Equal(t, 15*time.Millisecond, r.Sections[0].Max)
	assert.Equal(t, "present", r.Sections[1].Name)
	assert.Equal(t, map[string]time.Duration{"composite": 15 * time.Millisecond, "present": time.Millisecond}, r.Last.Sections)

	p.LogReport()

	p.Reset()
	assert.Zero(t, p.Report().Frames)
	assert.Empty(t, p.Report().Sections)
}

func TestEndFrameWithoutBegin(t *testing.T) {
	dev := NewDevice(graphicstest.New())
	p := New(dev, state.New(dev))
	assert.Equal(t, FrameStats{}, p.EndFrame())
	assert.Zero(t, p.Report().Frames)
}

func TestBeginFrameResetsStateStats(t *testing.T) {
	dev := NewDevice(graphicstest.New())
	st := state.New(dev)
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := New(dev, st, WithClock(clock.now))

	st.Viewport(0, 0, 10, 10)
	st.Viewport(0, 0, 10, 10)
	p.BeginFrame()
	st.Viewport(0, 0, 10, 10)
	fs := p.EndFrame()
	assert.Equal(t, int64(0), fs.StateChanges)
	assert.Equal(t, int64(1), fs.StateSaved)
	assert.Equal(t, 1.0, fs.StateEfficiency)
}
