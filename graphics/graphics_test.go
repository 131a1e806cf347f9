package graphics_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/graphics/graphicstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoopFrameInfo(t *testing.T) {
	ctx := &graphicstest.Context{Width: 320, Height: 240, Frames: 3, Step: 0.5}
	var infos []graphics.FrameInfo
	err := graphics.RunLoop(ctx, func(info graphics.FrameInfo) error {
		infos = append(infos, info)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, infos, 3)
	assert.Equal(t, 3, ctx.Presented)

	assert.Equal(t, graphics.FrameInfo{Frame: 0, Time: 0, Delta: 0, Width: 320, Height: 240}, infos[0])
	assert.Equal(t, int64(2), infos[2].Frame)
	assert.Equal(t, 1.0, infos[2].Time)
	assert.Equal(t, 0.5, infos[2].Delta)
}

func TestRunLoopStopsOnError(t *testing.T) {
	ctx := &graphicstest.Context{Frames: 10}
	boom := errors.New("boom")
	calls := 0
	err := graphics.RunLoop(ctx, func(info graphics.FrameInfo) error {
		calls++
		if info.Frame == 1 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, ctx.Presented, "the failing frame is not presented")
}

func TestBytesPerPixel(t *testing.T) {
	tests := map[graphics.PixelFormat]int{
		graphics.R8:              1,
		graphics.StencilIndex8:   1,
		graphics.RG8:             2,
		graphics.RGB8:            3,
		graphics.RGBA8:           4,
		graphics.Depth24Stencil8: 4,
		graphics.RGBA16F:         8,
		graphics.RGBA32F:         16,
		graphics.PixelFormat(1):  4,
	}
	for format, want := range tests {
		assert.Equal(t, want, graphics.BytesPerPixel(format), "format 0x%04X", uint32(format))
	}
}

func TestStaticTexture(t *testing.T) {
	tex, err := graphics.StaticTexture(7).TextureID()
	require.NoError(t, err)
	assert.Equal(t, graphics.Texture(7), tex)
}

func TestLoggerIsSilentByDefault(t *testing.T) {
	assert.False(t, graphics.Logger().Enabled(context.Background(), slog.LevelError))

	var buf bytes.Buffer
	graphics.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	defer graphics.SetLogger(nil)
	graphics.Logger().Info("hello", "k", 1)
	assert.Contains(t, buf.String(), "msg=hello k=1")

	graphics.SetLogger(nil)
	assert.False(t, graphics.Logger().Enabled(context.Background(), slog.LevelError))
}
