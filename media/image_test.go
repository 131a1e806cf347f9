package media

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/graphics/graphicstest"
	"github.com/richinsley/gocompositor/memory"
	"github.com/richinsley/gocompositor/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stripes(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(y), A: 255})
		}
	}
	return img
}

func TestToRGBAFlipsRows(t *testing.T) {
	rgba := ToRGBA(stripes(2, 3), ImageOptions{Flip: true})
	require.Equal(t, image.Pt(2, 3), rgba.Rect.Size())
	assert.Equal(t, uint8(2), rgba.Pix[0], "bottom row comes first")
	assert.Equal(t, uint8(0), rgba.Pix[2*rgba.Stride])

	rgba = ToRGBA(stripes(2, 3), ImageOptions{})
	assert.Equal(t, uint8(0), rgba.Pix[0])
}

func TestToRGBAScalesToFit(t *testing.T) {
	rgba := ToRGBA(stripes(400, 100), ImageOptions{MaxSize: 100})
	assert.Equal(t, image.Pt(100, 25), rgba.Rect.Size())

	rgba = ToRGBA(stripes(10, 400), ImageOptions{MaxSize: 100})
	assert.Equal(t, image.Pt(2, 100), rgba.Rect.Size())

	rgba = ToRGBA(stripes(50, 40), ImageOptions{MaxSize: 100})
	assert.Equal(t, image.Pt(50, 40), rgba.Rect.Size())
}

func TestStillTexture(t *testing.T) {
	dev := graphicstest.New()
	st := state.New(dev)
	opt := memory.New(st, memory.Config{Limit: 1 << 20})

	path := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, stripes(8, 4)))
	require.NoError(t, f.Close())

	img, err := DecodeImageFile(path)
	require.NoError(t, err)
	still, err := NewStillTexture(opt, "logo", img, ImageOptions{Flip: true})
	require.NoError(t, err)
	assert.Equal(t, image.Pt(8, 4), still.Size())

	h, err := still.TextureID()
	require.NoError(t, err)
	assert.Equal(t, 8, dev.Textures[h].Width)
	assert.Equal(t, 4, dev.Textures[h].Height)
	assert.Equal(t, graphics.RGBA8, dev.Textures[h].Format)
	assert.Equal(t, int64(8*4*4), opt.Stats().TextureMemory)

	uploaded, err := still.Update()
	require.NoError(t, err)
	assert.False(t, uploaded)

	// Evicted stills are uploaded again from the kept pixels.
	_, err = opt.ForceEviction(0)
	require.NoError(t, err)
	_, err = still.TextureID()
	assert.ErrorIs(t, err, graphics.ErrDisposed)
	uploaded, err = still.Update()
	require.NoError(t, err)
	assert.True(t, uploaded)
	h2, err := still.TextureID()
	require.NoError(t, err)
	assert.Equal(t, "upload", dev.Content(h2))

	require.NoError(t, still.Remove())
	assert.Zero(t, opt.Stats().TextureCount)

	_, err = NewStillTexture(opt, "nil", nil, ImageOptions{})
	assert.Error(t, err)
	_, err = DecodeImageFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestColorBars(t *testing.T) {
	img := ColorBars(70, 30)
	assert.Equal(t, color.RGBA{192, 192, 192, 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{0, 0, 192, 255}, img.RGBAAt(69, 0))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(0, 29))
	assert.Equal(t, color.RGBA{255, 255, 255, 255}, img.RGBAAt(69, 29))
}
