package media

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/memory"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageOptions control how a still image becomes a texture.
type ImageOptions struct {
	// Flip stores the image bottom row first, as GL samples it.
	Flip bool
	// MaxSize scales the image down so neither side exceeds it. Zero keeps
	// the original size.
	MaxSize int
	// Format defaults to RGBA8; SRGB8Alpha8 and RGBA16F are also useful.
	Format graphics.PixelFormat
}

// DecodeImageFile decodes a PNG, JPEG, BMP or WebP file.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// vflip vertically flips the provided RGBA image.
func vflip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()

	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}

func fitWithin(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		return max, maxInt(1, h*max/w)
	}
	return maxInt(1, w*max/h), max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ToRGBA converts img to tightly packed RGBA, scaling and flipping it as
// opts ask.
func ToRGBA(img image.Image, opts ImageOptions) *image.RGBA {
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), opts.MaxSize)
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	} else {
		xdraw.CatmullRom.Scale(rgba, rgba.Bounds(), img, b, xdraw.Src, nil)
	}
	if opts.Flip {
		rgba = vflip(rgba)
	}
	return rgba
}

// StillTexture is a budgeted texture holding a decoded image. The pixels
// stay in memory so an evicted texture can be uploaded again.
type StillTexture struct {
	id     string
	pixels *image.RGBA
	format graphics.PixelFormat
	opt    *memory.Optimizer
	res    *memory.TextureResource
}

// NewStillTexture converts img and uploads it under id.
func NewStillTexture(opt *memory.Optimizer, id string, img image.Image, opts ImageOptions) (*StillTexture, error) {
	if img == nil {
		return nil, fmt.Errorf("image %q is nil", id)
	}
	if opts.Format == 0 {
		opts.Format = graphics.RGBA8
	}
	s := &StillTexture{id: id, pixels: ToRGBA(img, opts), format: opts.Format, opt: opt}
	if _, err := s.Update(); err != nil {
		return nil, err
	}
	size := s.Size()
	graphics.Logger().Debug("image texture loaded", "id", id, "width", size.X, "height", size.Y)
	return s, nil
}

// Size is the texture size after scaling.
func (s *StillTexture) Size() image.Point { return s.pixels.Rect.Size() }

// Update re-uploads the image if it was evicted and marks it used
// otherwise. It reports whether pixels were uploaded.
func (s *StillTexture) Update() (bool, error) {
	if s.res != nil && !s.res.Evicted() {
		return false, s.opt.TouchTexture(s.id)
	}
	size := s.Size()
	res, err := s.opt.CreateTexture(s.id, size.X, size.Y, s.format, s.pixels.Pix)
	if err != nil {
		return false, fmt.Errorf("image texture %q: %w", s.id, err)
	}
	s.res = res
	return true, nil
}

// TextureID resolves the texture; after an eviction it returns
// graphics.ErrDisposed until the next Update.
func (s *StillTexture) TextureID() (graphics.Texture, error) {
	if s.res == nil {
		return 0, fmt.Errorf("image texture %q: %w", s.id, graphics.ErrDisposed)
	}
	return s.res.TextureID()
}

// Remove drops the texture from the optimizer.
func (s *StillTexture) Remove() error {
	if s.res == nil || s.res.Evicted() {
		s.res = nil
		return nil
	}
	s.res = nil
	return s.opt.RemoveTexture(s.id)
}

var patternBars = []color.RGBA{
	{192, 192, 192, 255},
	{192, 192, 0, 255},
	{0, 192, 192, 255},
	{0, 192, 0, 255},
	{192, 0, 192, 255},
	{192, 0, 0, 255},
	{0, 0, 192, 255},
}

// ColorBars draws color bars over a grey ramp, shown when there is no
// video input.
func ColorBars(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	bars := height * 2 / 3
	for x := 0; x < width; x++ {
		bar := patternBars[x*len(patternBars)/width]
		grey := uint8(x * 255 / maxInt(1, width-1))
		for y := 0; y < height; y++ {
			if y < bars {
				img.SetRGBA(x, y, bar)
			} else {
				img.SetRGBA(x, y, color.RGBA{grey, grey, grey, 255})
			}
		}
	}
	return img
}
