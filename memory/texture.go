package memory

import (
	"fmt"

	"github.com/richinsley/gocompositor/graphics"
)

// TextureResource is a registered texture. The optimizer owns the handle:
// callers must not delete it themselves.
type TextureResource struct {
	ID            string
	Handle        graphics.Texture
	Width         int
	Height        int
	Format        graphics.PixelFormat
	BytesPerPixel int
	Size          int64
	// LastUsed is a logical clock value; larger is more recent.
	LastUsed uint64

	evicted    bool
	prev, next *TextureResource
}

// TextureID resolves the handle. Once the texture has been evicted or
// removed it returns an error wrapping graphics.ErrDisposed.
func (t *TextureResource) TextureID() (graphics.Texture, error) {
	if t.evicted {
		return 0, fmt.Errorf("texture %q: %w", t.ID, graphics.ErrDisposed)
	}
	return t.Handle, nil
}

// Evicted reports whether the handle has been destroyed.
func (t *TextureResource) Evicted() bool { return t.evicted }

func footprint(width, height int, format graphics.PixelFormat) (int, int64) {
	bpp := graphics.BytesPerPixel(format)
	return bpp, int64(width) * int64(height) * int64(bpp)
}
