package graphics

import "errors"

// ErrDisposed is returned when a disposed or evicted resource is used.
var ErrDisposed = errors.New("resource has been disposed")

// TextureRef is anything that resolves to a live texture handle: registered
// textures, framebuffer color attachments, caller-owned handles. It returns
// an error wrapping ErrDisposed once the texture is gone.
type TextureRef interface {
	TextureID() (Texture, error)
}

// StaticTexture wraps a caller-owned handle whose lifetime is managed
// elsewhere.
type StaticTexture Texture

func (t StaticTexture) TextureID() (Texture, error) {
	return Texture(t), nil
}
