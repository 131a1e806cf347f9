package media

import (
	"fmt"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/memory"
)

// FrameSource yields decoded RGBA frames. *Decoder satisfies it.
type FrameSource interface {
	Info() VideoInfo
	Latest() ([]byte, bool)
	Release(frame []byte)
}

// VideoTexture keeps a budgeted texture filled with the newest decoded
// frame. If the optimizer evicts it, the next Update recreates it.
type VideoTexture struct {
	id  string
	src FrameSource
	opt *memory.Optimizer
	res *memory.TextureResource
}

func NewVideoTexture(id string, src FrameSource, opt *memory.Optimizer) *VideoTexture {
	return &VideoTexture{id: id, src: src, opt: opt}
}

// Update uploads the newest frame if one arrived since the last call and
// marks the texture used either way. It reports whether new pixels were
// uploaded.
func (v *VideoTexture) Update() (bool, error) {
	frame, ok := v.src.Latest()
	if v.res == nil || v.res.Evicted() {
		if !ok {
			return false, nil
		}
		info := v.src.Info()
		res, err := v.opt.CreateTexture(v.id, info.Width, info.Height, graphics.RGBA8, frame)
		v.src.Release(frame)
		if err != nil {
			return false, fmt.Errorf("video texture %q: %w", v.id, err)
		}
		v.res = res
		return true, nil
	}
	if !ok {
		return false, v.opt.TouchTexture(v.id)
	}
	err := v.opt.UpdateTexture(v.id, frame)
	v.src.Release(frame)
	if err != nil {
		return false, fmt.Errorf("video texture %q: %w", v.id, err)
	}
	return true, nil
}

// TextureID resolves to the current frame texture. Before the first frame
// arrives, or after an eviction, it returns graphics.ErrDisposed.
func (v *VideoTexture) TextureID() (graphics.Texture, error) {
	if v.res == nil {
		return 0, fmt.Errorf("video texture %q: %w", v.id, graphics.ErrDisposed)
	}
	return v.res.TextureID()
}

// Remove drops the texture from the optimizer.
func (v *VideoTexture) Remove() error {
	if v.res == nil || v.res.Evicted() {
		v.res = nil
		return nil
	}
	v.res = nil
	return v.opt.RemoveTexture(v.id)
}
