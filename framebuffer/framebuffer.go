// Package framebuffer manages off-screen render targets: a color texture
// with an optional depth and/or stencil renderbuffer.
package framebuffer

import (
	"fmt"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/state"
)

// Options describe a render target. A zero Format means RGBA8 and a zero
// Filter means Linear.
type Options struct {
	Width   int
	Height  int
	Format  graphics.PixelFormat
	Filter  graphics.Filter
	Depth   bool
	Stencil bool
}

// CompletenessError is returned when the driver rejects the attachment
// combination. Status is the raw completeness code.
type CompletenessError struct {
	Status        graphics.FramebufferStatus
	Width, Height int
}

func (e *CompletenessError) Error() string {
	return fmt.Sprintf("framebuffer %dx%d incomplete: %s (0x%04X)", e.Width, e.Height, e.Status, uint32(e.Status))
}

// Framebuffer is an off-screen render target. It is complete from
// construction until Dispose.
type Framebuffer struct {
	st   *state.Cache
	opts Options

	fb       graphics.Framebuffer
	color    graphics.Texture
	rb       graphics.Renderbuffer
	rbFmt    graphics.PixelFormat
	rbAtt    graphics.Attachment
	width    int
	height   int
	released bool
}

// New allocates the attachments and verifies completeness. On failure
// every partially created object is released before returning.
func New(st *state.Cache, opts Options) (*Framebuffer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("framebuffer: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.Format == 0 {
		opts.Format = graphics.RGBA8
	}
	if opts.Filter == 0 {
		opts.Filter = graphics.Linear
	}
	f := &Framebuffer{st: st, opts: opts, width: opts.Width, height: opts.Height}
	switch {
	case opts.Depth && opts.Stencil:
		f.rbFmt, f.rbAtt = graphics.Depth24Stencil8, graphics.DepthStencilAttachment
	case opts.Depth:
		f.rbFmt, f.rbAtt = graphics.Depth24, graphics.DepthAttachment
	case opts.Stencil:
		f.rbFmt, f.rbAtt = graphics.StencilIndex8, graphics.StencilAttachment
	}

	dev := st.Device()
	f.color = dev.CreateTexture()
	st.BindTexture(graphics.Texture2D, f.color)
	dev.TexParameters(graphics.Texture2D, opts.Filter, graphics.ClampToEdge)
	dev.TexImage2D(graphics.Texture2D, opts.Format, f.width, f.height, nil)

	f.fb = dev.CreateFramebuffer()
	st.BindFramebuffer(f.fb)
	dev.FramebufferTexture2D(graphics.ColorAttachment0, f.color)

	if f.rbFmt != 0 {
		f.rb = dev.CreateRenderbuffer()
		dev.BindRenderbuffer(f.rb)
		dev.RenderbufferStorage(f.rbFmt, f.width, f.height)
		dev.FramebufferRenderbuffer(f.rbAtt, f.rb)
		dev.BindRenderbuffer(0)
	}

	if err := f.checkComplete(); err != nil {
		f.release()
		return nil, err
	}
	st.BindFramebuffer(graphics.Screen)

	graphics.Logger().Info("framebuffer created",
		"framebuffer", f.fb, "width", f.width, "height", f.height, "depth", opts.Depth, "stencil", opts.Stencil)
	return f, nil
}

// checkComplete expects f.fb to be bound.
func (f *Framebuffer) checkComplete() error {
	status := f.st.Device().CheckFramebufferStatus()
	if status != graphics.FramebufferComplete {
		return &CompletenessError{Status: status, Width: f.width, Height: f.height}
	}
	return nil
}

func (f *Framebuffer) release() {
	dev := f.st.Device()
	if f.fb != 0 {
		f.st.DeleteFramebuffer(f.fb)
		f.fb = 0
	}
	if f.color != 0 {
		f.st.DeleteTexture(f.color)
		f.color = 0
	}
	if f.rb != 0 {
		dev.DeleteRenderbuffer(f.rb)
		f.rb = 0
	}
}

func (f *Framebuffer) check() error {
	if f.released {
		return fmt.Errorf("framebuffer: %w", graphics.ErrDisposed)
	}
	return nil
}

// Bind makes f the render destination and sets the viewport to its full
// size.
func (f *Framebuffer) Bind() error {
	if err := f.check(); err != nil {
		return err
	}
	f.st.BindFramebuffer(f.fb)
	f.st.Viewport(0, 0, f.width, f.height)
	return nil
}

// Resize reallocates every attachment at the new size, even when the size
// is unchanged. Contents are lost.
func (f *Framebuffer) Resize(width, height int) error {
	if err := f.check(); err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("framebuffer: invalid size %dx%d", width, height)
	}
	f.width, f.height = width, height

	dev := f.st.Device()
	f.st.BindTexture(graphics.Texture2D, f.color)
	dev.TexImage2D(graphics.Texture2D, f.opts.Format, width, height, nil)
	if f.rb != 0 {
		dev.BindRenderbuffer(f.rb)
		dev.RenderbufferStorage(f.rbFmt, width, height)
		dev.BindRenderbuffer(0)
	}

	f.st.BindFramebuffer(f.fb)
	if err := f.checkComplete(); err != nil {
		return err
	}
	graphics.Logger().Debug("framebuffer resized", "framebuffer", f.fb, "width", width, "height", height)
	return nil
}

// TextureID returns the color attachment.
func (f *Framebuffer) TextureID() (graphics.Texture, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	return f.color, nil
}

// Handle returns the framebuffer object.
func (f *Framebuffer) Handle() (graphics.Framebuffer, error) {
	if err := f.check(); err != nil {
		return 0, err
	}
	return f.fb, nil
}

func (f *Framebuffer) Width() int  { return f.width }
func (f *Framebuffer) Height() int { return f.height }

// Format returns the color attachment format.
func (f *Framebuffer) Format() graphics.PixelFormat { return f.opts.Format }

// ReadPixels binds f and reads its RGBA8 contents into dst, which must hold
// Width×Height×4 bytes.
func (f *Framebuffer) ReadPixels(dst []byte) error {
	if err := f.Bind(); err != nil {
		return err
	}
	if need := f.width * f.height * 4; len(dst) < need {
		return fmt.Errorf("framebuffer: read buffer holds %d bytes, need %d", len(dst), need)
	}
	f.st.Device().ReadPixels(0, 0, f.width, f.height, dst)
	return nil
}

// Dispose deletes every attachment. It is safe to call more than once.
func (f *Framebuffer) Dispose() {
	if f.released {
		return
	}
	f.release()
	f.released = true
}

// Disposed reports whether Dispose has run.
func (f *Framebuffer) Disposed() bool { return f.released }
