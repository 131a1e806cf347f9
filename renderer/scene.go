package renderer

import (
	"fmt"

	"github.com/richinsley/gocompositor/batch"
	"github.com/richinsley/gocompositor/framebuffer"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/shader"
	"github.com/richinsley/gocompositor/state"
)

// Effects selects the post-processing chain. A zero field disables its
// effect: blur needs BlurIterations > 0, brightness/contrast a non-zero
// Brightness or Contrast, vignette a positive VignetteIntensity.
type Effects struct {
	BlurIterations    int
	BlurRadius        float32
	Brightness        float32
	Contrast          float32
	VignetteIntensity float32
	VignetteSoftness  float32
}

// Layer is a textured rectangle drawn over the background, in pixels.
// Hidden layers keep their place in the stack but are not drawn.
type Layer struct {
	Name    string
	Texture graphics.TextureRef
	Dst     graphics.Rect
	Src     *graphics.Rect
	Hidden  bool
}

// SceneConfig sizes a Scene. Tiles is the number of background thumbnails
// drawn along the bottom edge.
type SceneConfig struct {
	Width, Height int
	Tiles         int
}

// Scene composes a frame: the background, its thumbnail strip and the
// layers are batched into an off-screen target, then the effect chain
// runs from there to the output.
type Scene struct {
	st    *state.Cache
	batch *batch.Renderer
	post  *PostProcessor
	blit  *Renderer
	copy  *shader.Program

	target *framebuffer.Framebuffer
	// Effects alternate between the two stages so no pass samples its own
	// target.
	stages [2]*framebuffer.Framebuffer

	cfg        SceneConfig
	background graphics.TextureRef
	layers     []Layer
	effects    Effects
}

// NewScene allocates the scene targets. b is shared, not owned: the caller
// keeps it for stats and disposes it.
func NewScene(st *state.Cache, cache *shader.Cache, b *batch.Renderer, cfg SceneConfig) (*Scene, error) {
	s := &Scene{st: st, batch: b, cfg: cfg}
	var err error
	s.copy, err = cache.GetOrCreate(shader.FullscreenVertex(cache.ESSL()), shader.BlitFragment(false, cache.ESSL()))
	if err != nil {
		return nil, fmt.Errorf("blit program: %w", err)
	}
	opts := framebuffer.Options{Width: cfg.Width, Height: cfg.Height}
	if s.target, err = framebuffer.New(st, opts); err != nil {
		return nil, err
	}
	for i := range s.stages {
		if s.stages[i], err = framebuffer.New(st, opts); err != nil {
			s.Dispose()
			return nil, err
		}
	}
	if s.post, err = NewPostProcessor(st, cache, cfg.Width, cfg.Height); err != nil {
		s.Dispose()
		return nil, err
	}
	s.blit = New(st, cfg.Width, cfg.Height)
	graphics.Logger().Info("scene created", "width", cfg.Width, "height", cfg.Height, "tiles", cfg.Tiles)
	return s, nil
}

// SetBackground sets the full-frame texture. nil leaves the frame cleared.
func (s *Scene) SetBackground(t graphics.TextureRef) { s.background = t }

// AddLayer appends l; layers draw in the order added.
func (s *Scene) AddLayer(l Layer) error {
	for _, existing := range s.layers {
		if existing.Name == l.Name {
			return fmt.Errorf("layer %q already exists", l.Name)
		}
	}
	s.layers = append(s.layers, l)
	return nil
}

// RemoveLayer drops the layer called name.
func (s *Scene) RemoveLayer(name string) bool {
	for i, l := range s.layers {
		if l.Name == name {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

// SetLayerHidden hides or shows the layer called name. It reports whether
// the layer exists.
func (s *Scene) SetLayerHidden(name string, hidden bool) bool {
	for i := range s.layers {
		if s.layers[i].Name == name {
			s.layers[i].Hidden = hidden
			return true
		}
	}
	return false
}

func (s *Scene) SetEffects(e Effects) { s.effects = e }

func (s *Scene) Effects() Effects { return s.effects }

// Target is the off-screen composite before effects.
func (s *Scene) Target() *framebuffer.Framebuffer { return s.target }

// Render composes one frame into out. A nil out renders to the screen.
func (s *Scene) Render(out *framebuffer.Framebuffer) error {
	if err := s.compose(); err != nil {
		return fmt.Errorf("compose: %w", err)
	}
	if err := s.applyEffects(out); err != nil {
		return fmt.Errorf("effects: %w", err)
	}
	return nil
}

// tileRects lays the thumbnail strip along the bottom edge, keeping the
// frame's aspect ratio.
func tileRects(width, height, tiles int) []graphics.Rect {
	if tiles <= 0 || width <= 0 || height <= 0 {
		return nil
	}
	w := float32(width) / float32(tiles)
	h := w * float32(height) / float32(width)
	pad := w * 0.05
	rects := make([]graphics.Rect, tiles)
	for i := range rects {
		rects[i] = graphics.Rect{
			X: float32(i)*w + pad,
			Y: float32(height) - h + pad,
			W: w - 2*pad,
			H: h - 2*pad,
		}
	}
	return rects
}

func (s *Scene) compose() error {
	if err := s.target.Bind(); err != nil {
		return err
	}
	dev := s.st.Device()
	dev.ClearColor(0, 0, 0, 1)
	dev.Clear(graphics.ColorBufferBit)

	w, h := s.target.Width(), s.target.Height()
	if err := s.batch.SetProjection(w, h); err != nil {
		return err
	}
	if err := s.batch.Begin(); err != nil {
		return err
	}
	if s.background != nil {
		// Background and thumbnails share a texture, so they go out in one
		// draw call.
		if err := s.batch.Draw(batch.Item{Texture: s.background, Dst: graphics.Rect{W: float32(w), H: float32(h)}}); err != nil {
			return err
		}
		for _, r := range tileRects(w, h, s.cfg.Tiles) {
			if err := s.batch.Draw(batch.Item{Texture: s.background, Dst: r}); err != nil {
				return err
			}
		}
	}
	for _, l := range s.layers {
		if l.Hidden {
			continue
		}
		if err := s.batch.Draw(batch.Item{Texture: l.Texture, Dst: l.Dst, Src: l.Src}); err != nil {
			return fmt.Errorf("layer %q: %w", l.Name, err)
		}
	}
	if err := s.batch.End(); err != nil {
		return err
	}
	s.st.SetBlend(false, graphics.One, graphics.Zero)
	return nil
}

type effectStep func(in graphics.TextureRef, out *framebuffer.Framebuffer) error

func (s *Scene) steps() []effectStep {
	e := s.effects
	var steps []effectStep
	if e.BlurIterations > 0 {
		steps = append(steps, func(in graphics.TextureRef, out *framebuffer.Framebuffer) error {
			return s.post.Blur(in, out, e.BlurIterations, e.BlurRadius)
		})
	}
	if e.Brightness != 0 || e.Contrast != 0 {
		steps = append(steps, func(in graphics.TextureRef, out *framebuffer.Framebuffer) error {
			return s.post.BrightnessContrast(in, out, e.Brightness, e.Contrast)
		})
	}
	if e.VignetteIntensity > 0 {
		steps = append(steps, func(in graphics.TextureRef, out *framebuffer.Framebuffer) error {
			return s.post.Vignette(in, out, e.VignetteIntensity, e.VignetteSoftness)
		})
	}
	return steps
}

func (s *Scene) applyEffects(out *framebuffer.Framebuffer) error {
	steps := s.steps()
	if len(steps) == 0 {
		s.blit.ClearPasses()
		err := s.blit.AddPass(&Pass{
			Name:    "output",
			Program: s.copy,
			Inputs:  Inputs(s.target),
			Target:  out,
		})
		if err != nil {
			return err
		}
		return s.blit.Render()
	}

	var src graphics.TextureRef = s.target
	for i, step := range steps {
		dst := out
		if i < len(steps)-1 {
			dst = s.stages[i%2]
		}
		if err := step(src, dst); err != nil {
			return err
		}
		src = dst
	}
	return nil
}

// Resize reallocates every scene target. Contents are lost.
func (s *Scene) Resize(width, height int) error {
	if err := s.target.Resize(width, height); err != nil {
		return err
	}
	for _, fb := range s.stages {
		if err := fb.Resize(width, height); err != nil {
			return err
		}
	}
	if err := s.post.Resize(width, height); err != nil {
		return err
	}
	s.blit.SetViewport(width, height)
	s.cfg.Width, s.cfg.Height = width, height
	return nil
}

// Dispose releases the targets and helper renderers. Layer textures, the
// batch renderer and cached programs are left to their owners.
func (s *Scene) Dispose() {
	if s == nil {
		return
	}
	if s.target != nil {
		s.target.Dispose()
	}
	for _, fb := range s.stages {
		if fb != nil {
			fb.Dispose()
		}
	}
	if s.post != nil {
		s.post.Dispose()
	}
	if s.blit != nil {
		s.blit.Dispose()
	}
	s.layers = nil
	graphics.Logger().Debug("scene disposed")
}
