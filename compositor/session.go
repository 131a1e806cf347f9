// Package compositor runs the per-frame pipeline: refresh the texture
// sources, compose the scene, hand the result to an optional sink and keep
// the profiler fed.
package compositor

import (
	"errors"
	"fmt"

	"github.com/richinsley/gocompositor/framebuffer"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/memory"
	"github.com/richinsley/gocompositor/options"
	"github.com/richinsley/gocompositor/profiler"
	"github.com/richinsley/gocompositor/renderer"
	"github.com/richinsley/gocompositor/state"
)

// Source is a texture whose contents are refreshed once per frame.
// *media.VideoTexture and *media.StillTexture satisfy it.
type Source interface {
	graphics.TextureRef
	Update() (bool, error)
}

// Sink consumes finished frames. *media.Encoder satisfies it.
type Sink interface {
	WriteFramebuffer(fb *framebuffer.Framebuffer) error
}

// Config bounds a session.
type Config struct {
	// Frames stops the session after this many frames; zero runs until the
	// context closes.
	Frames int64
	// ProfileEvery logs a profiler report every N frames; zero disables it.
	ProfileEvery int64
}

var errFinished = errors.New("session finished")

type overlay struct {
	name string
	src  Source
}

// Session owns the frame loop state. It runs on the render thread only.
type Session struct {
	st    *state.Cache
	scene *renderer.Scene
	prof  *profiler.Profiler
	mem   *memory.Optimizer
	cfg   Config

	background Source
	overlays   []overlay

	sink   Sink
	output *framebuffer.Framebuffer

	opts     *options.Options
	explicit map[string]bool
	reloads  <-chan *options.FileConfig

	frames int64
}

// New builds a session around scene. mem may be nil; when set, config
// reloads also update its limit.
func New(st *state.Cache, scene *renderer.Scene, prof *profiler.Profiler, mem *memory.Optimizer, cfg Config) *Session {
	return &Session{st: st, scene: scene, prof: prof, mem: mem, cfg: cfg}
}

// EffectsFrom converts the effect options into scene effects.
func EffectsFrom(e options.Effects) renderer.Effects {
	return renderer.Effects{
		BlurIterations:    *e.BlurIterations,
		BlurRadius:        float32(*e.BlurRadius),
		Brightness:        float32(*e.Brightness),
		Contrast:          float32(*e.Contrast),
		VignetteIntensity: float32(*e.VignetteIntensity),
		VignetteSoftness:  float32(*e.VignetteSoftness),
	}
}

// SetBackground sets the full-frame source. Until it first resolves to a
// texture the frame is drawn without it.
func (s *Session) SetBackground(src Source) { s.background = src }

// AddOverlay draws src at dst on top of the background.
func (s *Session) AddOverlay(name string, src Source, dst graphics.Rect) error {
	if err := s.scene.AddLayer(renderer.Layer{Name: name, Texture: src, Dst: dst}); err != nil {
		return err
	}
	s.overlays = append(s.overlays, overlay{name: name, src: src})
	return nil
}

// SetSink renders every frame into an off-screen target of the scene's
// size and passes it to sink instead of presenting it.
func (s *Session) SetSink(sink Sink) error {
	t := s.scene.Target()
	fb, err := framebuffer.New(s.st, framebuffer.Options{Width: t.Width(), Height: t.Height()})
	if err != nil {
		return fmt.Errorf("output target: %w", err)
	}
	if s.output != nil {
		s.output.Dispose()
	}
	s.sink, s.output = sink, fb
	return nil
}

// WatchConfig applies reloaded config files at the start of the next
// frame. Flags in explicit keep their command-line values.
func (s *Session) WatchConfig(ch <-chan *options.FileConfig, opts *options.Options, explicit map[string]bool) {
	s.reloads, s.opts, s.explicit = ch, opts, explicit
}

func (s *Session) applyReloads() {
	select {
	case fc, ok := <-s.reloads:
		if !ok {
			s.reloads = nil
			return
		}
		s.opts.Apply(fc, s.explicit)
		s.scene.SetEffects(EffectsFrom(s.opts.Effects))
		if s.mem != nil {
			s.mem.SetLimit(int64(*s.opts.MemoryLimitMB) << 20)
		}
		graphics.Logger().Info("effects updated", "effects", fmt.Sprintf("%+v", s.scene.Effects()))
	default:
	}
}

// updateSources refreshes every source before resolving any of them: a
// source recreated after eviction may evict another one. Sources without a
// live texture are left out of this frame.
func (s *Session) updateSources() error {
	if s.background != nil {
		if _, err := s.background.Update(); err != nil {
			return err
		}
	}
	for _, o := range s.overlays {
		if _, err := o.src.Update(); err != nil {
			return fmt.Errorf("overlay %q: %w", o.name, err)
		}
	}

	if s.background != nil {
		if _, err := s.background.TextureID(); err == nil {
			s.scene.SetBackground(s.background)
		} else {
			s.scene.SetBackground(nil)
		}
	}
	for _, o := range s.overlays {
		_, err := o.src.TextureID()
		if err != nil {
			graphics.Logger().Debug("overlay skipped", "name", o.name, "err", err)
		}
		s.scene.SetLayerHidden(o.name, err != nil)
	}
	return nil
}

// Frame runs one tick of the pipeline.
func (s *Session) Frame(info graphics.FrameInfo) error {
	s.prof.BeginFrame()
	if s.reloads != nil {
		s.applyReloads()
	}

	// Preview follows the window; exports keep their fixed size.
	t := s.scene.Target()
	if s.sink == nil && info.Width > 0 && info.Height > 0 && (info.Width != t.Width() || info.Height != t.Height()) {
		if err := s.scene.Resize(info.Width, info.Height); err != nil {
			return err
		}
	}

	done := s.prof.Section("update")
	err := s.updateSources()
	done()
	if err != nil {
		return err
	}

	done = s.prof.Section("render")
	err = s.scene.Render(s.output)
	done()
	if err != nil {
		return err
	}

	if s.sink != nil {
		done = s.prof.Section("encode")
		err = s.sink.WriteFramebuffer(s.output)
		done()
		if err != nil {
			return fmt.Errorf("frame %d: %w", info.Frame, err)
		}
	}

	s.prof.EndFrame()
	s.frames++
	if s.cfg.ProfileEvery > 0 && s.frames%s.cfg.ProfileEvery == 0 {
		s.prof.LogReport()
	}
	if s.cfg.Frames > 0 && s.frames >= s.cfg.Frames {
		return errFinished
	}
	return nil
}

// Frames reports how many frames have completed.
func (s *Session) Frames() int64 { return s.frames }

// Run drives Frame from ctx's frame loop until the context closes, the
// frame budget is spent or a frame fails.
func (s *Session) Run(ctx graphics.Context) error {
	graphics.Logger().Info("session started", "frames", s.cfg.Frames, "export", s.sink != nil)
	err := graphics.RunLoop(ctx, s.Frame)
	if errors.Is(err, errFinished) {
		err = nil
	}
	graphics.Logger().Info("session stopped", "frames", s.frames)
	return err
}

// Dispose releases the output target. Sources, scene and sink belong to
// the caller.
func (s *Session) Dispose() {
	if s.output != nil {
		s.output.Dispose()
		s.output = nil
	}
}
