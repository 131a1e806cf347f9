package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"

	"github.com/richinsley/gocompositor/batch"
	"github.com/richinsley/gocompositor/compositor"
	"github.com/richinsley/gocompositor/gldevice"
	"github.com/richinsley/gocompositor/glfwcontext"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/headless"
	"github.com/richinsley/gocompositor/media"
	"github.com/richinsley/gocompositor/memory"
	"github.com/richinsley/gocompositor/options"
	"github.com/richinsley/gocompositor/profiler"
	"github.com/richinsley/gocompositor/renderer"
	"github.com/richinsley/gocompositor/shader"
	"github.com/richinsley/gocompositor/state"
	"github.com/richinsley/gocompositor/translator"
)

func init() {
	runtime.LockOSThread()
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openBackground returns the video decoder texture for -input, or color
// bars when no input is given. The returned close func stops the decoder.
func openBackground(ctx context.Context, opts *options.Options, mem *memory.Optimizer) (compositor.Source, func() error, error) {
	if *opts.Input == "" {
		still, err := media.NewStillTexture(mem, "background", media.ColorBars(*opts.Width, *opts.Height), media.ImageOptions{})
		if err != nil {
			return nil, nil, err
		}
		return still, still.Remove, nil
	}

	dec, err := media.OpenDecoder(ctx, *opts.Input, media.DecoderOptions{
		FFmpegPath: *opts.FFMPEGPath,
		// Exports take every frame; previews keep pace with the clock.
		Realtime: *opts.Output == "",
		Loop:     *opts.Output == "",
	})
	if err != nil {
		return nil, nil, err
	}
	video := media.NewVideoTexture("background", dec, mem)
	closeFn := func() error {
		video.Remove()
		return dec.Close()
	}
	return video, closeFn, nil
}

// surface is a graphics.Context that can be asked to close from another
// goroutine.
type surface interface {
	graphics.Context
	RequestClose()
}

// openSurface returns the EGL pbuffer for headless exports and a GLFW
// window otherwise. gles reports whether shaders must be ESSL.
func openSurface(opts *options.Options) (s surface, release func(), gles bool, err error) {
	export := *opts.Output != ""
	width, height := *opts.Width, *opts.Height
	if export && *opts.Headless {
		pb, err := headless.New(width, height)
		if err != nil {
			return nil, nil, false, err
		}
		return pb, pb.Shutdown, true, nil
	}

	if err := glfwcontext.InitGraphics(); err != nil {
		return nil, nil, false, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	win, err := glfwcontext.New(glfwcontext.Config{
		Width:   width,
		Height:  height,
		Title:   "gocompositor",
		Visible: !export,
		VSync:   !export,
	})
	if err != nil {
		glfwcontext.TerminateGraphics()
		return nil, nil, false, fmt.Errorf("failed to create window: %w", err)
	}
	release = func() {
		win.Shutdown()
		glfwcontext.TerminateGraphics()
	}
	return win, release, false, nil
}

func run(ctx context.Context, opts *options.Options, explicit map[string]bool, reloads <-chan *options.FileConfig) error {
	export := *opts.Output != ""
	width, height := *opts.Width, *opts.Height
	win, release, gles, err := openSurface(opts)
	if err != nil {
		return err
	}
	defer release()

	gl, err := gldevice.New()
	if err != nil {
		return err
	}
	dev := profiler.NewDevice(gl)
	st := state.New(dev)

	var cacheOpts []shader.Option
	if gles {
		cacheOpts = append(cacheOpts, shader.WithGLES())
	}
	if *opts.Translate {
		tr, err := translator.New(gles)
		if err != nil {
			return err
		}
		cacheOpts = append(cacheOpts, shader.WithTranslator(tr))
	}
	cache := shader.NewCache(st, cacheOpts...)
	defer cache.Clear()

	mem := memory.New(st, memory.Config{
		Limit:             int64(*opts.MemoryLimitMB) << 20,
		EvictionThreshold: *opts.EvictionThreshold,
	})
	defer mem.Dispose()

	br, err := batch.New(st, cache, batch.Config{MaxBatchSize: *opts.MaxBatchSize, Accounting: mem})
	if err != nil {
		return err
	}
	defer br.Dispose()

	scene, err := renderer.NewScene(st, cache, br, renderer.SceneConfig{Width: width, Height: height, Tiles: *opts.Tiles})
	if err != nil {
		return err
	}
	defer scene.Dispose()
	scene.SetEffects(compositor.EffectsFrom(opts.Effects))

	prof := profiler.New(dev, st, profiler.WithMemory(mem), profiler.WithBatch(br))
	cfg := compositor.Config{ProfileEvery: int64(*opts.ProfileEvery)}
	if export {
		cfg.Frames = int64(math.Round(*opts.Duration * float64(*opts.FPS)))
	}
	session := compositor.New(st, scene, prof, mem, cfg)
	defer session.Dispose()
	if reloads != nil {
		session.WatchConfig(reloads, opts, explicit)
	}

	background, closeBackground, err := openBackground(ctx, opts, mem)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackground(); err != nil {
			graphics.Logger().Warn("closing background", "err", err)
		}
	}()
	session.SetBackground(background)

	if *opts.Overlay != "" {
		img, err := media.DecodeImageFile(*opts.Overlay)
		if err != nil {
			return err
		}
		logo, err := media.NewStillTexture(mem, "overlay", img, media.ImageOptions{MaxSize: 256})
		if err != nil {
			return err
		}
		defer logo.Remove()
		size := logo.Size()
		if err := session.AddOverlay("overlay", logo, graphics.Rect{X: 16, Y: 16, W: float32(size.X), H: float32(size.Y)}); err != nil {
			return err
		}
	}

	var enc *media.Encoder
	if export {
		enc, err = media.NewEncoder(*opts.Output, media.EncoderOptions{
			Width:      width,
			Height:     height,
			FPS:        *opts.FPS,
			Codec:      *opts.Codec,
			Bitrate:    *opts.Bitrate,
			FFmpegPath: *opts.FFMPEGPath,
		})
		if err != nil {
			return err
		}
		if err := session.SetSink(enc); err != nil {
			enc.Close()
			return err
		}
	}

	// Interrupts close the window so the loop ends on its own thread.
	running := make(chan struct{})
	defer close(running)
	go func() {
		select {
		case <-ctx.Done():
			win.RequestClose()
		case <-running:
		}
	}()

	err = session.Run(win)
	prof.LogReport()
	if enc != nil {
		if cerr := enc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("encoding %s: %w", *opts.Output, cerr)
		}
		if err == nil {
			graphics.Logger().Info("export finished", "file", *opts.Output, "frames", enc.Frames())
		}
	}
	return err
}

func main() {
	opts := options.Register(flag.CommandLine)
	flag.Parse()

	if *opts.Help {
		fmt.Println("GPU compositor preview/exporter")
		flag.PrintDefaults()
		return
	}

	logger := newLogger(*opts.Verbose)
	slog.SetDefault(logger)
	graphics.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	explicit := options.Explicit(flag.CommandLine)
	var reloads <-chan *options.FileConfig
	if *opts.ConfigFile != "" {
		fc, err := options.LoadConfig(*opts.ConfigFile)
		if err != nil {
			logger.Error("loading config", "err", err)
			os.Exit(1)
		}
		opts.Apply(fc, explicit)
		if reloads, err = options.Watch(ctx, *opts.ConfigFile); err != nil {
			logger.Warn("config file will not be watched", "err", err)
		}
	}

	if err := run(ctx, opts, explicit, reloads); err != nil {
		logger.Error("compositor failed", "err", err)
		stop()
		os.Exit(1)
	}
}
