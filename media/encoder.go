package media

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/richinsley/gocompositor/framebuffer"
	"github.com/richinsley/gocompositor/graphics"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"
)

// EncoderOptions configure an Encoder.
type EncoderOptions struct {
	Width, Height int
	FPS           int
	// Codec is "h264" (default) or "hevc".
	Codec string
	// Bitrate such as "25M". Empty leaves the encoder default.
	Bitrate string
	// FFmpegPath overrides the ffmpeg binary found on PATH.
	FFmpegPath string
	// Buffer is the number of frames queued ahead of ffmpeg.
	Buffer int
}

// Encoder pipes raw RGBA frames into ffmpeg on a background goroutine.
type Encoder struct {
	opts    EncoderOptions
	frames  chan []byte
	free    chan []byte
	g       errgroup.Group
	closed  bool
	written int64
}

func encoderArgs(outputFile string, opts EncoderOptions) (inputArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"framerate": fmt.Sprintf("%d", opts.FPS),
	}
	outputArgs = ffmpeg.KwArgs{
		// Readback is bottom-up.
		"vf":      "vflip",
		"pix_fmt": "yuv420p",
	}

	hevc := opts.Codec == "hevc"
	switch runtime.GOOS {
	case "darwin":
		if hevc {
			outputArgs["c:v"] = "hevc_videotoolbox"
		} else {
			outputArgs["c:v"] = "h264_videotoolbox"
		}
	default:
		if hevc {
			outputArgs["c:v"] = "libx265"
		} else {
			outputArgs["c:v"] = "libx264"
		}
	}
	if opts.Bitrate != "" {
		outputArgs["b:v"] = opts.Bitrate
	}
	if hevc && strings.HasSuffix(outputFile, ".mp4") {
		outputArgs["tag:v"] = "hvc1"
	}
	return inputArgs, outputArgs
}

// NewEncoder starts ffmpeg writing to outputFile, overwriting it.
func NewEncoder(outputFile string, opts EncoderOptions) (*Encoder, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("encoder: invalid size %dx%d", opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 3
	}

	pipeReader, pipeWriter := io.Pipe()
	inputArgs, outputArgs := encoderArgs(outputFile, opts)
	ffmpegCmd := ffmpeg.Input("pipe:", inputArgs).
		Output(outputFile, outputArgs).
		OverWriteOutput().WithInput(pipeReader).ErrorToStdOut()
	if opts.FFmpegPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(opts.FFmpegPath)
	}

	e := &Encoder{
		opts:   opts,
		frames: make(chan []byte, opts.Buffer),
		free:   make(chan []byte, opts.Buffer+1),
	}
	e.g.Go(func() error {
		err := ffmpegCmd.Run()
		// Unblock the writer if ffmpeg died early.
		pipeReader.CloseWithError(io.ErrClosedPipe)
		return err
	})
	e.g.Go(func() error {
		defer pipeWriter.Close()
		return e.drain(pipeWriter)
	})
	graphics.Logger().Info("video encoder started",
		"output", outputFile, "width", opts.Width, "height", opts.Height, "fps", opts.FPS, "codec", outputArgs["c:v"])
	return e, nil
}

// drain writes queued frames to w until the queue closes. After a write
// failure it keeps consuming so WriteFrame never blocks forever.
func (e *Encoder) drain(w io.Writer) error {
	var werr error
	for frame := range e.frames {
		if werr == nil {
			if _, err := w.Write(frame); err != nil {
				werr = fmt.Errorf("writing frame to ffmpeg: %w", err)
			}
		}
		select {
		case e.free <- frame:
		default:
		}
	}
	return werr
}

func (e *Encoder) frameSize() int { return e.opts.Width * e.opts.Height * 4 }

func (e *Encoder) buffer() []byte {
	select {
	case b := <-e.free:
		return b
	default:
		return make([]byte, e.frameSize())
	}
}

// WriteFrame queues a copy of pixels, which must hold one RGBA frame. It
// blocks only when the queue is full.
func (e *Encoder) WriteFrame(pixels []byte) error {
	if e.closed {
		return fmt.Errorf("encoder: %w", graphics.ErrDisposed)
	}
	if len(pixels) != e.frameSize() {
		return fmt.Errorf("encoder: frame holds %d bytes, need %d", len(pixels), e.frameSize())
	}
	b := e.buffer()
	copy(b, pixels)
	e.frames <- b
	e.written++
	return nil
}

// WriteFramebuffer reads fb back and queues the pixels. fb must match the
// encoder size.
func (e *Encoder) WriteFramebuffer(fb *framebuffer.Framebuffer) error {
	if e.closed {
		return fmt.Errorf("encoder: %w", graphics.ErrDisposed)
	}
	if fb.Width() != e.opts.Width || fb.Height() != e.opts.Height {
		return fmt.Errorf("encoder: framebuffer is %dx%d, encoder is %dx%d",
			fb.Width(), fb.Height(), e.opts.Width, e.opts.Height)
	}
	b := e.buffer()
	if err := fb.ReadPixels(b); err != nil {
		return err
	}
	e.frames <- b
	e.written++
	return nil
}

// Frames reports how many frames have been queued.
func (e *Encoder) Frames() int64 { return e.written }

// Close flushes the queue, waits for ffmpeg to finish the file and returns
// the first error from either side.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	close(e.frames)
	err := e.g.Wait()
	graphics.Logger().Info("video encoder stopped", "frames", e.written)
	return err
}
