package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/richinsley/gocompositor/graphics"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"golang.org/x/sync/errgroup"
)

// DecoderOptions configure a Decoder.
type DecoderOptions struct {
	// FFmpegPath overrides the ffmpeg binary found on PATH.
	FFmpegPath string
	// Realtime paces decoding at the file's native frame rate.
	Realtime bool
	// Loop restarts the file at EOF.
	Loop bool
	// Buffer is the number of decoded frames queued for the render thread.
	Buffer int
	// Flip delivers frames bottom row first, for samplers with v=0 at the
	// bottom. The batch renderer's top-left origin wants them unflipped.
	Flip bool
}

// Decoder streams RGBA frames from ffmpeg on background goroutines. The
// render thread collects them with Latest, which never blocks.
type Decoder struct {
	info   VideoInfo
	frames chan []byte
	pool   sync.Pool
	cancel context.CancelFunc
	pr     *io.PipeReader
	g      *errgroup.Group

	mu  sync.Mutex
	err error
}

func decoderArgs(opts DecoderOptions) (inputArgs, outputArgs ffmpeg.KwArgs) {
	inputArgs = ffmpeg.KwArgs{}
	if opts.Realtime {
		inputArgs["re"] = ""
	}
	if opts.Loop {
		inputArgs["stream_loop"] = "-1"
	}
	outputArgs = ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
	}
	if opts.Flip {
		outputArgs["vf"] = "vflip"
	}
	return inputArgs, outputArgs
}

// OpenDecoder probes path and starts decoding it.
func OpenDecoder(ctx context.Context, path string, opts DecoderOptions) (*Decoder, error) {
	info, err := Probe(path)
	if err != nil {
		return nil, err
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 3
	}

	inputArgs, outputArgs := decoderArgs(opts)
	pr, pw := io.Pipe()
	cmd := ffmpeg.Input(path, inputArgs).
		Output("pipe:", outputArgs).
		WithOutput(pw).
		ErrorToStdOut()
	if opts.FFmpegPath != "" {
		cmd = cmd.SetFfmpegPath(opts.FFmpegPath)
	}

	ctx, cancel := context.WithCancel(ctx)
	g, ctx := errgroup.WithContext(ctx)
	d := &Decoder{
		info:   info,
		frames: make(chan []byte, opts.Buffer),
		cancel: cancel,
		pr:     pr,
		g:      g,
	}
	size := info.FrameSize()
	d.pool.New = func() any { return make([]byte, size) }

	g.Go(func() error {
		err := cmd.Run()
		pw.CloseWithError(io.EOF)
		return err
	})
	g.Go(func() error {
		defer close(d.frames)
		err := d.pump(ctx, pr, size)
		if err != nil {
			d.setErr(err)
		}
		return err
	})

	graphics.Logger().Info("video decoder started",
		"path", path, "width", info.Width, "height", info.Height, "fps", info.FPS)
	return d, nil
}

// pump reads whole frames from r until EOF or cancellation.
func (d *Decoder) pump(ctx context.Context, r io.Reader, size int) error {
	for {
		buf := d.pool.Get().([]byte)
		if _, err := io.ReadFull(r, buf); err != nil {
			d.pool.Put(buf)
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				graphics.Logger().Warn("video stream ended mid-frame")
				return nil
			}
			return fmt.Errorf("reading frame: %w", err)
		}
		select {
		case d.frames <- buf:
		case <-ctx.Done():
			d.pool.Put(buf)
			return nil
		}
	}
}

func (d *Decoder) setErr(err error) {
	d.mu.Lock()
	d.err = err
	d.mu.Unlock()
}

// Info describes the decoded stream.
func (d *Decoder) Info() VideoInfo { return d.info }

// Latest drains every queued frame and returns the newest, or false when
// nothing new has arrived. The previous frame returned by Latest may be
// reused by the decoder once Latest is called again.
func (d *Decoder) Latest() ([]byte, bool) {
	var newest []byte
	for {
		select {
		case f, ok := <-d.frames:
			if !ok {
				return newest, newest != nil
			}
			if newest != nil {
				d.pool.Put(newest)
			}
			newest = f
		default:
			return newest, newest != nil
		}
	}
}

// Release hands a frame obtained from Latest back for reuse.
func (d *Decoder) Release(frame []byte) {
	if len(frame) == d.info.FrameSize() {
		d.pool.Put(frame)
	}
}

// Err reports a read failure on the frame pipe, if any.
func (d *Decoder) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Close stops ffmpeg and waits for the goroutines to exit.
func (d *Decoder) Close() error {
	d.cancel()
	d.pr.CloseWithError(io.ErrClosedPipe)
	for range d.frames {
	}
	err := d.g.Wait()
	graphics.Logger().Info("video decoder stopped")
	// ffmpeg exits non-zero when its output pipe is closed under it.
	var exit interface{ ExitCode() int }
	if errors.As(err, &exit) {
		return nil
	}
	return err
}
