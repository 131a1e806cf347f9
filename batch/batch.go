// Package batch draws many textured rectangles with as few draw calls as
// possible. Consecutive items sharing a texture are packed into one vertex
// buffer and submitted with a single indexed draw.
package batch

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/shader"
	"github.com/richinsley/gocompositor/state"
)

const (
	// Each vertex is position.xy + uv.xy as float32.
	vertexStride = 16
	quadBytes    = 4 * vertexStride
	quadIndices  = 6

	DefaultMaxBatchSize = 1000
	// MaxBatchSize keeps every vertex index addressable as uint16.
	MaxBatchSize = 16384
)

var ErrNotBegun = errors.New("batch: Draw outside Begin/End")

// BufferAccounting receives the byte size of the GPU buffers the renderer
// allocates. *memory.Optimizer satisfies it.
type BufferAccounting interface {
	RegisterBuffer(bytes int64)
	UnregisterBuffer(bytes int64)
}

// Config sizes the renderer. Zero values take defaults.
type Config struct {
	MaxBatchSize int
	// Accounting, if set, is charged for the vertex and index buffers.
	Accounting BufferAccounting
}

// Item is one textured rectangle. Dst is in pixels; Src is in texture
// coordinates and defaults to the whole texture.
type Item struct {
	Texture graphics.TextureRef
	Dst     graphics.Rect
	Src     *graphics.Rect
}

// Stats counts submissions since the last Begin.
type Stats struct {
	DrawCalls    int64
	TotalSprites int64
	// BatchEfficiency is sprites per draw call.
	BatchEfficiency float64
}

// Renderer batches Items. It is single-owner and not safe for concurrent
// use.
type Renderer struct {
	st      *state.Cache
	program *shader.Program
	cfg     Config

	vao graphics.VertexArray
	vbo graphics.Buffer
	ibo graphics.Buffer

	staging []byte
	count   int
	ref     graphics.TextureRef
	texture graphics.Texture

	drawCalls int64
	sprites   int64
	began     bool
	disposed  bool
}

// New builds the shared buffers and fetches the sprite program from cache.
// The index buffer is filled once here and never changes.
func New(st *state.Cache, cache *shader.Cache, cfg Config) (*Renderer, error) {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.MaxBatchSize > MaxBatchSize {
		cfg.MaxBatchSize = MaxBatchSize
	}
	program, err := cache.GetOrCreate(shader.BatchVertex(cache.ESSL()), shader.BatchFragment(cache.ESSL()))
	if err != nil {
		return nil, fmt.Errorf("batch program: %w", err)
	}
	if err := program.SetUniform("uTexture0", shader.Int(0)); err != nil {
		return nil, err
	}

	r := &Renderer{
		st:      st,
		program: program,
		cfg:     cfg,
		staging: make([]byte, cfg.MaxBatchSize*quadBytes),
	}

	dev := st.Device()
	r.vao = dev.CreateVertexArray()
	st.BindVertexArray(r.vao)

	r.vbo = dev.CreateBuffer()
	dev.BindBuffer(graphics.ArrayBuffer, r.vbo)
	dev.BufferData(graphics.ArrayBuffer, len(r.staging), nil, graphics.DynamicDraw)
	dev.EnableVertexAttribArray(0)
	dev.VertexAttribPointer(0, 2, vertexStride, 0)
	dev.EnableVertexAttribArray(1)
	dev.VertexAttribPointer(1, 2, vertexStride, 8)

	indices := buildIndexData(cfg.MaxBatchSize)
	r.ibo = dev.CreateBuffer()
	dev.BindBuffer(graphics.ElementArrayBuffer, r.ibo)
	dev.BufferData(graphics.ElementArrayBuffer, len(indices), indices, graphics.StaticDraw)

	if cfg.Accounting != nil {
		cfg.Accounting.RegisterBuffer(r.bufferBytes())
	}
	graphics.Logger().Info("batch renderer created", "maxBatchSize", cfg.MaxBatchSize)
	return r, nil
}

func (r *Renderer) bufferBytes() int64 {
	return int64(r.cfg.MaxBatchSize) * (quadBytes + quadIndices*2)
}

// buildIndexData emits 0,1,2, 2,3,0 for every quad.
func buildIndexData(quads int) []byte {
	data := make([]byte, quads*quadIndices*2)
	for q := 0; q < quads; q++ {
		base := uint16(q * 4)
		for i, idx := range [quadIndices]uint16{0, 1, 2, 2, 3, 0} {
			binary.LittleEndian.PutUint16(data[(q*quadIndices+i)*2:], base+idx)
		}
	}
	return data
}

func writeVertex(buf []byte, x, y, u, v float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(u))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(v))
}

// MaxBatch reports the effective quad capacity of one draw call.
func (r *Renderer) MaxBatch() int { return r.cfg.MaxBatchSize }

// SetProjection maps pixel coordinates with the origin at the top left of
// a width×height surface to clip space.
func (r *Renderer) SetProjection(width, height int) error {
	m := mgl32.Ortho2D(0, float32(width), float32(height), 0)
	return r.program.SetUniform("uProjection", shader.Mat4(m))
}

// Begin starts a frame: counters reset, the shared vertex array is bound
// and alpha blending is enabled.
func (r *Renderer) Begin() error {
	if r.disposed {
		return fmt.Errorf("batch: %w", graphics.ErrDisposed)
	}
	r.drawCalls = 0
	r.sprites = 0
	r.count = 0
	r.ref, r.texture = nil, 0
	r.st.BindVertexArray(r.vao)
	r.st.SetBlend(true, graphics.SrcAlpha, graphics.OneMinusSrcAlpha)
	r.began = true
	return nil
}

// Draw queues item, flushing first if its texture differs from the queued
// one or the batch is full.
func (r *Renderer) Draw(item Item) error {
	if !r.began {
		return ErrNotBegun
	}
	tex, err := item.Texture.TextureID()
	if err != nil {
		return fmt.Errorf("batch draw: %w", err)
	}
	if r.count > 0 && (tex != r.texture || r.count == r.cfg.MaxBatchSize) {
		if err := r.Flush(); err != nil {
			return err
		}
	}
	r.ref, r.texture = item.Texture, tex

	src := graphics.FullUV
	if item.Src != nil {
		src = *item.Src
	}
	d := item.Dst
	off := r.count * quadBytes
	writeVertex(r.staging[off:], d.X, d.Y, src.X, src.Y)
	writeVertex(r.staging[off+vertexStride:], d.X+d.W, d.Y, src.X+src.W, src.Y)
	writeVertex(r.staging[off+2*vertexStride:], d.X+d.W, d.Y+d.H, src.X+src.W, src.Y+src.H)
	writeVertex(r.staging[off+3*vertexStride:], d.X, d.Y+d.H, src.X, src.Y+src.H)
	r.count++
	r.sprites++
	return nil
}

// Flush submits the queued quads in one draw call. The texture is resolved
// again and bound on every flush; nothing is assumed about what a previous
// flush left bound. If the texture was destroyed since it was queued, the
// quads are dropped and the error returned.
func (r *Renderer) Flush() error {
	if r.count == 0 {
		return nil
	}
	tex, err := r.ref.TextureID()
	if err != nil {
		r.count = 0
		return fmt.Errorf("batch flush: %w", err)
	}
	r.texture = tex
	if err := r.program.Use(); err != nil {
		return err
	}
	r.st.BindVertexArray(r.vao)
	r.st.BindTextureUnit(0, graphics.Texture2D, r.texture)

	dev := r.st.Device()
	dev.BindBuffer(graphics.ArrayBuffer, r.vbo)
	dev.BufferSubData(graphics.ArrayBuffer, 0, r.staging[:r.count*quadBytes])
	dev.DrawElements(graphics.Triangles, r.count*quadIndices, graphics.UnsignedShort, 0)

	graphics.Logger().Debug("batch flushed", "quads", r.count, "texture", r.texture)
	r.drawCalls++
	r.count = 0
	return nil
}

// End flushes any remainder and closes the frame.
func (r *Renderer) End() error {
	if !r.began {
		return ErrNotBegun
	}
	err := r.Flush()
	r.began = false
	return err
}

// Stats reports submissions since the last Begin.
func (r *Renderer) Stats() Stats {
	s := Stats{DrawCalls: r.drawCalls, TotalSprites: r.sprites}
	if r.drawCalls > 0 {
		s.BatchEfficiency = float64(r.sprites) / float64(r.drawCalls)
	}
	return s
}

// Dispose deletes the buffers and vertex array. The program belongs to the
// shader cache and is left alone.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	dev := r.st.Device()
	dev.DeleteBuffer(r.vbo)
	dev.DeleteBuffer(r.ibo)
	r.st.DeleteVertexArray(r.vao)
	if r.cfg.Accounting != nil {
		r.cfg.Accounting.UnregisterBuffer(r.bufferBytes())
	}
	r.disposed = true
	r.began = false
}
