// Package profiler collects per-frame counters for the pipeline: draw calls,
// primitives, uploaded bytes, state-cache efficiency, memory and batching,
// plus wall-clock timing of frames and named sections.
package profiler

import (
	"github.com/richinsley/gocompositor/graphics"
)

// Counters are the raw device-level totals since the last reset.
type Counters struct {
	DrawCalls   int64
	Primitives  int64
	UploadBytes int64
}

// Device wraps a graphics.Device and counts the calls that cost GPU time.
// Everything else is forwarded untouched.
type Device struct {
	graphics.Device
	c Counters
}

// NewDevice wraps dev. Hand the result to state.New so every component
// issues its draws through the counter.
func NewDevice(dev graphics.Device) *Device {
	return &Device{Device: dev}
}

func primitives(mode graphics.Primitive, count int) int64 {
	switch mode {
	case graphics.Triangles:
		return int64(count / 3)
	case graphics.TriangleStrip:
		if count < 3 {
			return 0
		}
		return int64(count - 2)
	}
	return 0
}

func (d *Device) DrawArrays(mode graphics.Primitive, first, count int) {
	d.c.DrawCalls++
	d.c.Primitives += primitives(mode, count)
	d.Device.DrawArrays(mode, first, count)
}

func (d *Device) DrawElements(mode graphics.Primitive, count int, indexType graphics.IndexType, offset int) {
	d.c.DrawCalls++
	d.c.Primitives += primitives(mode, count)
	d.Device.DrawElements(mode, count, indexType, offset)
}

func (d *Device) BufferData(target graphics.BufferTarget, size int, data []byte, usage graphics.BufferUsage) {
	if data != nil {
		d.c.UploadBytes += int64(size)
	}
	d.Device.BufferData(target, size, data, usage)
}

func (d *Device) BufferSubData(target graphics.BufferTarget, offset int, data []byte) {
	d.c.UploadBytes += int64(len(data))
	d.Device.BufferSubData(target, offset, data)
}

func (d *Device) TexImage2D(target graphics.TextureTarget, format graphics.PixelFormat, width, height int, data []byte) {
	d.c.UploadBytes += int64(len(data))
	d.Device.TexImage2D(target, format, width, height, data)
}

func (d *Device) TexSubImage2D(target graphics.TextureTarget, x, y, width, height int, format graphics.PixelFormat, data []byte) {
	d.c.UploadBytes += int64(len(data))
	d.Device.TexSubImage2D(target, x, y, width, height, format, data)
}

// Counters returns the totals since the last ResetCounters.
func (d *Device) Counters() Counters { return d.c }

func (d *Device) ResetCounters() { d.c = Counters{} }
