// Package gldevice implements graphics.Device on OpenGL 4.1 core through
// go-gl. Every method must be called on the thread that owns the current
// context.
package gldevice

import (
	"fmt"
	"strings"
	"unsafe"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/gocompositor/graphics"
)

// Device is the GL-backed graphics.Device.
type Device struct{}

// New loads the GL function pointers for the current context.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	graphics.Logger().Info("OpenGL initialized", "version", gl.GoStr(gl.GetString(gl.VERSION)))
	return &Device{}, nil
}

var _ graphics.Device = (*Device)(nil)

type transfer struct {
	format uint32
	xtype  uint32
}

// transferFormats maps sized internal formats to the client-side layout
// used for uploads and allocation.
var transferFormats = map[graphics.PixelFormat]transfer{
	graphics.R8:              {gl.RED, gl.UNSIGNED_BYTE},
	graphics.RG8:             {gl.RG, gl.UNSIGNED_BYTE},
	graphics.RGB8:            {gl.RGB, gl.UNSIGNED_BYTE},
	graphics.RGBA8:           {gl.RGBA, gl.UNSIGNED_BYTE},
	graphics.SRGB8Alpha8:     {gl.RGBA, gl.UNSIGNED_BYTE},
	graphics.R16UI:           {gl.RED_INTEGER, gl.UNSIGNED_SHORT},
	graphics.R32F:            {gl.RED, gl.FLOAT},
	graphics.RGBA16F:         {gl.RGBA, gl.FLOAT},
	graphics.RGBA32F:         {gl.RGBA, gl.FLOAT},
	graphics.Depth24:         {gl.DEPTH_COMPONENT, gl.UNSIGNED_INT},
	graphics.Depth24Stencil8: {gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8},
}

func transferFor(format graphics.PixelFormat) transfer {
	if t, ok := transferFormats[format]; ok {
		return t
	}
	return transfer{gl.RGBA, gl.UNSIGNED_BYTE}
}

func ptr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}

func cstr(s string) *uint8 { return gl.Str(s + "\x00") }

func (d *Device) CompileShader(stage graphics.ShaderStage, source string) (graphics.Shader, string, bool) {
	shader := gl.CreateShader(uint32(stage))
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		gl.DeleteShader(shader)
		return 0, strings.TrimRight(logText, "\x00"), false
	}
	return graphics.Shader(shader), "", true
}

func (d *Device) LinkProgram(vs, fs graphics.Shader) (graphics.Program, string, bool) {
	program := gl.CreateProgram()
	gl.AttachShader(program, uint32(vs))
	gl.AttachShader(program, uint32(fs))
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, strings.TrimRight(log, "\x00"), false
	}
	gl.DetachShader(program, uint32(vs))
	gl.DetachShader(program, uint32(fs))
	return graphics.Program(program), "", true
}

func (d *Device) DeleteShader(s graphics.Shader)   { gl.DeleteShader(uint32(s)) }
func (d *Device) DeleteProgram(p graphics.Program) { gl.DeleteProgram(uint32(p)) }
func (d *Device) UseProgram(p graphics.Program)    { gl.UseProgram(uint32(p)) }

func (d *Device) UniformLocation(p graphics.Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), cstr(name))
}

func (d *Device) AttribLocation(p graphics.Program, name string) int32 {
	return gl.GetAttribLocation(uint32(p), cstr(name))
}

func (d *Device) Uniform1i(loc int32, v int32)            { gl.Uniform1i(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)          { gl.Uniform1f(loc, v) }
func (d *Device) Uniform2f(loc int32, x, y float32)       { gl.Uniform2f(loc, x, y) }
func (d *Device) Uniform3f(loc int32, x, y, z float32)    { gl.Uniform3f(loc, x, y, z) }
func (d *Device) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }

func (d *Device) UniformMatrix4fv(loc int32, m [16]float32) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *Device) CreateTexture() graphics.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return graphics.Texture(t)
}

func (d *Device) DeleteTexture(t graphics.Texture) {
	h := uint32(t)
	gl.DeleteTextures(1, &h)
}

func (d *Device) ActiveTexture(unit int) { gl.ActiveTexture(gl.TEXTURE0 + uint32(unit)) }

func (d *Device) BindTexture(target graphics.TextureTarget, t graphics.Texture) {
	gl.BindTexture(uint32(target), uint32(t))
}

func (d *Device) TexImage2D(target graphics.TextureTarget, format graphics.PixelFormat, width, height int, data []byte) {
	tr := transferFor(format)
	gl.TexImage2D(uint32(target), 0, int32(format), int32(width), int32(height), 0, tr.format, tr.xtype, ptr(data))
}

func (d *Device) TexSubImage2D(target graphics.TextureTarget, x, y, width, height int, format graphics.PixelFormat, data []byte) {
	tr := transferFor(format)
	gl.TexSubImage2D(uint32(target), 0, int32(x), int32(y), int32(width), int32(height), tr.format, tr.xtype, ptr(data))
}

func (d *Device) TexParameters(target graphics.TextureTarget, filter graphics.Filter, wrap graphics.Wrap) {
	t := uint32(target)
	gl.TexParameteri(t, gl.TEXTURE_MIN_FILTER, int32(filter))
	gl.TexParameteri(t, gl.TEXTURE_MAG_FILTER, int32(filter))
	gl.TexParameteri(t, gl.TEXTURE_WRAP_S, int32(wrap))
	gl.TexParameteri(t, gl.TEXTURE_WRAP_T, int32(wrap))
	if target != graphics.Texture2D {
		gl.TexParameteri(t, gl.TEXTURE_WRAP_R, int32(wrap))
	}
}

func (d *Device) CreateBuffer() graphics.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return graphics.Buffer(b)
}

func (d *Device) DeleteBuffer(b graphics.Buffer) {
	h := uint32(b)
	gl.DeleteBuffers(1, &h)
}

func (d *Device) BindBuffer(target graphics.BufferTarget, b graphics.Buffer) {
	gl.BindBuffer(uint32(target), uint32(b))
}

func (d *Device) BufferData(target graphics.BufferTarget, size int, data []byte, usage graphics.BufferUsage) {
	gl.BufferData(uint32(target), size, ptr(data), uint32(usage))
}

func (d *Device) BufferSubData(target graphics.BufferTarget, offset int, data []byte) {
	if len(data) == 0 {
		return
	}
	gl.BufferSubData(uint32(target), offset, len(data), gl.Ptr(data))
}

func (d *Device) CreateVertexArray() graphics.VertexArray {
	var a uint32
	gl.GenVertexArrays(1, &a)
	return graphics.VertexArray(a)
}

func (d *Device) DeleteVertexArray(a graphics.VertexArray) {
	h := uint32(a)
	gl.DeleteVertexArrays(1, &h)
}

func (d *Device) BindVertexArray(a graphics.VertexArray) { gl.BindVertexArray(uint32(a)) }

func (d *Device) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

func (d *Device) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	gl.VertexAttribPointer(index, size, gl.FLOAT, false, stride, gl.PtrOffset(offset))
}

func (d *Device) CreateFramebuffer() graphics.Framebuffer {
	var f uint32
	gl.GenFramebuffers(1, &f)
	return graphics.Framebuffer(f)
}

func (d *Device) DeleteFramebuffer(f graphics.Framebuffer) {
	h := uint32(f)
	gl.DeleteFramebuffers(1, &h)
}

func (d *Device) BindFramebuffer(f graphics.Framebuffer) { gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(f)) }

func (d *Device) FramebufferTexture2D(attachment graphics.Attachment, t graphics.Texture) {
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, uint32(attachment), gl.TEXTURE_2D, uint32(t), 0)
}

func (d *Device) FramebufferRenderbuffer(attachment graphics.Attachment, r graphics.Renderbuffer) {
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, uint32(attachment), gl.RENDERBUFFER, uint32(r))
}

func (d *Device) CheckFramebufferStatus() graphics.FramebufferStatus {
	return graphics.FramebufferStatus(gl.CheckFramebufferStatus(gl.FRAMEBUFFER))
}

func (d *Device) CreateRenderbuffer() graphics.Renderbuffer {
	var r uint32
	gl.GenRenderbuffers(1, &r)
	return graphics.Renderbuffer(r)
}

func (d *Device) DeleteRenderbuffer(r graphics.Renderbuffer) {
	h := uint32(r)
	gl.DeleteRenderbuffers(1, &h)
}

func (d *Device) BindRenderbuffer(r graphics.Renderbuffer) { gl.BindRenderbuffer(gl.RENDERBUFFER, uint32(r)) }

func (d *Device) RenderbufferStorage(format graphics.PixelFormat, width, height int) {
	gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(format), int32(width), int32(height))
}

func (d *Device) Enable(c graphics.Capability)  { gl.Enable(uint32(c)) }
func (d *Device) Disable(c graphics.Capability) { gl.Disable(uint32(c)) }

func (d *Device) BlendFunc(src, dst graphics.BlendFactor) { gl.BlendFunc(uint32(src), uint32(dst)) }
func (d *Device) DepthFunc(fn graphics.CompareFunc)       { gl.DepthFunc(uint32(fn)) }
func (d *Device) CullFace(face graphics.Face)             { gl.CullFace(uint32(face)) }

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }
func (d *Device) Clear(mask graphics.ClearMask) { gl.Clear(uint32(mask)) }

func (d *Device) DrawArrays(mode graphics.Primitive, first, count int) {
	gl.DrawArrays(uint32(mode), int32(first), int32(count))
}

func (d *Device) DrawElements(mode graphics.Primitive, count int, indexType graphics.IndexType, offset int) {
	gl.DrawElements(uint32(mode), int32(count), uint32(indexType), gl.PtrOffset(offset))
}

func (d *Device) IsEnabled(c graphics.Capability) bool { return gl.IsEnabled(uint32(c)) }

func (d *Device) GetInteger(p graphics.Param) int32 {
	var v int32
	gl.GetIntegerv(uint32(p), &v)
	if p == graphics.ParamActiveTexture {
		v -= gl.TEXTURE0
	}
	return v
}

func (d *Device) GetIntegerv(p graphics.Param, dst []int32) {
	if len(dst) == 0 {
		return
	}
	gl.GetIntegerv(uint32(p), &dst[0])
}

func (d *Device) ReadPixels(x, y, width, height int, dst []byte) {
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, ptr(dst))
}
