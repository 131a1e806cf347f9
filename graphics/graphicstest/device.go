// Package graphicstest provides an in-memory graphics.Device that records
// every call and simulates enough GPU behaviour for pipeline tests: bindings,
// state queries, framebuffer completeness, shader diagnostics and the flow
// of rendered content between textures.
package graphicstest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/richinsley/gocompositor/graphics"
)

// Call is one recorded device call.
type Call struct {
	Name string
	Args []any
}

// TextureObject is the simulated storage behind a texture handle.
type TextureObject struct {
	Width, Height int
	Format        graphics.PixelFormat
	// Content tags what was last written: "" after allocation, the value set
	// by SetContent, or the draw that rendered into it.
	Content string
}

// FramebufferObject records the attachments of a framebuffer.
type FramebufferObject struct {
	Attachments map[graphics.Attachment]uint32
	Renderbuf   map[graphics.Attachment]bool
}

// RenderbufferObject is the simulated storage behind a renderbuffer.
type RenderbufferObject struct {
	Width, Height int
	Format        graphics.PixelFormat
}

// Draw records one draw call with the state it executed against.
type Draw struct {
	Framebuffer graphics.Framebuffer
	Program     graphics.Program
	Count       int
	Viewport    [4]int32
	Inputs      []graphics.Texture
}

type programObject struct {
	vertex, fragment string
	uniforms         map[string]int32
	attribs          map[string]int32
	values           map[string]any
}

type unitTarget struct {
	unit   int
	target graphics.TextureTarget
}

var (
	uniformPattern = regexp.MustCompile(`uniform\s+\w+\s+(\w+)`)
	attribPattern  = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?in\s+\w+\s+(\w+)`)
)

// Device is a recording graphics.Device. It is not safe for concurrent use.
type Device struct {
	Calls []Call
	Draws []Draw
	// Misuse collects calls that referenced deleted or unknown objects.
	Misuse []string

	// FailCompile, when set, returns a non-empty info log to fail compilation.
	FailCompile func(stage graphics.ShaderStage, source string) string
	// FailLink, when set, returns a non-empty info log to fail linking.
	FailLink func(vertex, fragment string) string
	// Status, when set, overrides framebuffer completeness.
	Status func(graphics.Framebuffer) graphics.FramebufferStatus

	MaxTextureUnits int
	ScreenContent   string

	Textures      map[graphics.Texture]*TextureObject
	Framebuffers  map[graphics.Framebuffer]*FramebufferObject
	Renderbuffers map[graphics.Renderbuffer]*RenderbufferObject
	Buffers       map[graphics.Buffer][]byte

	next     uint32
	shaders  map[graphics.Shader]string
	programs map[graphics.Program]*programObject
	vaos     map[graphics.VertexArray]bool
	locs     map[int32]string
	nextLoc  int32

	program     graphics.Program
	vao         graphics.VertexArray
	fb          graphics.Framebuffer
	rb          graphics.Renderbuffer
	activeUnit  int
	bound       map[unitTarget]graphics.Texture
	buffers     map[graphics.BufferTarget]graphics.Buffer
	enabled     map[graphics.Capability]bool
	blendSrc    graphics.BlendFactor
	blendDst    graphics.BlendFactor
	depthFunc   graphics.CompareFunc
	cullFace    graphics.Face
	viewport    [4]int32
	clearColor  [4]float32
	programOfLo map[int32]graphics.Program
}

// New returns a device in the default GL initial state.
func New() *Device {
	return &Device{
		MaxTextureUnits: 16,
		Textures:        make(map[graphics.Texture]*TextureObject),
		Framebuffers:    make(map[graphics.Framebuffer]*FramebufferObject),
		Renderbuffers:   make(map[graphics.Renderbuffer]*RenderbufferObject),
		Buffers:         make(map[graphics.Buffer][]byte),
		shaders:         make(map[graphics.Shader]string),
		programs:        make(map[graphics.Program]*programObject),
		vaos:            make(map[graphics.VertexArray]bool),
		locs:            make(map[int32]string),
		programOfLo:     make(map[int32]graphics.Program),
		bound:           make(map[unitTarget]graphics.Texture),
		buffers:         make(map[graphics.BufferTarget]graphics.Buffer),
		enabled:         make(map[graphics.Capability]bool),
		blendSrc:        graphics.One,
		blendDst:        graphics.Zero,
		depthFunc:       graphics.Less,
		cullFace:        graphics.Back,
	}
}

func (d *Device) record(name string, args ...any) {
	d.Calls = append(d.Calls, Call{Name: name, Args: args})
}

func (d *Device) misuse(format string, args ...any) {
	d.Misuse = append(d.Misuse, fmt.Sprintf(format, args...))
}

func (d *Device) alloc() uint32 {
	d.next++
	return d.next
}

// Count returns how many times the named call was recorded.
func (d *Device) Count(name string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls and draws but keeps all object state.
func (d *Device) ResetCalls() {
	d.Calls = nil
	d.Draws = nil
}

// SetContent tags the content of a texture, as if pixels had been uploaded.
func (d *Device) SetContent(t graphics.Texture, content string) {
	if obj, ok := d.Textures[t]; ok {
		obj.Content = content
	}
}

// Content returns the content tag of a texture.
func (d *Device) Content(t graphics.Texture) string {
	if obj, ok := d.Textures[t]; ok {
		return obj.Content
	}
	return ""
}

// UniformValue returns the last value set for a uniform of p.
func (d *Device) UniformValue(p graphics.Program, name string) (any, bool) {
	obj, ok := d.programs[p]
	if !ok {
		return nil, false
	}
	v, ok := obj.values[name]
	return v, ok
}

// LiveTextures reports the number of textures not yet deleted.
func (d *Device) LiveTextures() int { return len(d.Textures) }

// LivePrograms reports the number of programs not yet deleted.
func (d *Device) LivePrograms() int { return len(d.programs) }

// BoundTexture reports the texture bound to target on unit.
func (d *Device) BoundTexture(unit int, target graphics.TextureTarget) graphics.Texture {
	return d.bound[unitTarget{unit, target}]
}

// CurrentFramebuffer reports the bound framebuffer.
func (d *Device) CurrentFramebuffer() graphics.Framebuffer { return d.fb }

// CurrentViewport reports the live viewport.
func (d *Device) CurrentViewport() [4]int32 { return d.viewport }

// MutateOutOfBand changes live bindings without going through any cache, as
// a third-party library sharing the context would.
func (d *Device) MutateOutOfBand(p graphics.Program, fb graphics.Framebuffer, viewport [4]int32) {
	d.program = p
	d.fb = fb
	d.viewport = viewport
}

func (d *Device) CompileShader(stage graphics.ShaderStage, source string) (graphics.Shader, string, bool) {
	d.record("CompileShader", stage)
	if d.FailCompile != nil {
		if log := d.FailCompile(stage, source); log != "" {
			return 0, log, false
		}
	}
	s := graphics.Shader(d.alloc())
	d.shaders[s] = source
	return s, "", true
}

func (d *Device) LinkProgram(vs, fs graphics.Shader) (graphics.Program, string, bool) {
	d.record("LinkProgram", vs, fs)
	vsrc, ok1 := d.shaders[vs]
	fsrc, ok2 := d.shaders[fs]
	if !ok1 || !ok2 {
		d.misuse("LinkProgram with unknown shader %d/%d", vs, fs)
		return 0, "unknown shader object", false
	}
	if d.FailLink != nil {
		if log := d.FailLink(vsrc, fsrc); log != "" {
			return 0, log, false
		}
	}
	p := graphics.Program(d.alloc())
	obj := &programObject{
		vertex:   vsrc,
		fragment: fsrc,
		uniforms: make(map[string]int32),
		attribs:  make(map[string]int32),
		values:   make(map[string]any),
	}
	for _, src := range []string{vsrc, fsrc} {
		for _, m := range uniformPattern.FindAllStringSubmatch(src, -1) {
			if _, ok := obj.uniforms[m[1]]; !ok {
				d.nextLoc++
				obj.uniforms[m[1]] = d.nextLoc
				d.locs[d.nextLoc] = m[1]
				d.programOfLo[d.nextLoc] = p
			}
		}
	}
	for i, m := range attribPattern.FindAllStringSubmatch(vsrc, -1) {
		obj.attribs[m[1]] = int32(i)
	}
	d.programs[p] = obj
	return p, "", true
}

func (d *Device) DeleteShader(s graphics.Shader) {
	d.record("DeleteShader", s)
	if _, ok := d.shaders[s]; !ok {
		d.misuse("DeleteShader of unknown shader %d", s)
	}
	delete(d.shaders, s)
}

func (d *Device) DeleteProgram(p graphics.Program) {
	d.record("DeleteProgram", p)
	if _, ok := d.programs[p]; !ok {
		d.misuse("DeleteProgram of unknown program %d", p)
	}
	delete(d.programs, p)
	if d.program == p {
		d.program = 0
	}
}

func (d *Device) UseProgram(p graphics.Program) {
	d.record("UseProgram", p)
	if _, ok := d.programs[p]; p != 0 && !ok {
		d.misuse("UseProgram of deleted program %d", p)
	}
	d.program = p
}

func (d *Device) UniformLocation(p graphics.Program, name string) int32 {
	d.record("UniformLocation", p, name)
	obj, ok := d.programs[p]
	if !ok {
		d.misuse("UniformLocation on deleted program %d", p)
		return -1
	}
	if loc, ok := obj.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) AttribLocation(p graphics.Program, name string) int32 {
	d.record("AttribLocation", p, name)
	obj, ok := d.programs[p]
	if !ok {
		d.misuse("AttribLocation on deleted program %d", p)
		return -1
	}
	if loc, ok := obj.attribs[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) setUniform(name string, loc int32, v any) {
	d.record(name, loc, v)
	if loc < 0 {
		return
	}
	owner := d.programOfLo[loc]
	if owner != d.program {
		d.misuse("%s location %d belongs to program %d, current is %d", name, loc, owner, d.program)
		return
	}
	if obj, ok := d.programs[d.program]; ok {
		obj.values[d.locs[loc]] = v
	}
}

func (d *Device) Uniform1i(loc int32, v int32) { d.setUniform("Uniform1i", loc, v) }

func (d *Device) Uniform1f(loc int32, v float32) { d.setUniform("Uniform1f", loc, v) }

func (d *Device) Uniform2f(loc int32, x, y float32) {
	d.setUniform("Uniform2f", loc, [2]float32{x, y})
}

func (d *Device) Uniform3f(loc int32, x, y, z float32) {
	d.setUniform("Uniform3f", loc, [3]float32{x, y, z})
}

func (d *Device) Uniform4f(loc int32, x, y, z, w float32) {
	d.setUniform("Uniform4f", loc, [4]float32{x, y, z, w})
}

func (d *Device) UniformMatrix4fv(loc int32, m [16]float32) {
	d.setUniform("UniformMatrix4fv", loc, m)
}

func (d *Device) CreateTexture() graphics.Texture {
	t := graphics.Texture(d.alloc())
	d.record("CreateTexture", t)
	d.Textures[t] = &TextureObject{}
	return t
}

func (d *Device) DeleteTexture(t graphics.Texture) {
	d.record("DeleteTexture", t)
	if _, ok := d.Textures[t]; !ok {
		d.misuse("DeleteTexture of unknown texture %d", t)
	}
	delete(d.Textures, t)
	for k, v := range d.bound {
		if v == t {
			d.bound[k] = 0
		}
	}
}

func (d *Device) ActiveTexture(unit int) {
	d.record("ActiveTexture", unit)
	if unit < 0 || unit >= d.MaxTextureUnits {
		d.misuse("ActiveTexture unit %d out of range", unit)
	}
	d.activeUnit = unit
}

func (d *Device) BindTexture(target graphics.TextureTarget, t graphics.Texture) {
	d.record("BindTexture", target, t)
	if _, ok := d.Textures[t]; t != 0 && !ok {
		d.misuse("BindTexture of deleted texture %d", t)
	}
	d.bound[unitTarget{d.activeUnit, target}] = t
}

func (d *Device) boundObject(target graphics.TextureTarget) *TextureObject {
	t := d.bound[unitTarget{d.activeUnit, target}]
	obj, ok := d.Textures[t]
	if !ok {
		d.misuse("texture storage call with no live texture bound on unit %d", d.activeUnit)
		return nil
	}
	return obj
}

func (d *Device) TexImage2D(target graphics.TextureTarget, format graphics.PixelFormat, width, height int, data []byte) {
	d.record("TexImage2D", target, format, width, height)
	if obj := d.boundObject(target); obj != nil {
		obj.Width, obj.Height, obj.Format = width, height, format
		obj.Content = ""
		if data != nil {
			obj.Content = "upload"
		}
	}
}

func (d *Device) TexSubImage2D(target graphics.TextureTarget, x, y, width, height int, format graphics.PixelFormat, data []byte) {
	d.record("TexSubImage2D", target, x, y, width, height)
	if obj := d.boundObject(target); obj != nil {
		obj.Content = "upload"
	}
}

func (d *Device) TexParameters(target graphics.TextureTarget, filter graphics.Filter, wrap graphics.Wrap) {
	d.record("TexParameters", target, filter, wrap)
	d.boundObject(target)
}

func (d *Device) CreateBuffer() graphics.Buffer {
	b := graphics.Buffer(d.alloc())
	d.record("CreateBuffer", b)
	d.Buffers[b] = nil
	return b
}

func (d *Device) DeleteBuffer(b graphics.Buffer) {
	d.record("DeleteBuffer", b)
	if _, ok := d.Buffers[b]; !ok {
		d.misuse("DeleteBuffer of unknown buffer %d", b)
	}
	delete(d.Buffers, b)
	for k, v := range d.buffers {
		if v == b {
			d.buffers[k] = 0
		}
	}
}

func (d *Device) BindBuffer(target graphics.BufferTarget, b graphics.Buffer) {
	d.record("BindBuffer", target, b)
	if _, ok := d.Buffers[b]; b != 0 && !ok {
		d.misuse("BindBuffer of deleted buffer %d", b)
	}
	d.buffers[target] = b
}

func (d *Device) BufferData(target graphics.BufferTarget, size int, data []byte, usage graphics.BufferUsage) {
	d.record("BufferData", target, size, usage)
	b := d.buffers[target]
	if _, ok := d.Buffers[b]; !ok {
		d.misuse("BufferData with no buffer bound to %d", target)
		return
	}
	buf := make([]byte, size)
	copy(buf, data)
	d.Buffers[b] = buf
}

func (d *Device) BufferSubData(target graphics.BufferTarget, offset int, data []byte) {
	d.record("BufferSubData", target, offset, len(data))
	b := d.buffers[target]
	buf, ok := d.Buffers[b]
	if !ok {
		d.misuse("BufferSubData with no buffer bound to %d", target)
		return
	}
	if offset+len(data) > len(buf) {
		d.misuse("BufferSubData overflows buffer %d: %d+%d > %d", b, offset, len(data), len(buf))
		return
	}
	copy(buf[offset:], data)
}

func (d *Device) CreateVertexArray() graphics.VertexArray {
	a := graphics.VertexArray(d.alloc())
	d.record("CreateVertexArray", a)
	d.vaos[a] = true
	return a
}

func (d *Device) DeleteVertexArray(a graphics.VertexArray) {
	d.record("DeleteVertexArray", a)
	if !d.vaos[a] {
		d.misuse("DeleteVertexArray of unknown array %d", a)
	}
	delete(d.vaos, a)
	if d.vao == a {
		d.vao = 0
	}
}

func (d *Device) BindVertexArray(a graphics.VertexArray) {
	d.record("BindVertexArray", a)
	if a != 0 && !d.vaos[a] {
		d.misuse("BindVertexArray of deleted array %d", a)
	}
	d.vao = a
}

func (d *Device) EnableVertexAttribArray(index uint32) {
	d.record("EnableVertexAttribArray", index)
}

func (d *Device) VertexAttribPointer(index uint32, size, stride int32, offset int) {
	d.record("VertexAttribPointer", index, size, stride, offset)
}

func (d *Device) CreateFramebuffer() graphics.Framebuffer {
	f := graphics.Framebuffer(d.alloc())
	d.record("CreateFramebuffer", f)
	d.Framebuffers[f] = &FramebufferObject{
		Attachments: make(map[graphics.Attachment]uint32),
		Renderbuf:   make(map[graphics.Attachment]bool),
	}
	return f
}

func (d *Device) DeleteFramebuffer(f graphics.Framebuffer) {
	d.record("DeleteFramebuffer", f)
	if _, ok := d.Framebuffers[f]; !ok {
		d.misuse("DeleteFramebuffer of unknown framebuffer %d", f)
	}
	delete(d.Framebuffers, f)
	if d.fb == f {
		d.fb = 0
	}
}

func (d *Device) BindFramebuffer(f graphics.Framebuffer) {
	d.record("BindFramebuffer", f)
	if _, ok := d.Framebuffers[f]; f != 0 && !ok {
		d.misuse("BindFramebuffer of deleted framebuffer %d", f)
	}
	d.fb = f
}

func (d *Device) FramebufferTexture2D(attachment graphics.Attachment, t graphics.Texture) {
	d.record("FramebufferTexture2D", attachment, t)
	obj, ok := d.Framebuffers[d.fb]
	if !ok {
		d.misuse("FramebufferTexture2D with no framebuffer bound")
		return
	}
	obj.Attachments[attachment] = uint32(t)
	obj.Renderbuf[attachment] = false
}

func (d *Device) FramebufferRenderbuffer(attachment graphics.Attachment, r graphics.Renderbuffer) {
	d.record("FramebufferRenderbuffer", attachment, r)
	obj, ok := d.Framebuffers[d.fb]
	if !ok {
		d.misuse("FramebufferRenderbuffer with no framebuffer bound")
		return
	}
	obj.Attachments[attachment] = uint32(r)
	obj.Renderbuf[attachment] = true
}

func (d *Device) CheckFramebufferStatus() graphics.FramebufferStatus {
	d.record("CheckFramebufferStatus", d.fb)
	if d.Status != nil {
		return d.Status(d.fb)
	}
	if d.fb == 0 {
		return graphics.FramebufferComplete
	}
	obj := d.Framebuffers[d.fb]
	color, ok := d.Textures[graphics.Texture(obj.Attachments[graphics.ColorAttachment0])]
	if !ok || color.Width == 0 || color.Height == 0 {
		return graphics.FramebufferIncompleteMissingAttachment
	}
	for att, h := range obj.Attachments {
		if !obj.Renderbuf[att] {
			continue
		}
		rb, ok := d.Renderbuffers[graphics.Renderbuffer(h)]
		if !ok || rb.Width != color.Width || rb.Height != color.Height {
			return graphics.FramebufferIncompleteAttachment
		}
	}
	return graphics.FramebufferComplete
}

func (d *Device) CreateRenderbuffer() graphics.Renderbuffer {
	r := graphics.Renderbuffer(d.alloc())
	d.record("CreateRenderbuffer", r)
	d.Renderbuffers[r] = &RenderbufferObject{}
	return r
}

func (d *Device) DeleteRenderbuffer(r graphics.Renderbuffer) {
	d.record("DeleteRenderbuffer", r)
	if _, ok := d.Renderbuffers[r]; !ok {
		d.misuse("DeleteRenderbuffer of unknown renderbuffer %d", r)
	}
	delete(d.Renderbuffers, r)
	if d.rb == r {
		d.rb = 0
	}
}

func (d *Device) BindRenderbuffer(r graphics.Renderbuffer) {
	d.record("BindRenderbuffer", r)
	if _, ok := d.Renderbuffers[r]; r != 0 && !ok {
		d.misuse("BindRenderbuffer of deleted renderbuffer %d", r)
	}
	d.rb = r
}

func (d *Device) RenderbufferStorage(format graphics.PixelFormat, width, height int) {
	d.record("RenderbufferStorage", format, width, height)
	obj, ok := d.Renderbuffers[d.rb]
	if !ok {
		d.misuse("RenderbufferStorage with no renderbuffer bound")
		return
	}
	obj.Width, obj.Height, obj.Format = width, height, format
}

func (d *Device) Enable(c graphics.Capability) {
	d.record("Enable", c)
	d.enabled[c] = true
}

func (d *Device) Disable(c graphics.Capability) {
	d.record("Disable", c)
	d.enabled[c] = false
}

func (d *Device) BlendFunc(src, dst graphics.BlendFactor) {
	d.record("BlendFunc", src, dst)
	d.blendSrc, d.blendDst = src, dst
}

func (d *Device) DepthFunc(fn graphics.CompareFunc) {
	d.record("DepthFunc", fn)
	d.depthFunc = fn
}

func (d *Device) CullFace(face graphics.Face) {
	d.record("CullFace", face)
	d.cullFace = face
}

func (d *Device) Viewport(x, y, width, height int) {
	d.record("Viewport", x, y, width, height)
	d.viewport = [4]int32{int32(x), int32(y), int32(width), int32(height)}
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.record("ClearColor", r, g, b, a)
	d.clearColor = [4]float32{r, g, b, a}
}

func (d *Device) Clear(mask graphics.ClearMask) {
	d.record("Clear", mask)
	if mask&graphics.ColorBufferBit == 0 {
		return
	}
	if d.fb == 0 {
		d.ScreenContent = ""
		return
	}
	if obj := d.colorTarget(); obj != nil {
		obj.Content = ""
	}
}

func (d *Device) colorTarget() *TextureObject {
	fb, ok := d.Framebuffers[d.fb]
	if !ok {
		return nil
	}
	return d.Textures[graphics.Texture(fb.Attachments[graphics.ColorAttachment0])]
}

// draw tags the color target with the program and the content of every 2D
// texture bound on the sampled units, in unit order.
func (d *Device) draw(count int) {
	if _, ok := d.programs[d.program]; !ok {
		d.misuse("draw with no live program")
	}
	var units []int
	for k, t := range d.bound {
		if k.target == graphics.Texture2D && t != 0 {
			units = append(units, k.unit)
		}
	}
	sort.Ints(units)
	inputs := make([]graphics.Texture, 0, len(units))
	parts := make([]string, 0, len(units))
	for _, u := range units {
		t := d.bound[unitTarget{u, graphics.Texture2D}]
		inputs = append(inputs, t)
		parts = append(parts, d.Content(t))
	}
	content := fmt.Sprintf("p%d[%s]", d.program, strings.Join(parts, ","))
	if d.fb == 0 {
		d.ScreenContent = content
	} else if obj := d.colorTarget(); obj != nil {
		obj.Content = content
	} else {
		d.misuse("draw into framebuffer %d without color attachment", d.fb)
	}
	d.Draws = append(d.Draws, Draw{
		Framebuffer: d.fb,
		Program:     d.program,
		Count:       count,
		Viewport:    d.viewport,
		Inputs:      inputs,
	})
}

func (d *Device) DrawArrays(mode graphics.Primitive, first, count int) {
	d.record("DrawArrays", mode, first, count)
	d.draw(count)
}

func (d *Device) DrawElements(mode graphics.Primitive, count int, indexType graphics.IndexType, offset int) {
	d.record("DrawElements", mode, count, indexType, offset)
	if d.vao == 0 {
		d.misuse("DrawElements with no vertex array bound")
	}
	d.draw(count)
}

func (d *Device) IsEnabled(c graphics.Capability) bool {
	d.record("IsEnabled", c)
	return d.enabled[c]
}

func (d *Device) GetInteger(p graphics.Param) int32 {
	d.record("GetInteger", p)
	switch p {
	case graphics.ParamCurrentProgram:
		return int32(d.program)
	case graphics.ParamVertexArrayBinding:
		return int32(d.vao)
	case graphics.ParamFramebufferBinding:
		return int32(d.fb)
	case graphics.ParamActiveTexture:
		return int32(d.activeUnit)
	case graphics.ParamTextureBinding2D:
		return int32(d.bound[unitTarget{d.activeUnit, graphics.Texture2D}])
	case graphics.ParamTextureBinding3D:
		return int32(d.bound[unitTarget{d.activeUnit, graphics.Texture3D}])
	case graphics.ParamTextureBindingCubeMap:
		return int32(d.bound[unitTarget{d.activeUnit, graphics.TextureCubeMap}])
	case graphics.ParamBlendSrc:
		return int32(d.blendSrc)
	case graphics.ParamBlendDst:
		return int32(d.blendDst)
	case graphics.ParamDepthFunc:
		return int32(d.depthFunc)
	case graphics.ParamCullFaceMode:
		return int32(d.cullFace)
	case graphics.ParamMaxCombinedTextureUnit:
		return int32(d.MaxTextureUnits)
	}
	d.misuse("GetInteger of unsupported param %#x", uint32(p))
	return 0
}

func (d *Device) GetIntegerv(p graphics.Param, dst []int32) {
	d.record("GetIntegerv", p)
	if p == graphics.ParamViewport {
		copy(dst, d.viewport[:])
		return
	}
	if len(dst) > 0 {
		dst[0] = d.GetInteger(p)
	}
}

func (d *Device) ReadPixels(x, y, width, height int, dst []byte) {
	d.record("ReadPixels", x, y, width, height)
	for i := range dst {
		dst[i] = 0
	}
}
