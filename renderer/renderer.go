// Package renderer runs ordered lists of full-screen shader passes. Each
// pass samples its inputs and writes one render target or the screen.
// Passes run strictly in the order they were added; nothing is reordered
// and no dependencies are inferred, so a pass must come after the passes
// that produce its inputs.
package renderer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/richinsley/gocompositor/framebuffer"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/shader"
	"github.com/richinsley/gocompositor/state"
)

var (
	ErrUnknownPass   = errors.New("unknown render pass")
	ErrDuplicatePass = errors.New("render pass name already in use")
)

// Input binds a texture to the sampler uniform named Uniform.
type Input struct {
	Texture graphics.TextureRef
	Uniform string
}

// Inputs pairs each texture with the sampler uTexture<i>, which is what the
// built-in effect shaders declare.
func Inputs(textures ...graphics.TextureRef) []Input {
	in := make([]Input, len(textures))
	for i, t := range textures {
		in[i] = Input{Texture: t, Uniform: shader.TextureUniform(i)}
	}
	return in
}

// Pass is one full-screen draw. A nil Target renders to the screen.
type Pass struct {
	Name    string
	Program *shader.Program
	Inputs  []Input
	Target  *framebuffer.Framebuffer
	// Setup runs after the program is bound and before uniforms are set.
	// Any state it changes stays in effect for later passes.
	Setup    func(*state.Cache)
	Uniforms map[string]shader.UniformValue
}

var quadVertices = []float32{
	-1.0, 1.0, -1.0, -1.0, 1.0, -1.0,
	-1.0, 1.0, 1.0, -1.0, 1.0, 1.0,
}

// Renderer owns the full-screen quad and the pass list. It does not own the
// programs or targets passes refer to.
type Renderer struct {
	st     *state.Cache
	vao    graphics.VertexArray
	vbo    graphics.Buffer
	passes []*Pass
	width  int
	height int
	clear  [4]float32

	disposed bool
}

// New builds the quad geometry. width and height are the viewport used for
// passes that render to the screen.
func New(st *state.Cache, width, height int) *Renderer {
	r := &Renderer{st: st, width: width, height: height}

	data := make([]byte, len(quadVertices)*4)
	for i, v := range quadVertices {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	dev := st.Device()
	r.vao = dev.CreateVertexArray()
	st.BindVertexArray(r.vao)
	r.vbo = dev.CreateBuffer()
	dev.BindBuffer(graphics.ArrayBuffer, r.vbo)
	dev.BufferData(graphics.ArrayBuffer, len(data), data, graphics.StaticDraw)
	dev.EnableVertexAttribArray(0)
	dev.VertexAttribPointer(0, 2, 2*4, 0)
	return r
}

// AddPass appends p. Names must be unique within the renderer.
func (r *Renderer) AddPass(p *Pass) error {
	if p.Name == "" {
		return errors.New("render pass needs a name")
	}
	if p.Program == nil {
		return fmt.Errorf("render pass %q has no program", p.Name)
	}
	if r.index(p.Name) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicatePass, p.Name)
	}
	r.passes = append(r.passes, p)
	return nil
}

// RemovePass removes the pass called name.
func (r *Renderer) RemovePass(name string) error {
	i := r.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownPass, name)
	}
	r.passes = append(r.passes[:i], r.passes[i+1:]...)
	return nil
}

// ClearPasses empties the pass list.
func (r *Renderer) ClearPasses() {
	r.passes = r.passes[:0]
}

// Pass looks up a pass by name for in-place edits.
func (r *Renderer) Pass(name string) (*Pass, error) {
	i := r.index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPass, name)
	}
	return r.passes[i], nil
}

// Passes returns the pass list in execution order.
func (r *Renderer) Passes() []*Pass {
	out := make([]*Pass, len(r.passes))
	copy(out, r.passes)
	return out
}

func (r *Renderer) index(name string) int {
	for i, p := range r.passes {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// SetViewport sets the size used for passes that render to the screen.
func (r *Renderer) SetViewport(width, height int) {
	r.width, r.height = width, height
}

func (r *Renderer) Viewport() (int, int) { return r.width, r.height }

// SetClearColor sets the color each pass clears its output to.
func (r *Renderer) SetClearColor(red, green, blue, alpha float32) {
	r.clear = [4]float32{red, green, blue, alpha}
}

// Render executes every pass in order. The first failing pass stops the
// frame.
func (r *Renderer) Render() error {
	if r.disposed {
		return fmt.Errorf("renderer: %w", graphics.ErrDisposed)
	}
	for _, p := range r.passes {
		if err := r.renderPass(p); err != nil {
			return fmt.Errorf("pass %q: %w", p.Name, err)
		}
	}
	return nil
}

func (r *Renderer) renderPass(p *Pass) error {
	var target graphics.Texture
	if p.Target != nil {
		if err := p.Target.Bind(); err != nil {
			return err
		}
		target, _ = p.Target.TextureID()
	} else {
		r.st.BindFramebuffer(graphics.Screen)
		r.st.Viewport(0, 0, r.width, r.height)
	}

	dev := r.st.Device()
	dev.ClearColor(r.clear[0], r.clear[1], r.clear[2], r.clear[3])
	dev.Clear(graphics.ColorBufferBit | graphics.DepthBufferBit)

	if err := p.Program.Use(); err != nil {
		return err
	}
	if p.Setup != nil {
		p.Setup(r.st)
	}
	if err := p.Program.SetUniforms(p.Uniforms); err != nil {
		return err
	}

	defer r.unbindInputs(len(p.Inputs))
	if len(p.Inputs) > r.st.MaxTextureUnits() {
		return fmt.Errorf("%d inputs exceed %d texture units", len(p.Inputs), r.st.MaxTextureUnits())
	}
	for i, in := range p.Inputs {
		if in.Uniform == "" {
			return fmt.Errorf("input %d has no sampler uniform", i)
		}
		tex, err := in.Texture.TextureID()
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if p.Target != nil && tex == target {
			return fmt.Errorf("input %d samples the pass's own target", i)
		}
		r.st.BindTextureUnit(i, graphics.Texture2D, tex)
		if err := p.Program.SetUniform(in.Uniform, shader.Int(int32(i))); err != nil {
			return err
		}
	}

	r.st.BindVertexArray(r.vao)
	dev.DrawArrays(graphics.Triangles, 0, 6)
	graphics.Logger().Debug("render pass", "name", p.Name, "inputs", len(p.Inputs), "screen", p.Target == nil)
	return nil
}

func (r *Renderer) unbindInputs(n int) {
	if n > r.st.MaxTextureUnits() {
		n = r.st.MaxTextureUnits()
	}
	for i := n - 1; i >= 0; i-- {
		r.st.BindTextureUnit(i, graphics.Texture2D, 0)
	}
}

// Dispose deletes the quad geometry and forgets all passes.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.st.Device().DeleteBuffer(r.vbo)
	r.st.DeleteVertexArray(r.vao)
	r.passes = nil
	r.disposed = true
}
