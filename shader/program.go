package shader

import (
	"fmt"
	"sort"

	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/state"
)

// Program is a linked shader program. Uniform and attribute locations are
// looked up once and kept for the program's lifetime.
type Program struct {
	handle   graphics.Program
	st       *state.Cache
	uniforms map[string]int32
	attribs  map[string]int32
	// names maps declared uniform names to translated ones.
	names    map[string]string
	disposed bool
}

func newProgram(st *state.Cache, handle graphics.Program) *Program {
	return &Program{
		handle:   handle,
		st:       st,
		uniforms: make(map[string]int32),
		attribs:  make(map[string]int32),
	}
}

func (p *Program) check() error {
	if p.disposed {
		return fmt.Errorf("program %d: %w", p.handle, graphics.ErrDisposed)
	}
	return nil
}

// Handle returns the device handle.
func (p *Program) Handle() (graphics.Program, error) {
	if err := p.check(); err != nil {
		return 0, err
	}
	return p.handle, nil
}

// Use makes the program current.
func (p *Program) Use() error {
	if err := p.check(); err != nil {
		return err
	}
	p.st.UseProgram(p.handle)
	return nil
}

// UniformLocation returns the location of name, or -1 if the program does
// not declare it.
func (p *Program) UniformLocation(name string) (int32, error) {
	if err := p.check(); err != nil {
		return -1, err
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc, nil
	}
	mapped := name
	if m, ok := p.names[name]; ok {
		mapped = m
	}
	loc := p.st.Device().UniformLocation(p.handle, mapped)
	p.uniforms[name] = loc
	return loc, nil
}

// AttribLocation returns the location of attribute name, or -1.
func (p *Program) AttribLocation(name string) (int32, error) {
	if err := p.check(); err != nil {
		return -1, err
	}
	if loc, ok := p.attribs[name]; ok {
		return loc, nil
	}
	loc := p.st.Device().AttribLocation(p.handle, name)
	p.attribs[name] = loc
	return loc, nil
}

// SetUniform makes the program current and assigns v to name. Uniforms the
// program does not declare are ignored, as the driver would.
func (p *Program) SetUniform(name string, v UniformValue) error {
	if err := p.Use(); err != nil {
		return err
	}
	loc, err := p.UniformLocation(name)
	if err != nil {
		return err
	}
	if loc < 0 {
		return nil
	}
	v.apply(p.st.Device(), loc)
	return nil
}

// SetUniforms assigns every value in name order.
func (p *Program) SetUniforms(values map[string]UniformValue) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.SetUniform(name, values[name]); err != nil {
			return fmt.Errorf("uniform %q: %w", name, err)
		}
	}
	return nil
}

// Dispose deletes the program. Further use returns graphics.ErrDisposed.
func (p *Program) Dispose() {
	if p.disposed {
		return
	}
	p.st.DeleteProgram(p.handle)
	p.disposed = true
}

// Disposed reports whether Dispose has run.
func (p *Program) Disposed() bool { return p.disposed }
