// Package state mirrors the bindings and fixed-function state of a
// graphics.Device and elides driver calls that would not change anything.
//
// The mirror is only as good as its exclusivity: whenever something other
// than the Cache mutates device state (a third-party library, a lost and
// restored context), call Invalidate before the next setter or the cache
// will skip calls the hardware actually needs.
//
// A Cache is single-owner and not safe for concurrent use.
package state

import (
	"github.com/richinsley/gocompositor/graphics"
)

// Snapshot is the cache's belief about live device state.
type Snapshot struct {
	Program     graphics.Program
	VertexArray graphics.VertexArray
	Framebuffer graphics.Framebuffer
	ActiveUnit  int
	// Textures maps (unit, target) to the bound texture. Missing keys are
	// unknown and are always re-issued.
	Textures map[TextureSlot]graphics.Texture

	Blend    bool
	BlendSrc graphics.BlendFactor
	BlendDst graphics.BlendFactor

	DepthTest bool
	DepthFunc graphics.CompareFunc

	Cull     bool
	CullFace graphics.Face

	Viewport [4]int
}

// TextureSlot identifies a binding point.
type TextureSlot struct {
	Unit   int
	Target graphics.TextureTarget
}

// Stats reports how many setter calls reached the driver and how many were
// elided.
type Stats struct {
	Changes    int64
	Saved      int64
	Efficiency float64
}

// Cache is the compare-then-set layer in front of a Device.
type Cache struct {
	dev graphics.Device

	program   graphics.Program
	vao       graphics.VertexArray
	fb        graphics.Framebuffer
	unit      int
	textures  map[TextureSlot]graphics.Texture
	maxUnits  int
	blend     bool
	blendSrc  graphics.BlendFactor
	blendDst  graphics.BlendFactor
	depth     bool
	depthFunc graphics.CompareFunc
	cull      bool
	cullFace  graphics.Face
	viewport  [4]int

	changes int64
	saved   int64
}

// New returns a cache synchronised with the device's current state.
func New(dev graphics.Device) *Cache {
	c := &Cache{dev: dev}
	c.Invalidate()
	return c
}

// Device returns the wrapped device.
func (c *Cache) Device() graphics.Device { return c.dev }

func (c *Cache) tally(changed bool) {
	if changed {
		c.changes++
	} else {
		c.saved++
	}
}

func (c *Cache) UseProgram(p graphics.Program) {
	changed := p != c.program
	if changed {
		c.dev.UseProgram(p)
		c.program = p
	}
	c.tally(changed)
}

func (c *Cache) BindVertexArray(a graphics.VertexArray) {
	changed := a != c.vao
	if changed {
		c.dev.BindVertexArray(a)
		c.vao = a
	}
	c.tally(changed)
}

func (c *Cache) BindFramebuffer(f graphics.Framebuffer) {
	changed := f != c.fb
	if changed {
		c.dev.BindFramebuffer(f)
		c.fb = f
	}
	c.tally(changed)
}

// ActiveTexture selects texture unit index unit.
func (c *Cache) ActiveTexture(unit int) {
	changed := unit != c.unit
	if changed {
		c.dev.ActiveTexture(unit)
		c.unit = unit
	}
	c.tally(changed)
}

// BindTexture binds t to target on the active unit.
func (c *Cache) BindTexture(target graphics.TextureTarget, t graphics.Texture) {
	key := TextureSlot{Unit: c.unit, Target: target}
	cur, known := c.textures[key]
	changed := !known || cur != t
	if changed {
		c.dev.BindTexture(target, t)
		c.textures[key] = t
	}
	c.tally(changed)
}

// BindTextureUnit selects unit and binds t to target on it.
func (c *Cache) BindTextureUnit(unit int, target graphics.TextureTarget, t graphics.Texture) {
	c.ActiveTexture(unit)
	c.BindTexture(target, t)
}

// SetBlend toggles blending. The factors are only compared and applied when
// enabled is true.
func (c *Cache) SetBlend(enabled bool, src, dst graphics.BlendFactor) {
	changed := false
	if enabled != c.blend {
		if enabled {
			c.dev.Enable(graphics.Blend)
		} else {
			c.dev.Disable(graphics.Blend)
		}
		c.blend = enabled
		changed = true
	}
	if enabled && (src != c.blendSrc || dst != c.blendDst) {
		c.dev.BlendFunc(src, dst)
		c.blendSrc, c.blendDst = src, dst
		changed = true
	}
	c.tally(changed)
}

// SetDepthTest toggles depth testing. fn is only compared and applied when
// enabled is true.
func (c *Cache) SetDepthTest(enabled bool, fn graphics.CompareFunc) {
	changed := false
	if enabled != c.depth {
		if enabled {
			c.dev.Enable(graphics.DepthTest)
		} else {
			c.dev.Disable(graphics.DepthTest)
		}
		c.depth = enabled
		changed = true
	}
	if enabled && fn != c.depthFunc {
		c.dev.DepthFunc(fn)
		c.depthFunc = fn
		changed = true
	}
	c.tally(changed)
}

// SetCullFace toggles face culling. face is only compared and applied when
// enabled is true.
func (c *Cache) SetCullFace(enabled bool, face graphics.Face) {
	changed := false
	if enabled != c.cull {
		if enabled {
			c.dev.Enable(graphics.CullFace)
		} else {
			c.dev.Disable(graphics.CullFace)
		}
		c.cull = enabled
		changed = true
	}
	if enabled && face != c.cullFace {
		c.dev.CullFace(face)
		c.cullFace = face
		changed = true
	}
	c.tally(changed)
}

func (c *Cache) Viewport(x, y, width, height int) {
	v := [4]int{x, y, width, height}
	changed := v != c.viewport
	if changed {
		c.dev.Viewport(x, y, width, height)
		c.viewport = v
	}
	c.tally(changed)
}

// Stats returns the change/saved counters.
func (c *Cache) Stats() Stats {
	s := Stats{Changes: c.changes, Saved: c.saved}
	if total := c.changes + c.saved; total > 0 {
		s.Efficiency = float64(c.saved) / float64(total)
	}
	return s
}

// ResetStats zeroes the counters without touching the mirror.
func (c *Cache) ResetStats() {
	c.changes = 0
	c.saved = 0
}

// Snapshot returns a copy of the mirrored state.
func (c *Cache) Snapshot() Snapshot {
	s := Snapshot{
		Program:     c.program,
		VertexArray: c.vao,
		Framebuffer: c.fb,
		ActiveUnit:  c.unit,
		Textures:    make(map[TextureSlot]graphics.Texture, len(c.textures)),
		Blend:       c.blend,
		BlendSrc:    c.blendSrc,
		BlendDst:    c.blendDst,
		DepthTest:   c.depth,
		DepthFunc:   c.depthFunc,
		Cull:        c.cull,
		CullFace:    c.cullFace,
		Viewport:    c.viewport,
	}
	for k, v := range c.textures {
		s.Textures[k] = v
	}
	return s
}
