package state

import (
	"github.com/richinsley/gocompositor/graphics"
)

// maxMirroredUnits bounds how many texture units Invalidate queries.
const maxMirroredUnits = 32

// Invalidate discards the mirror and re-queries every tracked value from the
// device. Use it after any out-of-band mutation or a context loss; it is the
// recovery path that keeps the mirror truthful, not a mere reset.
func (c *Cache) Invalidate() {
	d := c.dev
	c.program = graphics.Program(d.GetInteger(graphics.ParamCurrentProgram))
	c.vao = graphics.VertexArray(d.GetInteger(graphics.ParamVertexArrayBinding))
	c.fb = graphics.Framebuffer(d.GetInteger(graphics.ParamFramebufferBinding))

	c.blend = d.IsEnabled(graphics.Blend)
	c.blendSrc = graphics.BlendFactor(d.GetInteger(graphics.ParamBlendSrc))
	c.blendDst = graphics.BlendFactor(d.GetInteger(graphics.ParamBlendDst))
	c.depth = d.IsEnabled(graphics.DepthTest)
	c.depthFunc = graphics.CompareFunc(d.GetInteger(graphics.ParamDepthFunc))
	c.cull = d.IsEnabled(graphics.CullFace)
	c.cullFace = graphics.Face(d.GetInteger(graphics.ParamCullFaceMode))

	var vp [4]int32
	d.GetIntegerv(graphics.ParamViewport, vp[:])
	c.viewport = [4]int{int(vp[0]), int(vp[1]), int(vp[2]), int(vp[3])}

	units := int(d.GetInteger(graphics.ParamMaxCombinedTextureUnit))
	if units <= 0 || units > maxMirroredUnits {
		units = maxMirroredUnits
	}
	c.maxUnits = units

	// Texture bindings can only be read for the active unit, so walk the
	// units and restore the original selection afterwards.
	active := int(d.GetInteger(graphics.ParamActiveTexture))
	c.textures = make(map[TextureSlot]graphics.Texture, units*len(graphics.TextureTargets))
	for u := 0; u < units; u++ {
		d.ActiveTexture(u)
		for _, target := range graphics.TextureTargets {
			t := graphics.Texture(d.GetInteger(graphics.BindingParam(target)))
			c.textures[TextureSlot{Unit: u, Target: target}] = t
		}
	}
	d.ActiveTexture(active)
	c.unit = active

	graphics.Logger().Debug("state cache invalidated",
		"program", c.program, "framebuffer", c.fb, "units", units)
}

// MaxTextureUnits reports how many texture units the device exposes, as
// seen by the last Invalidate.
func (c *Cache) MaxTextureUnits() int { return c.maxUnits }

// DeleteProgram deletes p and forgets it as the bound program.
func (c *Cache) DeleteProgram(p graphics.Program) {
	c.dev.DeleteProgram(p)
	if c.program == p {
		c.program = 0
	}
}

// DeleteTexture deletes t and clears every slot it was bound to, matching
// the driver's own unbinding of deleted textures.
func (c *Cache) DeleteTexture(t graphics.Texture) {
	c.dev.DeleteTexture(t)
	for k, v := range c.textures {
		if v == t {
			c.textures[k] = 0
		}
	}
}

// DeleteFramebuffer deletes f; if it was bound the default framebuffer
// becomes current.
func (c *Cache) DeleteFramebuffer(f graphics.Framebuffer) {
	c.dev.DeleteFramebuffer(f)
	if c.fb == f {
		c.fb = graphics.Screen
	}
}

// DeleteVertexArray deletes a and forgets it as the bound array.
func (c *Cache) DeleteVertexArray(a graphics.VertexArray) {
	c.dev.DeleteVertexArray(a)
	if c.vao == a {
		c.vao = 0
	}
}
