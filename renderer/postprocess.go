package renderer

import (
	"fmt"

	"github.com/richinsley/gocompositor/framebuffer"
	"github.com/richinsley/gocompositor/graphics"
	"github.com/richinsley/gocompositor/shader"
	"github.com/richinsley/gocompositor/state"
)

// PostProcessor applies the built-in effects. Each call builds a pass list
// on a private Renderer and runs it immediately; a nil out renders to the
// screen.
type PostProcessor struct {
	r  *Renderer
	pp *framebuffer.PingPong

	blur     *shader.Program
	bc       *shader.Program
	vignette *shader.Program
}

// NewPostProcessor compiles the effect programs through cache and
// allocates the intermediate targets at width×height.
func NewPostProcessor(st *state.Cache, cache *shader.Cache, width, height int) (*PostProcessor, error) {
	gles := cache.ESSL()
	vs := shader.FullscreenVertex(gles)
	p := &PostProcessor{}
	var err error
	if p.blur, err = cache.GetOrCreate(vs, shader.BlurFragment(gles)); err != nil {
		return nil, fmt.Errorf("blur program: %w", err)
	}
	if p.bc, err = cache.GetOrCreate(vs, shader.BrightnessContrastFragment(gles)); err != nil {
		return nil, fmt.Errorf("brightness/contrast program: %w", err)
	}
	if p.vignette, err = cache.GetOrCreate(vs, shader.VignetteFragment(gles)); err != nil {
		return nil, fmt.Errorf("vignette program: %w", err)
	}
	p.pp, err = framebuffer.NewPingPong(st, framebuffer.Options{Width: width, Height: height})
	if err != nil {
		return nil, err
	}
	p.r = New(st, width, height)
	return p, nil
}

// Blur runs a separable gaussian blur: iterations horizontal/vertical pairs,
// ping-ponging through intermediate targets, with the final pass written to
// out. iterations below one are treated as one.
func (p *PostProcessor) Blur(in graphics.TextureRef, out *framebuffer.Framebuffer, iterations int, radius float32) error {
	if iterations < 1 {
		iterations = 1
	}
	texel := shader.Vec2{1 / float32(p.pp.Width()), 1 / float32(p.pp.Height())}

	p.r.ClearPasses()
	src := in
	total := iterations * 2
	for k := 0; k < total; k++ {
		dir := shader.Vec2{texel[0], 0}
		if k%2 == 1 {
			dir = shader.Vec2{0, texel[1]}
		}
		target := out
		if k < total-1 {
			target = p.pp.Write()
			p.pp.Swap()
		}
		err := p.r.AddPass(&Pass{
			Name:    fmt.Sprintf("blur-%d", k),
			Program: p.blur,
			Inputs:  Inputs(src),
			Target:  target,
			Uniforms: map[string]shader.UniformValue{
				"uDirection": dir,
				"uRadius":    shader.Float(radius),
			},
		})
		if err != nil {
			return err
		}
		src = target
	}
	return p.r.Render()
}

// BrightnessContrast shifts brightness and scales contrast around mid-grey.
// Zero for both is the identity.
func (p *PostProcessor) BrightnessContrast(in graphics.TextureRef, out *framebuffer.Framebuffer, brightness, contrast float32) error {
	return p.single("brightness-contrast", p.bc, in, out, map[string]shader.UniformValue{
		"uBrightness": shader.Float(brightness),
		"uContrast":   shader.Float(contrast),
	})
}

// Vignette darkens toward the corners.
func (p *PostProcessor) Vignette(in graphics.TextureRef, out *framebuffer.Framebuffer, intensity, softness float32) error {
	return p.single("vignette", p.vignette, in, out, map[string]shader.UniformValue{
		"uIntensity": shader.Float(intensity),
		"uSoftness":  shader.Float(softness),
	})
}

func (p *PostProcessor) single(name string, prog *shader.Program, in graphics.TextureRef, out *framebuffer.Framebuffer, uniforms map[string]shader.UniformValue) error {
	p.r.ClearPasses()
	err := p.r.AddPass(&Pass{
		Name:     name,
		Program:  prog,
		Inputs:   Inputs(in),
		Target:   out,
		Uniforms: uniforms,
	})
	if err != nil {
		return err
	}
	return p.r.Render()
}

// Resize resizes the intermediate targets and the screen viewport.
func (p *PostProcessor) Resize(width, height int) error {
	if err := p.pp.Resize(width, height); err != nil {
		return err
	}
	p.r.SetViewport(width, height)
	return nil
}

// Dispose releases the intermediate targets and quad. Programs stay in the
// shader cache.
func (p *PostProcessor) Dispose() {
	p.pp.Dispose()
	p.r.Dispose()
}
