package shader

import "fmt"

// ────────────────────────────────── Headers ──────────────────────────────────

const headerGL = "#version 410 core\n"

const headerGLES = `#version 300 es
precision highp float;
precision highp int;
`

func header(isGLES bool) string {
	if isGLES {
		return headerGLES
	}
	return headerGL
}

// ─────────────────────────────── Full-screen quad ──────────────────────────────

// The quad is six vec2 vertices in clip space at attribute 0.
const fullscreenVertexBody = `layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const blitFragmentBody = `in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D uTexture0;
void main() { fragColor = texture(uTexture0, frag_uv); }
`

const blitFlipFragmentBody = `in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D uTexture0;
void main() { fragColor = texture(uTexture0, vec2(frag_uv.x, 1.0 - frag_uv.y)); }
`

// ──────────────────────────────── Sprite batch ─────────────────────────────────

const batchVertexBody = `layout (location = 0) in vec2 in_pos;
layout (location = 1) in vec2 in_uv;
uniform mat4 uProjection;
out vec2 frag_uv;
void main() {
    frag_uv = in_uv;
    gl_Position = uProjection * vec4(in_pos, 0.0, 1.0);
}
`

const batchFragmentBody = `in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D uTexture0;
void main() { fragColor = texture(uTexture0, frag_uv); }
`

// ─────────────────────────────────── Effects ───────────────────────────────────

// 9-tap gaussian along uDirection (one texel step in uv units).
const blurFragmentBody = `in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D uTexture0;
uniform vec2  uDirection;
uniform float uRadius;
void main() {
    vec2 step = uDirection * uRadius;
    vec4 sum = texture(uTexture0, frag_uv) * 0.2270270270;
    sum += texture(uTexture0, frag_uv + step * 1.3846153846) * 0.3162162162;
    sum += texture(uTexture0, frag_uv - step * 1.3846153846) * 0.3162162162;
    sum += texture(uTexture0, frag_uv + step * 3.2307692308) * 0.0702702703;
    sum += texture(uTexture0, frag_uv - step * 3.2307692308) * 0.0702702703;
    fragColor = sum;
}
`

const brightnessContrastFragmentBody = `in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D uTexture0;
uniform float uBrightness;
uniform float uContrast;
void main() {
    vec4 c = texture(uTexture0, frag_uv);
    vec3 rgb = c.rgb + uBrightness;
    rgb = (rgb - 0.5) * (1.0 + uContrast) + 0.5;
    fragColor = vec4(clamp(rgb, 0.0, 1.0), c.a);
}
`

const vignetteFragmentBody = `in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D uTexture0;
uniform float uIntensity;
uniform float uSoftness;
void main() {
    vec4 c = texture(uTexture0, frag_uv);
    float d = distance(frag_uv, vec2(0.5));
    float v = smoothstep(0.8, 0.8 - uSoftness, d * (1.0 + uIntensity));
    fragColor = vec4(c.rgb * v, c.a);
}
`

// ────────────────────────────────── Public API ─────────────────────────────────

// FullscreenVertex returns the vertex shader for a clip-space quad.
func FullscreenVertex(isGLES bool) string { return header(isGLES) + fullscreenVertexBody }

// BlitFragment samples uTexture0, optionally flipping v.
func BlitFragment(flip, isGLES bool) string {
	if flip {
		return header(isGLES) + blitFlipFragmentBody
	}
	return header(isGLES) + blitFragmentBody
}

// BatchVertex transforms pixel-space positions by uProjection.
func BatchVertex(isGLES bool) string { return header(isGLES) + batchVertexBody }

func BatchFragment(isGLES bool) string { return header(isGLES) + batchFragmentBody }

func BlurFragment(isGLES bool) string { return header(isGLES) + blurFragmentBody }

func BrightnessContrastFragment(isGLES bool) string {
	return header(isGLES) + brightnessContrastFragmentBody
}

func VignetteFragment(isGLES bool) string { return header(isGLES) + vignetteFragmentBody }

// TextureUniform is the conventional sampler name for input i of a pass.
func TextureUniform(i int) string { return fmt.Sprintf("uTexture%d", i) }
