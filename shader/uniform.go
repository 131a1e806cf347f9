package shader

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/gocompositor/graphics"
)

// UniformValue is a value that can be assigned to a uniform. The set of
// implementations is closed: Float, Int, Vec2, Vec3, Vec4 and Mat4.
type UniformValue interface {
	apply(dev graphics.Device, loc int32)
}

type (
	Float float32
	Int   int32
	Vec2  [2]float32
	Vec3  [3]float32
	Vec4  [4]float32
	Mat4  mgl32.Mat4
)

func (v Float) apply(dev graphics.Device, loc int32) { dev.Uniform1f(loc, float32(v)) }
func (v Int) apply(dev graphics.Device, loc int32) { dev.Uniform1i(loc, int32(v)) }
func (v Vec2) apply(dev graphics.Device, loc int32) { dev.Uniform2f(loc, v[0], v[1]) }
func (v Vec3) apply(dev graphics.Device, loc int32) { dev.Uniform3f(loc, v[0], v[1], v[2]) }
func (v Vec4) apply(dev graphics.Device, loc int32) { dev.Uniform4f(loc, v[0], v[1], v[2], v[3]) }
func (v Mat4) apply(dev graphics.Device, loc int32) { dev.UniformMatrix4fv(loc, [16]float32(v)) }

// Number picks Int for whole numbers that fit in 32 bits and Float
// otherwise.
func Number(v float64) UniformValue {
	if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
		return Int(int32(v))
	}
	return Float(float32(v))
}

// Vector picks Vec2, Vec3 or Vec4 by the number of components.
func Vector(components ...float32) (UniformValue, error) {
	switch len(components) {
	case 2:
		return Vec2{components[0], components[1]}, nil
	case 3:
		return Vec3{components[0], components[1], components[2]}, nil
	case 4:
		return Vec4{components[0], components[1], components[2], components[3]}, nil
	}
	return nil, fmt.Errorf("vector uniform must have 2, 3 or 4 components, got %d", len(components))
}
