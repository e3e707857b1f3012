// Package math provides the small vector toolkit used for footprint and
// ribbon geometry.
package math

import "math"

// Vec2 is a planar vector in region-local metres.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Y - other.Y}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Mean returns (v + other) / 2 without renormalizing.
func (v Vec2) Mean(other Vec2) Vec2 {
	return v.Add(other).Scale(0.5)
}

// Dot returns the dot product.
func (v Vec2) Dot(other Vec2) float32 {
	return v.X*other.X + v.Y*other.Y
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Normalize returns a unit vector, or the zero vector when v has no length.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Y / l}
}

// Perp returns v rotated by 90 degrees: (y, -x).
func (v Vec2) Perp() Vec2 {
	return Vec2{v.Y, -v.X}
}

// Angle returns the unsigned angle between v and other in radians.
func (v Vec2) Angle(other Vec2) float32 {
	l := v.Length() * other.Length()
	if l == 0 {
		return 0
	}
	c := float64(v.Dot(other) / l)
	c = math.Max(-1, math.Min(1, c))
	return float32(math.Acos(c))
}

// WithZ lifts v into 3D.
func (v Vec2) WithZ(z float32) Vec3 {
	return Vec3{v.X, v.Y, z}
}

// Array returns the components as an array.
func (v Vec2) Array() [2]float32 {
	return [2]float32{v.X, v.Y}
}
