package math

import "math"

// Vec3 is a rail or surface vector: x east, y south, z up, in metres relative
// to a feature's base position.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) Add(other Vec3) Vec3 { return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z} }
func (v Vec3) Sub(other Vec3) Vec3 { return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z} }
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Mean returns (v + other) / 2 without renormalizing, so the mean of two
// unit vectors is shorter than one unless they agree.
func (v Vec3) Mean(other Vec3) Vec3 {
	return v.Add(other).Scale(0.5)
}

// Cross returns v × other. With a forward and a left-to-right side vector it
// yields the upward surface normal in the y-south frame.
func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		v.Y*other.Z - v.Z*other.Y,
		v.Z*other.X - v.X*other.Z,
		v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// Normalize returns a unit vector, or the zero vector when v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Array returns the components in encoding order.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
