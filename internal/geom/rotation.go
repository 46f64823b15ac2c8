package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// EulerZYX returns Rz(z) * Ry(y) * Rx(x), angles in radians.
func EulerZYX(z, y, x float32) mgl32.Mat3 {
	return mgl32.Rotate3DZ(z).Mul3(mgl32.Rotate3DY(y)).Mul3(mgl32.Rotate3DX(x))
}

// RotationZ returns the rotation about the vertical axis by orientation o.
func RotationZ(o float32) mgl32.Mat3 {
	return mgl32.Rotate3DZ(o)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math.Pi / 180
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// Distance returns |a - b|.
func Distance(a, b mgl32.Vec3) float32 {
	return a.Sub(b).Len()
}
