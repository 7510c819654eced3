package geom

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a rigid transform: rotate, then translate.
type Transform struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
}

// Identity returns the transform that maps every point to itself.
func Identity() Transform {
	return Transform{Rotation: mgl32.QuatIdent()}
}

// New returns a transform with the rotation normalized.
func New(translation mgl32.Vec3, rotation mgl32.Quat) Transform {
	return Transform{Translation: translation, Rotation: normalize(rotation)}
}

// FromAxisAngle builds a transform rotating by angle radians about axis.
func FromAxisAngle(translation, axis mgl32.Vec3, angle float32) Transform {
	if axis.Len() == 0 {
		return Transform{Translation: translation, Rotation: mgl32.QuatIdent()}
	}
	return Transform{Translation: translation, Rotation: mgl32.QuatRotate(angle, axis.Normalize())}
}

// Planar builds a transform in the XY plane with a yaw about +Z.
func Planar(x, y, yaw float32) Transform {
	return FromAxisAngle(mgl32.Vec3{x, y, 0}, mgl32.Vec3{0, 0, 1}, yaw)
}

func normalize(q mgl32.Quat) mgl32.Quat {
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}

// Compose returns t∘o: the transform that applies o first, then t.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		Translation: t.Translation.Add(t.rotation().Rotate(o.Translation)),
		Rotation:    normalize(t.rotation().Mul(o.rotation())),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := t.rotation().Conjugate()
	return Transform{
		Translation: inv.Rotate(t.Translation).Mul(-1),
		Rotation:    inv,
	}
}

// Apply maps a point through t.
func (t Transform) Apply(p mgl32.Vec3) mgl32.Vec3 {
	return t.rotation().Rotate(p).Add(t.Translation)
}

// Mat4 returns the homogeneous matrix translate(t) · rotate(q).
func (t Transform) Mat4() mgl32.Mat4 {
	tr := t.Translation
	return mgl32.Translate3D(tr.X(), tr.Y(), tr.Z()).Mul4(t.rotation().Mat4())
}

// AxisAngle returns the rotation as a unit axis and an angle in radians.
// A zero rotation reports the +Z axis.
func (t Transform) AxisAngle() (mgl32.Vec3, float32) {
	q := t.rotation()
	if q.W < 0 {
		q = mgl32.Quat{W: -q.W, V: q.V.Mul(-1)}
	}
	w := q.W
	if w > 1 {
		w = 1
	}
	angle := 2 * math32.Acos(w)
	s := math32.Sqrt(1 - w*w)
	if s < 1e-6 {
		return mgl32.Vec3{0, 0, 1}, 0
	}
	return q.V.Mul(1 / s), angle
}

// Yaw returns the rotation about +Z of a planar transform.
func (t Transform) Yaw() float32 {
	q := t.rotation()
	return math32.Atan2(2*(q.W*q.V.Z()+q.V.X()*q.V.Y()), 1-2*(q.V.Y()*q.V.Y()+q.V.Z()*q.V.Z()))
}

// ApproxEqual reports whether both transforms move points the same way
// within eps. q and -q are the same rotation.
func (t Transform) ApproxEqual(o Transform, eps float32) bool {
	if !t.Translation.ApproxEqualThreshold(o.Translation, eps) {
		return false
	}
	a, b := t.rotation(), o.rotation()
	d := math32.Abs(a.Dot(b))
	return 1-d <= eps
}

func (t Transform) String() string {
	axis, angle := t.AxisAngle()
	return fmt.Sprintf("t=(%.3f %.3f %.3f) r=%.1f°@(%.2f %.2f %.2f)",
		t.Translation.X(), t.Translation.Y(), t.Translation.Z(),
		mgl32.RadToDeg(angle), axis.X(), axis.Y(), axis.Z())
}

// The zero Transform has a zero quaternion; treat it as identity.
func (t Transform) rotation() mgl32.Quat {
	if t.Rotation == (mgl32.Quat{}) {
		return mgl32.QuatIdent()
	}
	return t.Rotation
}

// ComposeChain composes hops ordered from the innermost frame outward:
// hops[0] is applied to points first.
func ComposeChain(hops []Transform) Transform {
	out := Identity()
	for _, h := range hops {
		out = h.Compose(out)
	}
	return out
}

// ChainMat4 is the matrix form of ComposeChain.
func ChainMat4(hops []Transform) mgl32.Mat4 {
	m := mgl32.Ident4()
	for _, h := range hops {
		m = h.Mat4().Mul4(m)
	}
	return m
}
