package vec

import (
	"math"
	"testing"
)

func almostEqual(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestVec3Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); got != (Vec3{5, 7, 9}) {
		t.Errorf("Add: got %v", got)
	}
	if got := b.Sub(a); got != (Vec3{3, 3, 3}) {
		t.Errorf("Sub: got %v", got)
	}
	if got := a.Scale(2); got != (Vec3{2, 4, 6}) {
		t.Errorf("Scale: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot: got %v", got)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	if got := x.Cross(y); got != (Vec3{0, 0, 1}) {
		t.Errorf("Cross: got %v", got)
	}
}

func TestVec3Normalize(t *testing.T) {
	v := Vec3{3, 0, 4}
	n := v.Normalize()
	if !almostEqual(n.Length(), 1) {
		t.Errorf("normalized length: got %v", n.Length())
	}
	if !almostEqual(n.X, 0.6) || !almostEqual(n.Z, 0.8) {
		t.Errorf("Normalize: got %v", n)
	}

	if got := (Vec3{}).Normalize(); got != (Vec3{}) {
		t.Errorf("zero vector must normalize to zero, got %v", got)
	}
}

func TestVec3RotateXNeg90(t *testing.T) {
	up := Vec3{0, 1, 0}
	if got := up.RotateXNeg90(); got != (Vec3{0, 0, -1}) {
		t.Errorf("RotateXNeg90: got %v", got)
	}
	fwd := Vec3{0, 0, 1}
	if got := fwd.RotateXNeg90(); got != (Vec3{0, 1, 0}) {
		t.Errorf("RotateXNeg90: got %v", got)
	}
}
