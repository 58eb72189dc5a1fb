package math

import (
	"math"
	"testing"
)

func TestVec2Add(t *testing.T) {
	a := Vec2{1, 2}
	b := Vec2{3, 4}
	got := a.Add(b)
	want := Vec2{4, 6}
	if got != want {
		t.Errorf("Vec2.Add() = %v, want %v", got, want)
	}
}

func TestVec2Length(t *testing.T) {
	v := Vec2{3, 4}
	got := v.Length()
	want := 5.0
	if got != want {
		t.Errorf("Vec2.Length() = %v, want %v", got, want)
	}
}

func TestVec2Normalize(t *testing.T) {
	v := Vec2{3, 4}
	n := v.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec2.Normalize().Length() = %v, want ~1", l)
	}
}

func TestVec2Rotate(t *testing.T) {
	v := Vec2{1, 0}.Rotate(math.Pi / 2)
	if math.Abs(v.X) > 1e-12 || math.Abs(v.Y-1) > 1e-12 {
		t.Errorf("Vec2.Rotate(90deg) = %v, want (0, 1)", v)
	}
}

func TestTriangleArea2Sign(t *testing.T) {
	ccw := TriangleArea2(Vec2{0, 0}, Vec2{1, 0}, Vec2{0, 1})
	if ccw != 0.5 {
		t.Errorf("ccw area = %v, want 0.5", ccw)
	}
	cw := TriangleArea2(Vec2{0, 0}, Vec2{0, 1}, Vec2{1, 0})
	if cw != -0.5 {
		t.Errorf("cw area = %v, want -0.5", cw)
	}
}

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestTriangleArea(t *testing.T) {
	got := TriangleArea(Vec3{0, 0, 0}, Vec3{2, 0, 0}, Vec3{0, 2, 0})
	if got != 2 {
		t.Errorf("TriangleArea() = %v, want 2", got)
	}
}

func TestVec3IsFinite(t *testing.T) {
	if !(Vec3{1, 2, 3}).IsFinite() {
		t.Error("expected finite vector")
	}
	if (Vec3{math.NaN(), 0, 0}).IsFinite() {
		t.Error("NaN component should not be finite")
	}
	if (Vec3{0, math.Inf(1), 0}).IsFinite() {
		t.Error("Inf component should not be finite")
	}
}
