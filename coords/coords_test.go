package coords

import (
	"math"
	"testing"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMultiplyAppliesLeftFirst(t *testing.T) {
	m := Scale(2, 3).Multiply(Translate(10, 20))
	p := m.Transform(Point{X: 1, Y: 1})
	if !near(p.X, 12) || !near(p.Y, 23) {
		t.Fatalf("unexpected point %+v", p)
	}
}

func TestInverseRoundTrip(t *testing.T) {
	m := Rotate(math.Pi / 6).Multiply(Translate(5, -7)).Multiply(Scale(2, 0.5))
	inv, err := m.Inverse()
	if err != nil {
		t.Fatalf("inverse: %v", err)
	}
	p := inv.Transform(m.Transform(Point{X: 3, Y: 4}))
	if !near(p.X, 3) || !near(p.Y, 4) {
		t.Fatalf("round trip mismatch: %+v", p)
	}
	if _, err := Scale(0, 1).Inverse(); err == nil {
		t.Fatalf("expected singular matrix error")
	}
}

func TestSkew(t *testing.T) {
	p := SkewX(math.Pi / 4).Transform(Point{X: 0, Y: 2})
	if !near(p.X, 2) || !near(p.Y, 2) {
		t.Fatalf("skewX: %+v", p)
	}
	p = SkewY(math.Pi / 4).Transform(Point{X: 2, Y: 0})
	if !near(p.X, 2) || !near(p.Y, 2) {
		t.Fatalf("skewY: %+v", p)
	}
	if !Identity().IsIdentity() {
		t.Fatalf("identity not detected")
	}
}
