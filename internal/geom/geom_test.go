package geom

import (
	"math"
	"testing"
)

func TestNormalizeAngle(t *testing.T) {
	if got := NormalizeAngle(3 * math.Pi); math.Abs(got-math.Pi) > 1e-9 {
		t.Errorf("expected PI, got %f", got)
	}
	if got := NormalizeAngle(-3 * math.Pi); math.Abs(got+math.Pi) > 1e-9 {
		t.Errorf("expected -PI, got %f", got)
	}
}

func TestTurnToward(t *testing.T) {
	got := TurnToward(0, math.Pi/2, 0.1)
	if math.Abs(got-0.1) > 1e-9 {
		t.Errorf("expected step of 0.1, got %f", got)
	}
	got = TurnToward(0, 0.05, 0.1)
	if math.Abs(got-0.05) > 1e-9 {
		t.Errorf("expected to land on target, got %f", got)
	}
}

func TestWrap(t *testing.T) {
	v := V(-1, 101).Wrap(100, 100)
	if v.X != 99 || v.Y != 1 {
		t.Errorf("expected (99,1), got (%f,%f)", v.X, v.Y)
	}
}

func TestClampLen(t *testing.T) {
	v := V(30, 40).ClampLen(10)
	if math.Abs(v.Len()-10) > 1e-9 {
		t.Errorf("expected length 10, got %f", v.Len())
	}
	short := V(1, 1).ClampLen(10)
	if short != V(1, 1) {
		t.Error("short vector should be unchanged")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Error("clamp mismatch")
	}
}
