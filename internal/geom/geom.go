package geom

import "math"

// Vec2 is a point or displacement in world space
type Vec2 struct {
	X, Y float64
}

// V is shorthand for Vec2{x, y}
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2       { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2       { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2  { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64    { return v.X*o.X + v.Y*o.Y }
func (v Vec2) LenSq() float64        { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float64          { return math.Sqrt(v.LenSq()) }
func (v Vec2) DistSq(o Vec2) float64 { return v.Sub(o).LenSq() }
func (v Vec2) Dist(o Vec2) float64   { return math.Sqrt(v.DistSq(o)) }

// FromAngle returns a vector of the given length pointing along angle (radians)
func FromAngle(angle, length float64) Vec2 {
	return Vec2{math.Cos(angle) * length, math.Sin(angle) * length}
}

// Angle returns the heading of v in radians
func (v Vec2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// ClampLen scales v down so its length does not exceed max
func (v Vec2) ClampLen(max float64) Vec2 {
	l2 := v.LenSq()
	if l2 <= max*max || l2 == 0 {
		return v
	}
	return v.Scale(max / math.Sqrt(l2))
}

// Wrap folds v back into [0,w) x [0,h)
func (v Vec2) Wrap(w, h float64) Vec2 {
	if v.X < 0 {
		v.X += w
	} else if v.X > w {
		v.X -= w
	}
	if v.Y < 0 {
		v.Y += h
	} else if v.Y > h {
		v.Y -= h
	}
	return v
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// LerpAngle interpolates between two angles taking the short path
func LerpAngle(from, to, t float64) float64 {
	diff := NormalizeAngle(to - from)
	return from + diff*t
}

// TurnToward rotates from toward to by at most maxStep radians
func TurnToward(from, to, maxStep float64) float64 {
	diff := NormalizeAngle(to - from)
	if diff > maxStep {
		diff = maxStep
	} else if diff < -maxStep {
		diff = -maxStep
	}
	return from + diff
}
