package collision

import "spaceship-sim/internal/object"

// overlapEpsilon absorbs rounding when circles exactly touch
const overlapEpsilon = 1e-9

// CheckCollision checks if two circles overlap (touching counts)
func CheckCollision(x1, y1, r1, x2, y2, r2 float64) bool {
	dx := x2 - x1
	dy := y2 - y1
	dist2 := dx*dx + dy*dy
	radSum := r1 + r2 + overlapEpsilon
	return dist2 <= radSum*radSum
}

// Overlaps runs the circle test on two objects' current positions
func Overlaps(a, b object.Object) bool {
	pa, pb := a.Pos(), b.Pos()
	return CheckCollision(pa.X, pa.Y, a.Radius(), pb.X, pb.Y, b.Radius())
}
