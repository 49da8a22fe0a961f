// Package geom holds the real-valued primitives shared by the movement
// and collision code.
package geom

// Point2D is a point on the map plane.
type Point2D struct {
	X, Y float64
}

// Vec2D is a displacement between two points.
type Vec2D struct {
	X, Y float64
}

// Sub returns the vector from q to p.
func (p Point2D) Sub(q Point2D) Vec2D {
	return Vec2D{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dot returns the scalar product of two vectors.
func (v Vec2D) Dot(w Vec2D) float64 {
	return v.X*w.X + v.Y*w.Y
}

// Len2 returns the squared length of the vector.
func (v Vec2D) Len2() float64 {
	return v.X*v.X + v.Y*v.Y
}
