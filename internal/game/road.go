package game

// Integer lattice primitives. Road endpoints, buildings and offices live
// on the lattice; dogs and loot move in real coordinates.

// Point is an integer lattice point.
type Point struct {
	X, Y int
}

// Size is an integer extent.
type Size struct {
	Width, Height int
}

// Rectangle is an integer-positioned rectangle (buildings).
type Rectangle struct {
	Position Point
	Size     Size
}

// Offset is an integer displacement (office door offsets).
type Offset struct {
	DX, DY int
}

// Position is a real point on the map plane.
type Position struct {
	X, Y float64
}

// Speed is a velocity in map units per second.
type Speed struct {
	VX, VY float64
}

const (
	// RoadWidth is the full width of the walkable band around a road
	// centerline.
	RoadWidth     = 0.8
	HalfRoadWidth = 0.4
)

// RealRectangle is the real-valued footprint of a road segment.
type RealRectangle struct {
	Corner Position
	Width  float64
	Height float64
}

// Contains reports whether p lies inside the rectangle, with eps
// tolerance on all four sides.
func (r RealRectangle) Contains(p Position, eps float64) bool {
	return p.X >= r.Corner.X-eps &&
		p.X <= r.Corner.X+r.Width+eps &&
		p.Y >= r.Corner.Y-eps &&
		p.Y <= r.Corner.Y+r.Height+eps
}

// Road is an axis-aligned road between two lattice points. The walkable
// segment is the centerline inflated by HalfRoadWidth on every side.
type Road struct {
	start   Point
	end     Point
	segment RealRectangle
}

// NewHorizontalRoad builds a road from start to (endX, start.Y).
func NewHorizontalRoad(start Point, endX int) *Road {
	return &Road{
		start: start,
		end:   Point{X: endX, Y: start.Y},
		segment: RealRectangle{
			Corner: Position{
				X: float64(min(start.X, endX)) - HalfRoadWidth,
				Y: float64(start.Y) - HalfRoadWidth,
			},
			Width:  float64(abs(endX-start.X)) + RoadWidth,
			Height: RoadWidth,
		},
	}
}

// NewVerticalRoad builds a road from start to (start.X, endY).
func NewVerticalRoad(start Point, endY int) *Road {
	return &Road{
		start: start,
		end:   Point{X: start.X, Y: endY},
		segment: RealRectangle{
			Corner: Position{
				X: float64(start.X) - HalfRoadWidth,
				Y: float64(min(start.Y, endY)) - HalfRoadWidth,
			},
			Width:  RoadWidth,
			Height: float64(abs(endY-start.Y)) + RoadWidth,
		},
	}
}

func (r *Road) IsHorizontal() bool {
	return r.start.Y == r.end.Y
}

func (r *Road) IsVertical() bool {
	return r.start.X == r.end.X
}

func (r *Road) Start() Point {
	return r.start
}

func (r *Road) End() Point {
	return r.end
}

// Segment returns the walkable footprint of the road.
func (r *Road) Segment() RealRectangle {
	return r.segment
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}
