package game

import (
	"math"
	"time"
)

// Epsilon is the tolerance used for road containment and for treating a
// speed component as zero.
const Epsilon = 0.001

// Direction is the way a dog faces. It changes only on movement
// commands, never on wall stops.
type Direction int

const (
	North Direction = iota
	South
	West
	East
)

// String renders the direction in the wire encoding used by the state
// endpoint.
func (d Direction) String() string {
	switch d {
	case North:
		return "U"
	case South:
		return "D"
	case West:
		return "L"
	case East:
		return "R"
	}
	return "U"
}

// Move commands as they arrive from clients.
const (
	MoveUp    = "U"
	MoveDown  = "D"
	MoveLeft  = "L"
	MoveRight = "R"
	MoveStop  = ""
)

// Dog is a player avatar on the map.
type Dog struct {
	id   uint64
	name string

	position     Position
	prevPosition Position
	speed        Speed
	direction    Direction

	bag   *Bag
	score int

	timeSinceJoin     time.Duration
	timeSinceLastMove time.Duration
}

// NewDog creates a dog standing still at pos, facing north, with an
// empty bag of the given capacity.
func NewDog(id uint64, name string, pos Position, bagCapacity int) *Dog {
	return &Dog{
		id:           id,
		name:         name,
		position:     pos,
		prevPosition: pos,
		bag:          NewBag(bagCapacity),
	}
}

// RestoreDog rebuilds a dog from persisted state, including its bag
// contents and its activity clocks.
func RestoreDog(id uint64, name string, pos, prev Position, speed Speed, dir Direction,
	score, bagCapacity int, bagItems []LostObject, sinceJoin, sinceLastMove time.Duration) *Dog {
	bag := NewBag(bagCapacity)
	for _, item := range bagItems {
		bag.Add(item)
	}
	return &Dog{
		id:                id,
		name:              name,
		position:          pos,
		prevPosition:      prev,
		speed:             speed,
		direction:         dir,
		bag:               bag,
		score:             score,
		timeSinceJoin:     sinceJoin,
		timeSinceLastMove: sinceLastMove,
	}
}

func (d *Dog) ID() uint64           { return d.id }
func (d *Dog) Name() string         { return d.name }
func (d *Dog) Position() Position   { return d.position }
func (d *Dog) Speed() Speed         { return d.speed }
func (d *Dog) Direction() Direction { return d.direction }
func (d *Dog) Bag() *Bag            { return d.bag }
func (d *Dog) Score() int           { return d.score }

// PrevPosition is the position at the start of the current tick; the
// gather pass uses the prev→current segment as the collection path.
func (d *Dog) PrevPosition() Position { return d.prevPosition }

// RememberPosition snapshots the current position before movement.
func (d *Dog) RememberPosition() {
	d.prevPosition = d.position
}

func (d *Dog) AddScore(points int) {
	d.score += points
}

// TimeSinceJoin is the dog's total time in the session.
func (d *Dog) TimeSinceJoin() time.Duration { return d.timeSinceJoin }

// TimeSinceLastMove is the dog's continuous idle time.
func (d *Dog) TimeSinceLastMove() time.Duration { return d.timeSinceLastMove }

// IsStopped reports whether both speed components are within Epsilon of
// zero.
func (d *Dog) IsStopped() bool {
	return math.Abs(d.speed.VX) < Epsilon && math.Abs(d.speed.VY) < Epsilon
}

// IsInactive reports whether the dog has been standing still for at
// least the retirement threshold.
func (d *Dog) IsInactive(threshold time.Duration) bool {
	return d.IsStopped() && d.timeSinceLastMove >= threshold
}

// ApplyMove sets speed and direction from a client command. Stop zeroes
// the speed and keeps the current direction; only the four direction
// commands restart the idle clock, so stopping does not postpone
// retirement.
func (d *Dog) ApplyMove(cmd string, speed float64) {
	switch cmd {
	case MoveUp:
		d.direction = North
		d.speed = Speed{VX: 0, VY: -speed}
	case MoveDown:
		d.direction = South
		d.speed = Speed{VX: 0, VY: speed}
	case MoveLeft:
		d.direction = West
		d.speed = Speed{VX: -speed, VY: 0}
	case MoveRight:
		d.direction = East
		d.speed = Speed{VX: speed, VY: 0}
	case MoveStop:
		d.speed = Speed{}
		return
	default:
		return
	}
	d.timeSinceLastMove = 0
}

// Move advances the dog by delta along its speed, constrained to the
// roads of m. An idle dog only accumulates idle time. A dog that runs
// off every allowed road is clamped to the farthest reachable edge,
// stopped, and has its idle clock restarted.
func (d *Dog) Move(delta time.Duration, m *Map) {
	d.timeSinceJoin += delta

	if d.IsStopped() {
		d.timeSinceLastMove += delta
		return
	}

	seconds := delta.Seconds()
	next := Position{
		X: d.position.X + d.speed.VX*seconds,
		Y: d.position.Y + d.speed.VY*seconds,
	}

	roads := m.RoadsAt(Point{
		X: int(math.Round(d.position.X)),
		Y: int(math.Round(d.position.Y)),
	})

	for _, road := range roads {
		if road.Segment().Contains(next, Epsilon) {
			d.position = next
			return
		}
	}

	d.position = d.clampToRoads(next, roads)
	d.speed = Speed{}
	d.timeSinceLastMove = 0
}

// clampToRoads projects the desired position onto the edges of the
// allowed roads along the movement axis and keeps, per axis, the clamp
// with the largest displacement from the current position.
func (d *Dog) clampToRoads(next Position, roads []*Road) Position {
	clamped := d.position

	for _, road := range roads {
		seg := road.Segment()
		candidate := d.position

		if math.Abs(d.speed.VX) > Epsilon {
			candidate.X = math.Min(math.Max(next.X, seg.Corner.X), seg.Corner.X+seg.Width)
		}
		if math.Abs(d.speed.VY) > Epsilon {
			candidate.Y = math.Min(math.Max(next.Y, seg.Corner.Y), seg.Corner.Y+seg.Height)
		}

		if math.Abs(candidate.X-d.position.X) > math.Abs(clamped.X-d.position.X) {
			clamped.X = candidate.X
		}
		if math.Abs(candidate.Y-d.position.Y) > math.Abs(clamped.Y-d.position.Y) {
			clamped.Y = candidate.Y
		}
	}

	return clamped
}
