package game

import (
	"fmt"
	"math/rand"
)

// Building is an opaque rectangle. Movement ignores buildings; they are
// kept for map responses and snapshots.
type Building struct {
	Bounds Rectangle
}

// Office is a static deposit point. Touching one within its radius banks
// the dog's bag value into its score.
type Office struct {
	ID       string
	Position Point
	Offset   Offset
}

// OfficeHalfWidth is the pickup radius of an office in the gather pass.
const OfficeHalfWidth = 0.5

// Map is an immutable map description: the road graph, the static
// scenery and the per-map gameplay parameters.
type Map struct {
	id   string
	name string

	roads     []*Road
	buildings []Building

	offices     []Office
	officeIndex map[string]int

	// pointToRoads maps every lattice point covered by a road to the
	// roads passing through it. A dog's rounded position selects the
	// roads that constrain its next move.
	pointToRoads map[Point][]*Road

	dogSpeed       float64
	randomizeSpawn bool
	lootTypesCount int
	bagCapacity    int
}

// NewMap creates an empty map with the given gameplay parameters.
func NewMap(id, name string, dogSpeed float64, randomizeSpawn bool, lootTypesCount, bagCapacity int) *Map {
	return &Map{
		id:             id,
		name:           name,
		officeIndex:    make(map[string]int),
		pointToRoads:   make(map[Point][]*Road),
		dogSpeed:       dogSpeed,
		randomizeSpawn: randomizeSpawn,
		lootTypesCount: lootTypesCount,
		bagCapacity:    bagCapacity,
	}
}

func (m *Map) ID() string   { return m.id }
func (m *Map) Name() string { return m.name }

func (m *Map) Roads() []*Road        { return m.roads }
func (m *Map) Buildings() []Building { return m.buildings }
func (m *Map) Offices() []Office     { return m.offices }
func (m *Map) DogSpeed() float64     { return m.dogSpeed }
func (m *Map) BagCapacity() int      { return m.bagCapacity }
func (m *Map) LootTypesCount() int   { return m.lootTypesCount }
func (m *Map) RandomizeSpawn() bool  { return m.randomizeSpawn }

// AddRoad appends a road and indexes every lattice point it covers.
func (m *Map) AddRoad(road *Road) {
	m.roads = append(m.roads, road)

	if road.IsHorizontal() {
		y := road.Start().Y
		for x := min(road.Start().X, road.End().X); x <= max(road.Start().X, road.End().X); x++ {
			p := Point{X: x, Y: y}
			m.pointToRoads[p] = append(m.pointToRoads[p], road)
		}
	} else {
		x := road.Start().X
		for y := min(road.Start().Y, road.End().Y); y <= max(road.Start().Y, road.End().Y); y++ {
			p := Point{X: x, Y: y}
			m.pointToRoads[p] = append(m.pointToRoads[p], road)
		}
	}
}

func (m *Map) AddBuilding(b Building) {
	m.buildings = append(m.buildings, b)
}

// AddOffice rejects duplicate office ids.
func (m *Map) AddOffice(o Office) error {
	if _, ok := m.officeIndex[o.ID]; ok {
		return fmt.Errorf("duplicate office %q on map %q", o.ID, m.id)
	}
	m.officeIndex[o.ID] = len(m.offices)
	m.offices = append(m.offices, o)
	return nil
}

// RoadsAt returns the roads whose lattice coverage includes p. The
// returned slice is shared; callers must not modify it.
func (m *Map) RoadsAt(p Point) []*Road {
	return m.pointToRoads[p]
}

// RandomRoadPosition picks a uniform lattice point on a uniform random
// road. Loot and randomized dog spawns both use it.
func (m *Map) RandomRoadPosition(rng *rand.Rand) Position {
	road := m.roads[rng.Intn(len(m.roads))]

	if road.IsHorizontal() {
		lo := min(road.Start().X, road.End().X)
		hi := max(road.Start().X, road.End().X)
		return Position{
			X: float64(lo + rng.Intn(hi-lo+1)),
			Y: float64(road.Start().Y),
		}
	}
	lo := min(road.Start().Y, road.End().Y)
	hi := max(road.Start().Y, road.End().Y)
	return Position{
		X: float64(road.Start().X),
		Y: float64(lo + rng.Intn(hi-lo+1)),
	}
}

// FirstRoadStart is the deterministic spawn point.
func (m *Map) FirstRoadStart() Position {
	first := m.roads[0]
	return Position{X: float64(first.Start().X), Y: float64(first.Start().Y)}
}

// SpawnPosition picks the dog spawn point according to the map's
// randomize-spawn flag.
func (m *Map) SpawnPosition(rng *rand.Rand) Position {
	if m.randomizeSpawn {
		return m.RandomRoadPosition(rng)
	}
	return m.FirstRoadStart()
}
