package game

import (
	"math/rand"
	"sort"
	"time"

	"loothound/internal/collision"
	"loothound/internal/geom"
)

// MaxDogsPerSession caps the population of one session.
const MaxDogsPerSession = 5

// Session is one running instance of a map with its dogs and the loot
// lying on its roads. Sessions are not safe for concurrent use; the
// application serializes access.
type Session struct {
	id      uint64
	m       *Map
	catalog *LootCatalog
	lootGen *LootGenerator
	rng     *rand.Rand

	dogs         []*Dog
	lost         map[uint64]LostObject
	nextObjectID uint64
}

// NewSession creates an empty session on m. rng drives spawn positions
// and loot types for this session only.
func NewSession(id uint64, m *Map, catalog *LootCatalog, lootGen *LootGenerator, rng *rand.Rand) *Session {
	return &Session{
		id:      id,
		m:       m,
		catalog: catalog,
		lootGen: lootGen,
		rng:     rng,
		lost:    make(map[uint64]LostObject),
	}
}

func (s *Session) ID() uint64   { return s.id }
func (s *Session) Map() *Map    { return s.m }
func (s *Session) Dogs() []*Dog { return s.dogs }

func (s *Session) Full() bool {
	return len(s.dogs) >= MaxDogsPerSession
}

// LostObjects returns the loot on the ground keyed by object id. The
// map is shared; callers must not modify it.
func (s *Session) LostObjects() map[uint64]LostObject {
	return s.lost
}

// SpawnDog adds a new dog at the map's spawn point and seeds the ground
// with one loot item for it to find.
func (s *Session) SpawnDog(id uint64, name string) *Dog {
	dog := NewDog(id, name, s.m.SpawnPosition(s.rng), s.m.BagCapacity())
	s.dogs = append(s.dogs, dog)
	s.SpawnLoot(1)
	return dog
}

// AddDog attaches an existing dog, bypassing spawn logic. Snapshot
// restore uses it. The loot id counter advances past any carried item
// so fresh spawns never collide with bag contents.
func (s *Session) AddDog(dog *Dog) {
	s.dogs = append(s.dogs, dog)
	for _, item := range dog.Bag().Items() {
		if item.ID >= s.nextObjectID {
			s.nextObjectID = item.ID + 1
		}
	}
}

// DogByID returns the dog with the given id, or nil.
func (s *Session) DogByID(id uint64) *Dog {
	for _, dog := range s.dogs {
		if dog.ID() == id {
			return dog
		}
	}
	return nil
}

// PutLostObject places an existing object on the ground and keeps the
// id counter ahead of it. Snapshot restore uses it.
func (s *Session) PutLostObject(obj LostObject) {
	s.lost[obj.ID] = obj
	if obj.ID >= s.nextObjectID {
		s.nextObjectID = obj.ID + 1
	}
}

// SpawnLoot drops n new objects at random road positions with random
// types from the map's catalog.
func (s *Session) SpawnLoot(n int) {
	types := s.m.LootTypesCount()
	if types == 0 {
		return
	}
	for i := 0; i < n; i++ {
		typ := s.rng.Intn(types)
		obj := LostObject{
			ID:       s.nextObjectID,
			Type:     typ,
			Position: s.m.RandomRoadPosition(s.rng),
			Value:    s.catalog.Value(s.m.ID(), typ),
		}
		s.nextObjectID++
		s.lost[obj.ID] = obj
	}
}

// GenerateLoot runs the generator for delta and spawns the resulting
// number of objects.
func (s *Session) GenerateLoot(delta time.Duration) {
	s.SpawnLoot(s.lootGen.Generate(delta, len(s.lost), len(s.dogs)))
}

// MoveDogs snapshots every dog's position and advances it by delta.
func (s *Session) MoveDogs(delta time.Duration) {
	for _, dog := range s.dogs {
		dog.RememberPosition()
		dog.Move(delta, s.m)
	}
}

// RemoveInactiveDogs detaches every dog idle past the threshold and
// returns them for retirement.
func (s *Session) RemoveInactiveDogs(threshold time.Duration) []*Dog {
	var removed []*Dog
	kept := s.dogs[:0]
	for _, dog := range s.dogs {
		if dog.IsInactive(threshold) {
			removed = append(removed, dog)
		} else {
			kept = append(kept, dog)
		}
	}
	for i := len(kept); i < len(s.dogs); i++ {
		s.dogs[i] = nil
	}
	s.dogs = kept
	return removed
}

// gatherProvider adapts the session's dogs, loot and offices to the
// collision detector. Item indices cover the loot first (in ascending
// id order, so passes are deterministic), then the offices.
type gatherProvider struct {
	dogs    []*Dog
	lostIDs []uint64
	lost    map[uint64]LostObject
	offices []Office
}

func (p *gatherProvider) GatherersCount() int { return len(p.dogs) }

func (p *gatherProvider) Gatherer(idx int) collision.Gatherer {
	dog := p.dogs[idx]
	return collision.Gatherer{
		Start:     geom.Point2D{X: dog.PrevPosition().X, Y: dog.PrevPosition().Y},
		End:       geom.Point2D{X: dog.Position().X, Y: dog.Position().Y},
		HalfWidth: DogHalfWidth,
	}
}

func (p *gatherProvider) ItemsCount() int {
	return len(p.lostIDs) + len(p.offices)
}

func (p *gatherProvider) Item(idx int) collision.Item {
	if idx < len(p.lostIDs) {
		obj := p.lost[p.lostIDs[idx]]
		return collision.Item{
			Position:  geom.Point2D{X: obj.Position.X, Y: obj.Position.Y},
			HalfWidth: LostObjectHalfWidth,
		}
	}
	office := p.offices[idx-len(p.lostIDs)]
	return collision.Item{
		Position:  geom.Point2D{X: float64(office.Position.X), Y: float64(office.Position.Y)},
		HalfWidth: OfficeHalfWidth,
	}
}

// HandleCollisions runs one gather pass over the dogs' movement
// segments: pickups fill bags in event-time order, office contacts bank
// the bag into the score, and collected objects leave the ground.
func (s *Session) HandleCollisions() {
	provider := &gatherProvider{
		dogs:    s.dogs,
		lostIDs: s.sortedLostIDs(),
		lost:    s.lost,
		offices: s.m.Offices(),
	}

	for _, ev := range collision.FindGatherEvents(provider) {
		dog := s.dogs[ev.GathererID]

		if ev.ItemID < len(provider.lostIDs) {
			id := provider.lostIDs[ev.ItemID]
			obj := s.lost[id]
			if obj.Collected || dog.Bag().Full() {
				continue
			}
			obj.Collected = true
			s.lost[id] = obj
			dog.Bag().Add(obj)
			continue
		}

		dog.AddScore(dog.Bag().TotalValue())
		dog.Bag().Clear()
	}

	for id, obj := range s.lost {
		if obj.Collected {
			delete(s.lost, id)
		}
	}
}

func (s *Session) sortedLostIDs() []uint64 {
	ids := make([]uint64, 0, len(s.lost))
	for id := range s.lost {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
