package game

// LostObject is one loot item lying on a road or carried in a bag.
// Value is resolved from the map's loot catalog at spawn time so that
// scoring never has to consult the catalog again.
type LostObject struct {
	ID        uint64
	Type      int
	Position  Position
	Value     int
	Collected bool
}

// LostObjectHalfWidth is the pickup radius of loot on the ground.
// Items are points; only the dog's corridor width matters.
const LostObjectHalfWidth = 0.0

// DogHalfWidth is half the width of a dog's collection corridor.
const DogHalfWidth = 0.3

// Bag holds the loot a dog carries. Capacity is fixed at creation.
type Bag struct {
	capacity int
	items    []LostObject
}

func NewBag(capacity int) *Bag {
	return &Bag{capacity: capacity}
}

func (b *Bag) Capacity() int { return b.capacity }
func (b *Bag) Len() int      { return len(b.items) }

func (b *Bag) Full() bool {
	return len(b.items) >= b.capacity
}

// Add puts the item into the bag. It reports false when the bag is full.
func (b *Bag) Add(item LostObject) bool {
	if b.Full() {
		return false
	}
	b.items = append(b.items, item)
	return true
}

// Items returns the carried loot in pickup order. The slice is shared;
// callers must not modify it.
func (b *Bag) Items() []LostObject {
	return b.items
}

// TotalValue sums the values of the carried loot.
func (b *Bag) TotalValue() int {
	total := 0
	for _, item := range b.items {
		total += item.Value
	}
	return total
}

func (b *Bag) Clear() {
	b.items = b.items[:0]
}

// LootType is one entry of a map's loot catalog. The frontend fields
// pass through to map responses untouched; Value feeds scoring.
type LootType struct {
	Name     string  `json:"name"`
	File     string  `json:"file"`
	Type     string  `json:"type"`
	Rotation *int    `json:"rotation,omitempty"`
	Color    *string `json:"color,omitempty"`
	Scale    float64 `json:"scale"`
	Value    int     `json:"value"`
}

// LootCatalog indexes loot types by map id.
type LootCatalog struct {
	byMap map[string][]LootType
}

func NewLootCatalog() *LootCatalog {
	return &LootCatalog{byMap: make(map[string][]LootType)}
}

func (c *LootCatalog) SetTypes(mapID string, types []LootType) {
	c.byMap[mapID] = types
}

// TypesFor returns the loot types of a map in catalog order.
func (c *LootCatalog) TypesFor(mapID string) []LootType {
	return c.byMap[mapID]
}

// Value returns the score value of a loot type, or zero for an unknown
// type index.
func (c *LootCatalog) Value(mapID string, typ int) int {
	types := c.byMap[mapID]
	if typ < 0 || typ >= len(types) {
		return 0
	}
	return types[typ].Value
}
