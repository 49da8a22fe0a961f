// Package collision matches moving gatherers against static items and
// orders the resulting contacts by the time they happen within a tick.
package collision

import (
	"sort"

	"loothound/internal/geom"
)

// Gatherer is a collector moving from Start to End during one tick.
// HalfWidth is half of its collection corridor.
type Gatherer struct {
	Start     geom.Point2D
	End       geom.Point2D
	HalfWidth float64
}

// Item is a static collectable with a pickup radius.
type Item struct {
	Position  geom.Point2D
	HalfWidth float64
}

// Provider exposes the gatherers and items of one detection pass.
// Index-based access keeps the detector independent of the game model.
type Provider interface {
	ItemsCount() int
	Item(idx int) Item
	GatherersCount() int
	Gatherer(idx int) Gatherer
}

// Event is one detected contact. Time is the fraction of the gatherer's
// path at which the contact occurs (the perpendicular foot of the item).
type Event struct {
	ItemID     int
	GathererID int
	SqDistance float64
	Time       float64
}

// CollectionResult carries the geometry of a single gatherer/item test.
type CollectionResult struct {
	SqDistance float64
	ProjRatio  float64
}

// IsCollected reports whether the contact counts as a pickup: the foot
// of the perpendicular must lie within the segment and the distance
// within the combined radius. Both bounds are inclusive.
func (r CollectionResult) IsCollected(collectRadius float64) bool {
	return r.ProjRatio >= 0 && r.ProjRatio <= 1 && r.SqDistance <= collectRadius*collectRadius
}

// TryCollectPoint projects item position c onto the segment a→b.
// The segment must be non-degenerate; callers skip motionless gatherers.
func TryCollectPoint(a, b, c geom.Point2D) CollectionResult {
	u := c.Sub(a)
	v := b.Sub(a)
	uDotV := u.Dot(v)
	vLen2 := v.Len2()
	return CollectionResult{
		SqDistance: u.Len2() - uDotV*uDotV/vLen2,
		ProjRatio:  uDotV / vLen2,
	}
}

// FindGatherEvents runs the full pass over the provider and returns the
// qualifying events ordered by Time ascending. Gatherers with zero
// displacement produce no events. The sort is stable, so ties keep the
// (gatherer, item) enumeration order.
func FindGatherEvents(provider Provider) []Event {
	var events []Event

	for g := 0; g < provider.GatherersCount(); g++ {
		gatherer := provider.Gatherer(g)
		if gatherer.Start == gatherer.End {
			continue
		}

		for i := 0; i < provider.ItemsCount(); i++ {
			item := provider.Item(i)
			result := TryCollectPoint(gatherer.Start, gatherer.End, item.Position)

			if result.IsCollected(gatherer.HalfWidth + item.HalfWidth) {
				events = append(events, Event{
					ItemID:     i,
					GathererID: g,
					SqDistance: result.SqDistance,
					Time:       result.ProjRatio,
				})
			}
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})

	return events
}
