package collision

import (
	"math"
	"sort"
	"testing"

	"loothound/internal/geom"
)

type testProvider struct {
	items     []Item
	gatherers []Gatherer
}

func (p *testProvider) ItemsCount() int           { return len(p.items) }
func (p *testProvider) Item(idx int) Item         { return p.items[idx] }
func (p *testProvider) GatherersCount() int       { return len(p.gatherers) }
func (p *testProvider) Gatherer(idx int) Gatherer { return p.gatherers[idx] }

func TestTryCollectPoint(t *testing.T) {
	a := geom.Point2D{X: 0, Y: 0}
	b := geom.Point2D{X: 10, Y: 0}

	t.Run("point beside the segment", func(t *testing.T) {
		res := TryCollectPoint(a, b, geom.Point2D{X: 5, Y: 0.2})
		if math.Abs(res.ProjRatio-0.5) > 1e-9 {
			t.Errorf("ProjRatio = %v, want 0.5", res.ProjRatio)
		}
		if math.Abs(res.SqDistance-0.04) > 1e-9 {
			t.Errorf("SqDistance = %v, want 0.04", res.SqDistance)
		}
		if !res.IsCollected(0.3) {
			t.Error("point within radius not collected")
		}
	})

	t.Run("projection at segment end is inclusive", func(t *testing.T) {
		res := TryCollectPoint(a, b, geom.Point2D{X: 10, Y: 0})
		if res.ProjRatio != 1.0 {
			t.Errorf("ProjRatio = %v, want 1.0", res.ProjRatio)
		}
		if !res.IsCollected(0.1) {
			t.Error("endpoint contact not collected")
		}
	})

	t.Run("point behind the segment", func(t *testing.T) {
		res := TryCollectPoint(a, b, geom.Point2D{X: -1, Y: 0})
		if res.IsCollected(0.5) {
			t.Error("point behind start collected")
		}
	})

	t.Run("point past the segment", func(t *testing.T) {
		res := TryCollectPoint(a, b, geom.Point2D{X: 11, Y: 0})
		if res.IsCollected(0.5) {
			t.Error("point past end collected")
		}
	})

	t.Run("point outside the radius", func(t *testing.T) {
		res := TryCollectPoint(a, b, geom.Point2D{X: 5, Y: 1})
		if res.IsCollected(0.9) {
			t.Error("far point collected")
		}
		if !res.IsCollected(1.0) {
			t.Error("distance equal to radius not collected")
		}
	})
}

func TestFindGatherEvents(t *testing.T) {
	t.Run("events come out ordered by time", func(t *testing.T) {
		p := &testProvider{
			items: []Item{
				{Position: geom.Point2D{X: 9, Y: 0}, HalfWidth: 0},
				{Position: geom.Point2D{X: 1, Y: 0}, HalfWidth: 0},
				{Position: geom.Point2D{X: 5, Y: 0}, HalfWidth: 0},
			},
			gatherers: []Gatherer{
				{Start: geom.Point2D{X: 0, Y: 0}, End: geom.Point2D{X: 10, Y: 0}, HalfWidth: 0.3},
			},
		}

		events := FindGatherEvents(p)
		if len(events) != 3 {
			t.Fatalf("got %d events, want 3", len(events))
		}
		if !sort.SliceIsSorted(events, func(i, j int) bool {
			return events[i].Time < events[j].Time
		}) {
			t.Error("events are not sorted by time")
		}
		wantOrder := []int{1, 2, 0}
		for i, ev := range events {
			if ev.ItemID != wantOrder[i] {
				t.Errorf("event %d hit item %d, want %d", i, ev.ItemID, wantOrder[i])
			}
		}
	})

	t.Run("motionless gatherer produces no events", func(t *testing.T) {
		p := &testProvider{
			items: []Item{
				{Position: geom.Point2D{X: 0, Y: 0}, HalfWidth: 10},
			},
			gatherers: []Gatherer{
				{Start: geom.Point2D{X: 0, Y: 0}, End: geom.Point2D{X: 0, Y: 0}, HalfWidth: 10},
			},
		}
		if events := FindGatherEvents(p); len(events) != 0 {
			t.Errorf("got %d events, want 0", len(events))
		}
	})

	t.Run("item off the corridor is skipped", func(t *testing.T) {
		p := &testProvider{
			items: []Item{
				{Position: geom.Point2D{X: 5, Y: 1}, HalfWidth: 0.1},
			},
			gatherers: []Gatherer{
				{Start: geom.Point2D{X: 0, Y: 0}, End: geom.Point2D{X: 10, Y: 0}, HalfWidth: 0.3},
			},
		}
		if events := FindGatherEvents(p); len(events) != 0 {
			t.Errorf("got %d events, want 0", len(events))
		}
	})

	t.Run("item near the corridor edge is collected", func(t *testing.T) {
		p := &testProvider{
			items: []Item{
				{Position: geom.Point2D{X: 5, Y: 0.4}, HalfWidth: 0.2},
			},
			gatherers: []Gatherer{
				{Start: geom.Point2D{X: 0, Y: 0}, End: geom.Point2D{X: 10, Y: 0}, HalfWidth: 0.3},
			},
		}
		events := FindGatherEvents(p)
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		if math.Abs(events[0].Time-0.5) > 1e-9 {
			t.Errorf("event time = %v, want 0.5", events[0].Time)
		}
	})

	t.Run("several gatherers see the same item", func(t *testing.T) {
		p := &testProvider{
			items: []Item{
				{Position: geom.Point2D{X: 5, Y: 0}, HalfWidth: 0},
			},
			gatherers: []Gatherer{
				{Start: geom.Point2D{X: 0, Y: 0}, End: geom.Point2D{X: 10, Y: 0}, HalfWidth: 0.3},
				{Start: geom.Point2D{X: 5, Y: -5}, End: geom.Point2D{X: 5, Y: 5}, HalfWidth: 0.3},
			},
		}
		events := FindGatherEvents(p)
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
	})
}
