// Package game holds the world model: maps with their road graphs,
// sessions, dogs, loot and the rules that move them.
package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Config carries the world-level gameplay parameters resolved from the
// game configuration file.
type Config struct {
	LootPeriod      time.Duration
	LootProbability float64
	RetirementTime  time.Duration
}

// Game owns the immutable maps, the loot catalog and the live sessions.
// It is not safe for concurrent use; the application serializes access.
type Game struct {
	cfg      Config
	maps     []*Map
	mapIndex map[string]*Map
	catalog  *LootCatalog
	sessions map[string][]*Session
}

func New(cfg Config, catalog *LootCatalog) *Game {
	return &Game{
		cfg:      cfg,
		mapIndex: make(map[string]*Map),
		catalog:  catalog,
		sessions: make(map[string][]*Session),
	}
}

func (g *Game) Catalog() *LootCatalog         { return g.catalog }
func (g *Game) RetirementTime() time.Duration { return g.cfg.RetirementTime }

// AddMap registers a map; ids must be unique.
func (g *Game) AddMap(m *Map) error {
	if _, ok := g.mapIndex[m.ID()]; ok {
		return fmt.Errorf("duplicate map %q", m.ID())
	}
	g.mapIndex[m.ID()] = m
	g.maps = append(g.maps, m)
	return nil
}

// Maps returns the maps in registration order.
func (g *Game) Maps() []*Map {
	return g.maps
}

// FindMap returns the map with the given id, or nil.
func (g *Game) FindMap(id string) *Map {
	return g.mapIndex[id]
}

// NewSession creates a session on the given map, registers it and
// returns it. rng seeds the session's private randomness.
func (g *Game) NewSession(id uint64, m *Map, rng *rand.Rand) *Session {
	lootGen := NewLootGenerator(g.cfg.LootPeriod, g.cfg.LootProbability)
	s := NewSession(id, m, g.catalog, lootGen, rng)
	g.sessions[m.ID()] = append(g.sessions[m.ID()], s)
	return s
}

// FindFreeSession returns a session on the map with room for another
// dog, or nil when every session is full or none exists.
func (g *Game) FindFreeSession(mapID string) *Session {
	for _, s := range g.sessions[mapID] {
		if !s.Full() {
			return s
		}
	}
	return nil
}

// Sessions iterates all live sessions across every map in a stable
// order (map registration order, then session creation order).
func (g *Game) Sessions() []*Session {
	var all []*Session
	for _, m := range g.maps {
		all = append(all, g.sessions[m.ID()]...)
	}
	return all
}
