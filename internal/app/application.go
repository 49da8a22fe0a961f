// Package app drives the game world: it joins players, routes their
// commands, advances time and retires the inactive.
package app

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"loothound/internal/game"
	"loothound/internal/records"
)

// ErrMapNotFound is returned by JoinGame for unknown map ids.
var ErrMapNotFound = errors.New("map not found")

// recordStoreTimeout bounds each leaderboard write and read.
const recordStoreTimeout = 5 * time.Second

// RecordStore persists retired players and serves the leaderboard.
type RecordStore interface {
	Add(ctx context.Context, rec records.Record) error
	List(ctx context.Context, start, maxItems int) ([]records.Record, error)
}

// Listener observes world time. The application notifies it after every
// completed tick.
type Listener interface {
	OnTick(delta time.Duration)
}

// Counters are the id sequences for sessions, dogs and players. They
// are part of the persisted state so ids never repeat across restarts.
type Counters struct {
	Sessions uint64
	Dogs     uint64
	Players  uint64
}

// JoinResult is what a successful join hands back to the client.
type JoinResult struct {
	Token    string
	PlayerID uint64
}

// BagItemView is one carried item in a state view.
type BagItemView struct {
	ID   uint64
	Type int
}

// DogView is one dog in a state view.
type DogView struct {
	ID    uint64
	Pos   [2]float64
	Speed [2]float64
	Dir   string
	Bag   []BagItemView
	Score int
}

// LootView is one ground object in a state view.
type LootView struct {
	ID   uint64
	Type int
	Pos  [2]float64
}

// StateView is a copied snapshot of one session's visible state.
type StateView struct {
	Dogs []DogView
	Loot []LootView
}

// PlayerInfo identifies a co-player in a session listing.
type PlayerInfo struct {
	ID   uint64
	Name string
}

// Application owns the game and everything player-facing around it. All
// public methods serialize on one mutex, so callers from any goroutine
// observe a single consistent world.
type Application struct {
	mu sync.Mutex

	game  *game.Game
	store RecordStore
	log   *zap.Logger

	tokens   *TokenGenerator
	counters Counters

	players        []*Player
	byToken        map[string]*Player
	tokenOf        map[*Player]string
	sessionPlayers map[uint64][]*Player

	listener        Listener
	newRand         func() *rand.Rand
	retireOnDBError bool
}

// New wires an application around a game. store must not be nil; use
// the in-memory record store when no database is configured.
func New(g *game.Game, store RecordStore, log *zap.Logger) *Application {
	return &Application{
		game:           g,
		store:          store,
		log:            log,
		tokens:         NewTokenGenerator(),
		byToken:        make(map[string]*Player),
		tokenOf:        make(map[*Player]string),
		sessionPlayers: make(map[uint64][]*Player),
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
		retireOnDBError: true,
	}
}

// SetListener installs the tick observer. Call before serving traffic.
func (a *Application) SetListener(l Listener) {
	a.listener = l
}

// SetTokenGenerator replaces the token source. Tests pin seeds with it.
func (a *Application) SetTokenGenerator(g *TokenGenerator) {
	a.tokens = g
}

// SetRandFactory replaces the per-session randomness source.
func (a *Application) SetRandFactory(f func() *rand.Rand) {
	a.newRand = f
}

// SetRetireOnDBError controls whether a player still retires in memory
// when the leaderboard write fails. Default true.
func (a *Application) SetRetireOnDBError(v bool) {
	a.retireOnDBError = v
}

// Maps lists the game's maps in registration order. Maps are immutable
// after startup, so no locking is needed.
func (a *Application) Maps() []*game.Map {
	return a.game.Maps()
}

// FindMap returns the map with the given id, or nil.
func (a *Application) FindMap(id string) *game.Map {
	return a.game.FindMap(id)
}

// LootTypes returns a map's loot catalog entries.
func (a *Application) LootTypes(mapID string) []game.LootType {
	return a.game.Catalog().TypesFor(mapID)
}

// JoinGame puts a new player on the map: an existing session with room,
// or a fresh one. It returns the auth token and the player id.
func (a *Application) JoinGame(name, mapID string) (JoinResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.game.FindMap(mapID)
	if m == nil {
		return JoinResult{}, ErrMapNotFound
	}

	s := a.game.FindFreeSession(mapID)
	if s == nil {
		s = a.game.NewSession(a.nextSessionID(), m, a.newRand())
	}

	dog := s.SpawnDog(a.nextDogID(), name)
	player := &Player{
		id:      a.nextPlayerID(),
		name:    name,
		session: s,
		dog:     dog,
	}

	token := a.tokens.Next()
	for _, taken := a.byToken[token]; taken; _, taken = a.byToken[token] {
		token = a.tokens.Next()
	}

	a.registerPlayer(player, token)

	a.log.Info("player joined",
		zap.Uint64("player_id", player.id),
		zap.String("map_id", mapID),
		zap.Uint64("session_id", s.ID()))

	return JoinResult{Token: token, PlayerID: player.id}, nil
}

// FindPlayerByToken resolves an auth token, or returns nil.
func (a *Application) FindPlayerByToken(token string) *Player {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.byToken[token]
}

// PlayersInSession lists everyone sharing the player's session, in join
// order.
func (a *Application) PlayersInSession(p *Player) []PlayerInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	mates := a.sessionPlayers[p.session.ID()]
	infos := make([]PlayerInfo, 0, len(mates))
	for _, mate := range mates {
		infos = append(infos, PlayerInfo{ID: mate.id, Name: mate.name})
	}
	return infos
}

// GameState copies the visible state of the player's session: every dog
// and every ground object, loot ordered by id.
func (a *Application) GameState(p *Player) StateView {
	a.mu.Lock()
	defer a.mu.Unlock()

	var view StateView
	for _, dog := range p.session.Dogs() {
		dv := DogView{
			ID:    dog.ID(),
			Pos:   [2]float64{dog.Position().X, dog.Position().Y},
			Speed: [2]float64{dog.Speed().VX, dog.Speed().VY},
			Dir:   dog.Direction().String(),
			Bag:   make([]BagItemView, 0, dog.Bag().Len()),
			Score: dog.Score(),
		}
		for _, item := range dog.Bag().Items() {
			dv.Bag = append(dv.Bag, BagItemView{ID: item.ID, Type: item.Type})
		}
		view.Dogs = append(view.Dogs, dv)
	}

	for id, obj := range p.session.LostObjects() {
		view.Loot = append(view.Loot, LootView{
			ID:   id,
			Type: obj.Type,
			Pos:  [2]float64{obj.Position.X, obj.Position.Y},
		})
	}
	sort.Slice(view.Loot, func(i, j int) bool { return view.Loot[i].ID < view.Loot[j].ID })

	return view
}

// MovePlayer applies a movement command at the map's dog speed.
func (a *Application) MovePlayer(p *Player, cmd string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p.dog.ApplyMove(cmd, p.session.Map().DogSpeed())
}

// Tick advances every session by delta: movement, retirement, gathering
// and loot generation, in that order. The listener is notified after
// the world settles.
func (a *Application) Tick(delta time.Duration) {
	a.mu.Lock()
	for _, s := range a.game.Sessions() {
		s.MoveDogs(delta)
		for _, dog := range s.RemoveInactiveDogs(a.game.RetirementTime()) {
			a.retireDog(s, dog)
		}
		s.HandleCollisions()
		s.GenerateLoot(delta)
	}
	a.mu.Unlock()

	if a.listener != nil {
		a.listener.OnTick(delta)
	}
}

// Records reads a leaderboard page.
func (a *Application) Records(ctx context.Context, start, maxItems int) ([]records.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, recordStoreTimeout)
	defer cancel()
	return a.store.List(ctx, start, maxItems)
}

// Stats reports the live totals the metrics gauges export.
func (a *Application) Stats() (players, sessions, loot int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	all := a.game.Sessions()
	for _, s := range all {
		loot += len(s.LostObjects())
	}
	return len(a.players), len(all), loot
}

// retireDog writes the player's record and removes every trace of them.
// A failed write is logged; by default the player still leaves the
// world, unless retireOnDBError is off, in which case the dog rejoins
// its session and retirement is retried on a later tick. Callers hold
// the mutex.
func (a *Application) retireDog(s *game.Session, dog *game.Dog) {
	mates := a.sessionPlayers[s.ID()]
	var player *Player
	for _, mate := range mates {
		if mate.dog == dog {
			player = mate
			break
		}
	}
	if player == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordStoreTimeout)
	err := a.store.Add(ctx, records.Record{
		Name:     player.name,
		Score:    dog.Score(),
		PlayTime: dog.TimeSinceJoin().Seconds(),
	})
	cancel()
	if err != nil {
		a.log.Error("failed to persist retired player",
			zap.Uint64("player_id", player.id),
			zap.Error(err))
		if !a.retireOnDBError {
			s.AddDog(dog)
			return
		}
	}

	delete(a.byToken, a.tokenOf[player])
	delete(a.tokenOf, player)

	kept := mates[:0]
	for _, mate := range mates {
		if mate != player {
			kept = append(kept, mate)
		}
	}
	a.sessionPlayers[s.ID()] = kept

	players := a.players[:0]
	for _, p := range a.players {
		if p != player {
			players = append(players, p)
		}
	}
	a.players = players

	a.log.Info("player retired",
		zap.Uint64("player_id", player.id),
		zap.Int("score", dog.Score()),
		zap.Float64("play_time", dog.TimeSinceJoin().Seconds()))
}

func (a *Application) registerPlayer(p *Player, token string) {
	a.players = append(a.players, p)
	a.byToken[token] = p
	a.tokenOf[p] = token
	a.sessionPlayers[p.session.ID()] = append(a.sessionPlayers[p.session.ID()], p)
}

func (a *Application) nextSessionID() uint64 {
	id := a.counters.Sessions
	a.counters.Sessions++
	return id
}

func (a *Application) nextDogID() uint64 {
	id := a.counters.Dogs
	a.counters.Dogs++
	return id
}

func (a *Application) nextPlayerID() uint64 {
	id := a.counters.Players
	a.counters.Players++
	return id
}

// Visit runs fn with the world frozen. Snapshot capture uses it to read
// sessions, players and counters in one consistent view.
func (a *Application) Visit(fn func(sessions []*game.Session, players []*Player, tokens map[*Player]string, counters Counters)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.game.Sessions(), a.players, a.tokenOf, a.counters)
}

// RestoreCounters reinstates persisted id sequences.
func (a *Application) RestoreCounters(c Counters) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters = c
}

// RestoreSession recreates a session with its persisted id on the named
// map.
func (a *Application) RestoreSession(id uint64, mapID string) (*game.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.game.FindMap(mapID)
	if m == nil {
		return nil, ErrMapNotFound
	}
	return a.game.NewSession(id, m, a.newRand()), nil
}

// RestorePlayer reattaches a persisted player to its session, dog and
// token.
func (a *Application) RestorePlayer(id uint64, name string, s *game.Session, dog *game.Dog, token string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	player := &Player{id: id, name: name, session: s, dog: dog}
	a.registerPlayer(player, token)
}
