// Package state saves the world to a snapshot file and restores it on
// startup, so a restart keeps every session, dog, bag and token.
package state

import (
	"encoding/gob"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"loothound/internal/app"
	"loothound/internal/game"
)

// archiveVersion guards against reading snapshots written by an
// incompatible build.
const archiveVersion = 1

type lostObjectRepr struct {
	ID        uint64
	Type      int
	X, Y      float64
	Value     int
	Collected bool
}

type dogRepr struct {
	ID              uint64
	Name            string
	X, Y            float64
	PrevX, PrevY    float64
	VX, VY          float64
	Direction       int
	Score           int
	BagCapacity     int
	Bag             []lostObjectRepr
	SinceJoinMS     int64
	SinceLastMoveMS int64
}

type sessionRepr struct {
	ID          uint64
	MapID       string
	Dogs        []dogRepr
	LostObjects []lostObjectRepr
}

type playerRepr struct {
	ID        uint64
	Name      string
	SessionID uint64
	DogID     uint64
	Token     string
}

type archive struct {
	Version  int
	Sessions []sessionRepr
	Players  []playerRepr
	Counters app.Counters
}

// Listener snapshots the application to a file. With a positive save
// period it writes whenever that much game time has passed; otherwise
// it writes only on shutdown.
type Listener struct {
	app        *app.Application
	path       string
	savePeriod time.Duration
	sinceSave  time.Duration
	log        *zap.Logger
}

func NewListener(a *app.Application, path string, savePeriod time.Duration, log *zap.Logger) *Listener {
	return &Listener{
		app:        a,
		path:       path,
		savePeriod: savePeriod,
		log:        log,
	}
}

// OnTick accumulates game time and saves once the period elapses. Save
// failures are logged and the game keeps running.
func (l *Listener) OnTick(delta time.Duration) {
	if l.savePeriod <= 0 {
		return
	}
	l.sinceSave += delta
	if l.sinceSave < l.savePeriod {
		return
	}
	l.sinceSave = 0
	if err := l.SaveState(); err != nil {
		l.log.Error("periodic state save failed", zap.Error(err))
	}
}

// OnShutdown writes a final snapshot.
func (l *Listener) OnShutdown() {
	if err := l.SaveState(); err != nil {
		l.log.Error("shutdown state save failed", zap.Error(err))
	}
}

// SaveState captures the world and writes it atomically: the archive
// goes to a temporary file which then replaces the target.
func (l *Listener) SaveState() error {
	var a archive
	a.Version = archiveVersion

	l.app.Visit(func(sessions []*game.Session, players []*app.Player, tokens map[*app.Player]string, counters app.Counters) {
		a.Counters = counters

		for _, s := range sessions {
			sr := sessionRepr{ID: s.ID(), MapID: s.Map().ID()}
			for _, dog := range s.Dogs() {
				sr.Dogs = append(sr.Dogs, captureDog(dog))
			}
			for _, obj := range s.LostObjects() {
				sr.LostObjects = append(sr.LostObjects, captureObject(obj))
			}
			a.Sessions = append(a.Sessions, sr)
		}

		for _, p := range players {
			a.Players = append(a.Players, playerRepr{
				ID:        p.ID(),
				Name:      p.Name(),
				SessionID: p.Session().ID(),
				DogID:     p.Dog().ID(),
				Token:     tokens[p],
			})
		}
	})

	tmp := l.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(a); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := os.Rename(tmp, l.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// TryLoadState restores the world from the snapshot file. A missing
// file is a clean start; a present but unreadable or inconsistent file
// is an error the caller should treat as fatal.
func (l *Listener) TryLoadState() error {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()

	var a archive
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if a.Version != archiveVersion {
		return fmt.Errorf("snapshot version %d, want %d", a.Version, archiveVersion)
	}

	l.app.RestoreCounters(a.Counters)

	sessions := make(map[uint64]*game.Session, len(a.Sessions))
	for _, sr := range a.Sessions {
		s, err := l.app.RestoreSession(sr.ID, sr.MapID)
		if err != nil {
			return fmt.Errorf("restore session %d on map %q: %w", sr.ID, sr.MapID, err)
		}
		for _, or := range sr.LostObjects {
			s.PutLostObject(restoreObject(or))
		}
		for _, dr := range sr.Dogs {
			s.AddDog(restoreDog(dr))
		}
		sessions[sr.ID] = s
	}

	for _, pr := range a.Players {
		s := sessions[pr.SessionID]
		if s == nil {
			return fmt.Errorf("player %d references unknown session %d", pr.ID, pr.SessionID)
		}
		dog := s.DogByID(pr.DogID)
		if dog == nil {
			return fmt.Errorf("player %d references unknown dog %d", pr.ID, pr.DogID)
		}
		l.app.RestorePlayer(pr.ID, pr.Name, s, dog, pr.Token)
	}

	return nil
}

func captureDog(dog *game.Dog) dogRepr {
	dr := dogRepr{
		ID:              dog.ID(),
		Name:            dog.Name(),
		X:               dog.Position().X,
		Y:               dog.Position().Y,
		PrevX:           dog.PrevPosition().X,
		PrevY:           dog.PrevPosition().Y,
		VX:              dog.Speed().VX,
		VY:              dog.Speed().VY,
		Direction:       int(dog.Direction()),
		Score:           dog.Score(),
		BagCapacity:     dog.Bag().Capacity(),
		SinceJoinMS:     dog.TimeSinceJoin().Milliseconds(),
		SinceLastMoveMS: dog.TimeSinceLastMove().Milliseconds(),
	}
	for _, item := range dog.Bag().Items() {
		dr.Bag = append(dr.Bag, captureObject(item))
	}
	return dr
}

func restoreDog(dr dogRepr) *game.Dog {
	items := make([]game.LostObject, 0, len(dr.Bag))
	for _, or := range dr.Bag {
		items = append(items, restoreObject(or))
	}
	return game.RestoreDog(
		dr.ID, dr.Name,
		game.Position{X: dr.X, Y: dr.Y},
		game.Position{X: dr.PrevX, Y: dr.PrevY},
		game.Speed{VX: dr.VX, VY: dr.VY},
		game.Direction(dr.Direction),
		dr.Score, dr.BagCapacity, items,
		time.Duration(dr.SinceJoinMS)*time.Millisecond,
		time.Duration(dr.SinceLastMoveMS)*time.Millisecond,
	)
}

func captureObject(obj game.LostObject) lostObjectRepr {
	return lostObjectRepr{
		ID:        obj.ID,
		Type:      obj.Type,
		X:         obj.Position.X,
		Y:         obj.Position.Y,
		Value:     obj.Value,
		Collected: obj.Collected,
	}
}

func restoreObject(or lostObjectRepr) game.LostObject {
	return game.LostObject{
		ID:        or.ID,
		Type:      or.Type,
		Position:  game.Position{X: or.X, Y: or.Y},
		Value:     or.Value,
		Collected: or.Collected,
	}
}
