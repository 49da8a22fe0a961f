package app

import (
	"fmt"
	"math/rand"
	"time"

	"loothound/internal/game"
)

// TokenLength is the length of an auth token in hex characters.
const TokenLength = 32

// Player binds a name and an auth identity to a dog in a session.
type Player struct {
	id      uint64
	name    string
	session *game.Session
	dog     *game.Dog
}

func (p *Player) ID() uint64             { return p.id }
func (p *Player) Name() string           { return p.name }
func (p *Player) Session() *game.Session { return p.session }
func (p *Player) Dog() *game.Dog         { return p.dog }

// TokenGenerator produces opaque 32-hex-character auth tokens from two
// independent random streams.
type TokenGenerator struct {
	hi *rand.Rand
	lo *rand.Rand
}

// NewTokenGenerator seeds both streams from the clock, perturbing the
// second so the halves never mirror each other.
func NewTokenGenerator() *TokenGenerator {
	now := time.Now().UnixNano()
	return NewTokenGeneratorSeeded(now, now^0x5deece66d)
}

// NewTokenGeneratorSeeded pins both seeds for reproducible tokens.
func NewTokenGeneratorSeeded(seedHi, seedLo int64) *TokenGenerator {
	return &TokenGenerator{
		hi: rand.New(rand.NewSource(seedHi)),
		lo: rand.New(rand.NewSource(seedLo)),
	}
}

// Next returns a fresh token: two 64-bit values rendered as 32 lowercase
// hex characters.
func (g *TokenGenerator) Next() string {
	return fmt.Sprintf("%016x%016x", g.hi.Uint64(), g.lo.Uint64())
}
