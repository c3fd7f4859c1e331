package game

import (
	"sync/atomic"

	"github.com/dcrodman/otgate/internal/protocol"
	"github.com/dcrodman/otgate/internal/world"
)

// session is the game server's view of one connection. The handshake fields
// belong to the connection goroutine; the player fields belong to the
// dispatcher.
type session struct {
	conn protocol.Conn

	challengeTimestamp uint32
	challengeRandom    uint8
	version            atomic.Uint32
	helloReceived      atomic.Bool
	acceptPackets      atomic.Bool

	playerID uint64
	creature *world.Creature
	known    *KnownCreatureSet
}

func newSession(conn protocol.Conn, knownLimit int) *session {
	return &session{
		conn:  conn,
		known: NewKnownCreatureSet(knownLimit),
	}
}

func (s *session) viewport() Viewport {
	return Viewport{Anchor: s.creature.Position}
}

func (s *session) describer(m *world.Map) *describer {
	return &describer{world: m, known: s.known, viewport: s.viewport()}
}
