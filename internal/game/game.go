package game

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/auth"
	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/core/client"
	"github.com/dcrodman/otgate/internal/core/data"
	"github.com/dcrodman/otgate/internal/core/debug"
	"github.com/dcrodman/otgate/internal/dispatcher"
	"github.com/dcrodman/otgate/internal/encryption"
	"github.com/dcrodman/otgate/internal/protocol"
	"github.com/dcrodman/otgate/internal/store"
	"github.com/dcrodman/otgate/internal/world"
)

const (
	challengeOpcode  = 0x1F
	loginOpcode      = 0x17
	disconnectOpcode = 0x14
	pingBackOpcode   = 0x1D

	logoutRequest = 0x14
	pingRequest   = 0x1E

	// Client version, client type and dat revision.
	clientInfoSize = 7
	// Server beat in milliseconds, sent with the login packet.
	serverBeat = 0x32
	// Player creature ids start here so they never collide with monsters.
	playerIDOffset = 0x10000000
)

// PlayerStore loads and saves the characters entering the game.
type PlayerStore interface {
	LoadPlayer(accountName, password, name string) (*data.Player, error)
	SavePlayerPosition(id uint64, x, y uint16, z uint8) error
	FindIPBan(ip string) (*store.Ban, error)
}

// Submitter queues continuations on the dispatcher.
type Submitter interface {
	Submit(ctx context.Context, t dispatcher.Task) error
}

type loginRequest struct {
	accountName   string
	password      string
	characterName string
}

// Server is the GAME server implementation. Clients reconnect to it after
// picking a character on the LOGIN server; it places their character on the
// map and streams what they can see.
type Server struct {
	Name       string
	Config     *core.Config
	Logger     *logrus.Logger
	Players    PlayerStore
	Dispatcher Submitter
	State      protocol.StateReader
	Key        *encryption.RSAKey
	World      *world.Map

	sessions sync.Map
	now      func() time.Time
	random   func() uint8
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(_ context.Context) error {
	if s.Players == nil || s.Dispatcher == nil || s.State == nil || s.Key == nil {
		return errors.New("game server requires a player store, dispatcher, state and rsa key")
	}
	if s.World == nil {
		s.World = world.NewMap()
		s.World.GenerateGround(s.Config.GameServer.MapWidth, s.Config.GameServer.MapHeight,
			uint16(s.Config.GameServer.GroundItemID))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.random == nil {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		s.random = func() uint8 { return uint8(rng.Intn(0x100)) }
	}
	return nil
}

func (s *Server) SetUpClient(c *client.Client) {
	c.DebugTags["server_type"] = "game"
}

// Handshake sends the challenge the client has to echo in its first message.
func (s *Server) Handshake(c *client.Client) error {
	_, err := s.openSession(c)
	return err
}

func (s *Server) Handle(ctx context.Context, c *client.Client, data []byte) error {
	sess, ok := s.lookup(c.ID())
	if !ok {
		return errors.New("message from a client without a session")
	}
	return s.handleMessage(ctx, sess, data)
}

// Disconnect takes the client's character off the map.
func (s *Server) Disconnect(c *client.Client) {
	sess, ok := s.lookup(c.ID())
	if !ok {
		return
	}
	s.closeSession(sess)
}

func (s *Server) lookup(id uint64) (*session, bool) {
	sess, ok := s.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return sess.(*session), true
}

func (s *Server) openSession(conn protocol.Conn) (*session, error) {
	sess := newSession(conn, s.Config.GameServer.KnownCreatureLimit)
	sess.challengeTimestamp = uint32(s.now().Unix())
	sess.challengeRandom = s.random()
	s.sessions.Store(conn.ID(), sess)

	msg := bytes.NewWriter()
	msg.AddByte(challengeOpcode)
	msg.AddUint32(sess.challengeTimestamp)
	msg.AddByte(sess.challengeRandom)
	return sess, conn.Send(msg)
}

// closeSession forgets sess and removes its character on the dispatcher.
func (s *Server) closeSession(sess *session) {
	s.sessions.Delete(sess.conn.ID())
	sess.acceptPackets.Store(false)

	err := s.Dispatcher.Submit(context.Background(), dispatcher.Task{
		Fn: func(_ context.Context, _ dispatcher.Output) {
			s.removePlayer(sess)
		},
	})
	if err != nil {
		s.Logger.Warnf("[%s] failed to dispatch removal of session %d: %v", s.Name, sess.conn.ID(), err)
	}
}

func (s *Server) handleMessage(ctx context.Context, sess *session, data []byte) error {
	if !sess.helloReceived.Load() {
		sess.helloReceived.Store(true)
		if rej := s.handleFirstMessage(ctx, sess, data); rej != nil {
			s.reject(sess.conn, rej)
		}
		return nil
	}
	if !sess.acceptPackets.Load() {
		return nil
	}

	r := bytes.NewReader(data)
	switch opcode := r.GetByte(); opcode {
	case logoutRequest:
		s.logout(ctx, sess)
	case pingRequest:
		msg := bytes.NewWriter()
		msg.AddByte(pingBackOpcode)
		return sess.conn.Send(msg)
	default:
		s.Logger.Debugf("[%s] ignoring opcode %#02x from session %d", s.Name, opcode, sess.conn.ID())
	}
	return nil
}

func (s *Server) handleFirstMessage(ctx context.Context, sess *session, data []byte) *protocol.Rejection {
	if s.State.Get() == core.GameStateShutdown {
		return protocol.Silent(protocol.ErrServerUnavailable)
	}

	r := bytes.NewReader(data)
	r.Skip(2) // client OS
	version := r.GetUint16()
	sess.version.Store(uint32(version))
	r.Skip(clientInfoSize)
	if r.Err() != nil {
		return protocol.Silent(r.Err())
	}

	if rej := protocol.ExchangeKeys(s.Key, r, sess.conn); rej != nil {
		return rej
	}

	r.Skip(1) // gamemaster flag
	accountName, password, ok := strings.Cut(r.GetString(), "\n")
	if !ok || accountName == "" {
		return protocol.Reject(protocol.ErrInvalidCredentials, "You must enter your account name.")
	}
	req := loginRequest{
		accountName:   accountName,
		password:      password,
		characterName: r.GetString(),
	}

	timestamp := r.GetUint32()
	random := r.GetByte()
	if r.Err() != nil || timestamp != sess.challengeTimestamp || random != sess.challengeRandom {
		return protocol.Silent(protocol.ErrInvalidChallenge)
	}

	if rej := protocol.CheckVersion(s.Config, version); rej != nil {
		return rej
	}
	if rej := protocol.CheckGameState(s.State.Get()); rej != nil {
		return rej
	}
	if rej := s.checkBan(sess.conn.IPAddr()); rej != nil {
		return rej
	}

	err := s.Dispatcher.Submit(ctx, dispatcher.Task{
		SessionID: sess.conn.ID(),
		Fn: func(_ context.Context, out dispatcher.Output) {
			s.login(out, sess, req)
		},
	})
	if err != nil {
		s.Logger.Warnf("[%s] failed to dispatch login for %s: %v", s.Name, sess.conn.IPAddr(), err)
		return protocol.Silent(protocol.ErrServerUnavailable)
	}
	return nil
}

func (s *Server) checkBan(ip string) *protocol.Rejection {
	ban, err := s.Players.FindIPBan(ip)
	if err != nil {
		s.Logger.Warnf("[%s] error checking ban for %s: %v", s.Name, ip, err)
		return nil
	}
	if ban == nil {
		return nil
	}
	return protocol.BanMessage(&protocol.Ban{
		ExpiresAt: ban.ExpiresAt,
		BannedBy:  ban.BannedBy,
		Reason:    ban.Reason,
	})
}

func (s *Server) reject(c protocol.Sender, rej *protocol.Rejection) {
	s.Logger.Debugf("[%s] game login rejected: %v", s.Name, rej)
	if err := protocol.Disconnect(c, disconnectOpcode, rej.Message); err != nil {
		s.Logger.Debugf("[%s] error sending disconnect: %v", s.Name, err)
	}
}

// login places the character on the map. It runs on the dispatcher.
func (s *Server) login(out dispatcher.Output, sess *session, req loginRequest) {
	player, err := s.Players.LoadPlayer(req.accountName, req.password, req.characterName)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.reject(out, protocol.Reject(protocol.ErrInvalidCredentials, "Account name or password is not correct."))
		return
	case err != nil:
		if !errors.Is(err, store.ErrCharacterNotFound) {
			s.Logger.Errorf("[%s] error loading character %s: %v", s.Name, req.characterName, err)
		}
		s.reject(out, protocol.Reject(protocol.ErrCharacterUnavailable, "Character could not be loaded."))
		return
	case int(player.WorldID) != s.Config.GameServer.WorldID:
		s.reject(out, protocol.Reject(protocol.ErrCharacterUnavailable, "Character could not be loaded."))
		return
	}

	if !out.Connected() {
		return
	}

	creature := newPlayerCreature(player)
	if s.World.Creature(creature.ID) != nil {
		s.reject(out, protocol.Reject(protocol.ErrCharacterUnavailable, "You are already logged in."))
		return
	}

	stackPos, err := s.World.AddCreature(creature, s.spawnPosition(player))
	if err != nil {
		s.Logger.Errorf("[%s] error placing %s: %v", s.Name, player.Name, err)
		s.reject(out, protocol.Reject(protocol.ErrCharacterUnavailable, "Character could not be loaded."))
		return
	}
	sess.playerID = player.ID
	sess.creature = creature
	sess.known.Clear()

	msg := bytes.NewWriter()
	msg.AddByte(loginOpcode)
	msg.AddUint32(creature.ID)
	msg.AddUint16(serverBeat)

	before := msg.Len()
	sess.describer(s.World).writeMapDescription(msg)
	debug.MapDescriptionBytes.Observe(float64(msg.Len() - before))

	if err := out.Send(msg); err != nil {
		s.Logger.Debugf("[%s] error sending map description: %v", s.Name, err)
	}
	sess.acceptPackets.Store(true)
	debug.LoginsTotal.WithLabelValues("game_ok").Inc()
	s.Logger.Infof("[%s] %s entered the game at %s", s.Name, creature.Name, creature.Position)

	s.forEachSpectator(sess, creature.Position, func(other *session) {
		msg := bytes.NewWriter()
		msg.AddByte(addThingOpcode)
		addPosition(msg, creature.Position)
		msg.AddByte(uint8(stackPos))
		other.describer(s.World).addCreature(msg, creature)
		if err := other.conn.Send(msg); err != nil {
			s.Logger.Debugf("[%s] error announcing %s: %v", s.Name, creature.Name, err)
		}
	})
}

// spawnPosition returns the player's saved position, or the temple if it
// never logged in or the saved tile no longer exists.
func (s *Server) spawnPosition(player *data.Player) world.Position {
	pos := world.Position{X: player.PosX, Y: player.PosY, Z: player.PosZ}
	if (pos != world.Position{}) && s.World.Tile(pos) != nil {
		return pos
	}
	return world.Position{
		X: uint16(s.Config.GameServer.TempleX),
		Y: uint16(s.Config.GameServer.TempleY),
		Z: uint8(s.Config.GameServer.TempleZ),
	}
}

func (s *Server) logout(ctx context.Context, sess *session) {
	sess.acceptPackets.Store(false)
	err := s.Dispatcher.Submit(ctx, dispatcher.Task{
		SessionID: sess.conn.ID(),
		Fn: func(_ context.Context, out dispatcher.Output) {
			s.removePlayer(sess)
			if err := out.Close(); err != nil {
				s.Logger.Debugf("[%s] error closing session %d: %v", s.Name, sess.conn.ID(), err)
			}
		},
	})
	if err != nil {
		s.Logger.Warnf("[%s] failed to dispatch logout of session %d: %v", s.Name, sess.conn.ID(), err)
	}
}

// removePlayer takes the session's character off the map, tells everyone who
// could see it and saves where it stood. It runs on the dispatcher.
func (s *Server) removePlayer(sess *session) {
	creature := sess.creature
	if creature == nil {
		return
	}
	sess.creature = nil
	sess.known.Clear()

	pos := creature.Position
	stackPos, err := s.World.RemoveCreature(creature)
	if err != nil {
		s.Logger.Warnf("[%s] error removing %s: %v", s.Name, creature.Name, err)
		return
	}

	s.forEachSpectator(sess, pos, func(other *session) {
		msg := bytes.NewWriter()
		removeTileThing(msg, pos, stackPos)
		if msg.Len() == 0 {
			return
		}
		if err := other.conn.Send(msg); err != nil {
			s.Logger.Debugf("[%s] error removing %s from view: %v", s.Name, creature.Name, err)
		}
	})

	if err := s.Players.SavePlayerPosition(sess.playerID, pos.X, pos.Y, pos.Z); err != nil {
		s.Logger.Errorf("[%s] error saving position of %s: %v", s.Name, creature.Name, err)
	}
	s.Logger.Infof("[%s] %s left the game", s.Name, creature.Name)
}

// forEachSpectator calls fn for every other session with a character in the
// game that can see pos.
func (s *Server) forEachSpectator(self *session, pos world.Position, fn func(other *session)) {
	s.sessions.Range(func(_, value any) bool {
		other := value.(*session)
		if other != self && other.creature != nil && other.viewport().CanSee(pos) {
			fn(other)
		}
		return true
	})
}

func newPlayerCreature(p *data.Player) *world.Creature {
	return &world.Creature{
		ID:        playerIDOffset + uint32(p.ID),
		Name:      p.Name,
		Type:      world.CreatureTypePlayer,
		Health:    p.Health,
		HealthMax: p.HealthMax,
		Direction: world.Direction(p.Direction),
		Speed:     p.Speed,
		Outfit: world.Outfit{
			LookType: p.LookType,
			Head:     p.LookHead,
			Body:     p.LookBody,
			Legs:     p.LookLegs,
			Feet:     p.LookFeet,
			Addons:   p.LookAddons,
			Mount:    p.LookMount,
		},
	}
}
