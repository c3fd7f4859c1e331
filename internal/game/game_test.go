package game

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/auth"
	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/core/data"
	"github.com/dcrodman/otgate/internal/dispatcher"
	"github.com/dcrodman/otgate/internal/encryption"
	"github.com/dcrodman/otgate/internal/store"
	"github.com/dcrodman/otgate/internal/world"
)

var (
	testKeyOnce sync.Once
	testKey     *encryption.RSAKey
	testNow     = time.Unix(1700000000, 0)
)

const testRandom = 0x42

func rsaKey(t *testing.T) *encryption.RSAKey {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := encryption.GenerateRSAKey()
		if err != nil {
			t.Fatalf("GenerateRSAKey() error = %v", err)
		}
		testKey = key
	})
	return testKey
}

type fakeConn struct {
	id     uint64
	sent   [][]byte
	closed bool
	armed  bool
}

func (f *fakeConn) ID() uint64     { return f.id }
func (f *fakeConn) IPAddr() string { return "10.0.0.1" }
func (f *fakeConn) ArmEncryption([4]uint32) error {
	f.armed = true
	return nil
}
func (f *fakeConn) Send(msg *bytes.Writer) error {
	f.sent = append(f.sent, append([]byte(nil), msg.Bytes()...))
	return nil
}
func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

// last returns the most recent message sent to the connection.
func (f *fakeConn) last() []byte {
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type connOutput struct {
	conn *fakeConn
}

func (o connOutput) Send(msg *bytes.Writer) error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Send(msg)
}

func (o connOutput) Close() error {
	if o.conn == nil {
		return nil
	}
	return o.conn.Close()
}

func (o connOutput) Connected() bool { return o.conn != nil && !o.conn.closed }

// syncDispatcher runs tasks as soon as they are submitted.
type syncDispatcher struct {
	conns map[uint64]*fakeConn
}

func (d *syncDispatcher) Submit(ctx context.Context, t dispatcher.Task) error {
	t.Fn(ctx, connOutput{conn: d.conns[t.SessionID]})
	return nil
}

type testPlayer struct {
	password string
	player   data.Player
}

type fakePlayers struct {
	players map[string]testPlayer
	saved   map[uint64]world.Position
}

func (f *fakePlayers) LoadPlayer(accountName, password, name string) (*data.Player, error) {
	p, ok := f.players[name]
	if !ok {
		return nil, store.ErrCharacterNotFound
	}
	if p.password != password {
		return nil, auth.ErrInvalidCredentials
	}
	player := p.player
	return &player, nil
}

func (f *fakePlayers) SavePlayerPosition(id uint64, x, y uint16, z uint8) error {
	f.saved[id] = world.Position{X: x, Y: y, Z: z}
	return nil
}

func (f *fakePlayers) FindIPBan(string) (*store.Ban, error) { return nil, nil }

type harness struct {
	server     *Server
	players    *fakePlayers
	dispatcher *syncDispatcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &core.Config{}
	cfg.LoginServer.ClientVersionMin = 1097
	cfg.LoginServer.ClientVersionMax = 1098
	cfg.LoginServer.ClientVersionStr = "10.98"
	cfg.GameServer.WorldID = 1
	cfg.GameServer.MapWidth = 64
	cfg.GameServer.MapHeight = 64
	cfg.GameServer.GroundItemID = 4526
	cfg.GameServer.TempleX = 32
	cfg.GameServer.TempleY = 32
	cfg.GameServer.TempleZ = 7
	cfg.GameServer.KnownCreatureLimit = 1300

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	players := &fakePlayers{
		players: map[string]testPlayer{
			"Alice": {password: "pw", player: data.Player{ID: 1, Name: "Alice", WorldID: 1, Health: 150, HealthMax: 150, Speed: 220, LookType: 128}},
			"Bob":   {password: "pw", player: data.Player{ID: 2, Name: "Bob", WorldID: 1, PosX: 33, PosY: 32, PosZ: 7, Health: 150, HealthMax: 150, Speed: 220, LookType: 128}},
			"Carol": {password: "pw", player: data.Player{ID: 3, Name: "Carol", WorldID: 2}},
		},
		saved: make(map[uint64]world.Position),
	}
	d := &syncDispatcher{conns: make(map[uint64]*fakeConn)}

	s := &Server{
		Name:       "GAME",
		Config:     cfg,
		Logger:     logger,
		Players:    players,
		Dispatcher: d,
		State:      fakeState(core.GameStateNormal),
		Key:        rsaKey(t),
		now:        func() time.Time { return testNow },
		random:     func() uint8 { return testRandom },
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return &harness{server: s, players: players, dispatcher: d}
}

type fakeState core.GameState

func (s fakeState) Get() core.GameState { return core.GameState(s) }

// connect opens a session and returns it along with its connection.
func (h *harness) connect(t *testing.T, id uint64) (*session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{id: id}
	h.dispatcher.conns[id] = conn
	sess, err := h.server.openSession(conn)
	if err != nil {
		t.Fatalf("openSession() error = %v", err)
	}
	return sess, conn
}

type firstMessage struct {
	sessionKey string
	character  string
	timestamp  uint32
	random     uint8
}

func validFirstMessage(character string) firstMessage {
	return firstMessage{
		sessionKey: "account\npw",
		character:  character,
		timestamp:  uint32(testNow.Unix()),
		random:     testRandom,
	}
}

func buildFirstMessage(t *testing.T, m firstMessage) []byte {
	t.Helper()

	block := bytes.NewWriter()
	block.AddByte(0)
	for i := uint32(1); i <= 4; i++ {
		block.AddUint32(i)
	}
	block.AddByte(0) // gamemaster
	block.AddString(m.sessionKey)
	block.AddString(m.character)
	block.AddUint32(m.timestamp)
	block.AddByte(m.random)

	rsaBlock := make([]byte, encryption.RSABlockSize)
	copy(rsaBlock, block.Bytes())
	if err := rsaKey(t).Encrypt(rsaBlock); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}

	w := bytes.NewWriter()
	w.AddUint16(2)
	w.AddUint16(1098)
	w.AddBytes(make([]byte, clientInfoSize))
	w.AddBytes(rsaBlock)
	return w.Bytes()
}

func disconnectMessage(message string) []byte {
	w := bytes.NewWriter()
	w.AddByte(disconnectOpcode)
	w.AddString(message)
	return w.Bytes()
}

func TestOpenSession_Challenge(t *testing.T) {
	h := newHarness(t)
	_, conn := h.connect(t, 1)

	want := bytes.NewWriter()
	want.AddByte(challengeOpcode)
	want.AddUint32(uint32(testNow.Unix()))
	want.AddByte(testRandom)

	if diff := cmp.Diff([][]byte{want.Bytes()}, conn.sent); diff != "" {
		t.Errorf("unexpected challenge; diff:\n%s", diff)
	}
}

func TestHandleMessage_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		message firstMessage
		want    []byte
	}{
		{
			name:    "challenge mismatch",
			message: firstMessage{sessionKey: "account\npw", character: "Alice", timestamp: 1, random: testRandom},
		},
		{
			name:    "random mismatch",
			message: firstMessage{sessionKey: "account\npw", character: "Alice", timestamp: uint32(testNow.Unix()), random: 1},
		},
		{
			name:    "no separator",
			message: firstMessage{sessionKey: "account", character: "Alice", timestamp: uint32(testNow.Unix()), random: testRandom},
			want:    disconnectMessage("You must enter your account name."),
		},
		{
			name:    "empty account",
			message: firstMessage{sessionKey: "\npw", character: "Alice", timestamp: uint32(testNow.Unix()), random: testRandom},
			want:    disconnectMessage("You must enter your account name."),
		},
		{
			name:    "wrong password",
			message: firstMessage{sessionKey: "account\nnope", character: "Alice", timestamp: uint32(testNow.Unix()), random: testRandom},
			want:    disconnectMessage("Account name or password is not correct."),
		},
		{
			name:    "unknown character",
			message: validFirstMessage("Mallory"),
			want:    disconnectMessage("Character could not be loaded."),
		},
		{
			name:    "character on another world",
			message: validFirstMessage("Carol"),
			want:    disconnectMessage("Character could not be loaded."),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			sess, conn := h.connect(t, 1)
			challenge := conn.sent[0]

			if err := h.server.handleMessage(context.Background(), sess, buildFirstMessage(t, tt.message)); err != nil {
				t.Fatalf("handleMessage() error = %v", err)
			}

			var want [][]byte
			want = append(want, challenge)
			if tt.want != nil {
				want = append(want, tt.want)
			}
			if diff := cmp.Diff(want, conn.sent); diff != "" {
				t.Errorf("unexpected messages; diff:\n%s", diff)
			}
			if !conn.closed {
				t.Errorf("expected the connection to be closed")
			}
			if sess.acceptPackets.Load() {
				t.Errorf("a rejected session must not accept packets")
			}
			if len(h.server.World.Creatures()) != 0 {
				t.Errorf("no creature should have been placed")
			}
		})
	}
}

func TestHandleMessage_EnterAndLeave(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	alice, aliceConn := h.connect(t, 1)
	if err := h.server.handleMessage(ctx, alice, buildFirstMessage(t, validFirstMessage("Alice"))); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if !aliceConn.armed {
		t.Errorf("expected encryption to be armed")
	}
	if !alice.acceptPackets.Load() {
		t.Fatalf("expected Alice to be in the game")
	}

	// Login packet followed by the map description around the temple.
	wantPrefix := []byte{
		loginOpcode, 0x01, 0x00, 0x00, 0x10, serverBeat, 0x00,
		mapDescriptionOpcode, 32, 0, 32, 0, 7,
	}
	if got := aliceConn.last(); !cmp.Equal(wantPrefix, got[:len(wantPrefix)]) {
		t.Errorf("login response prefix want = %v, got = %v", wantPrefix, got[:len(wantPrefix)])
	}
	if !alice.known.Contains(0x10000001) {
		t.Errorf("Alice should know her own creature")
	}

	bob, bobConn := h.connect(t, 2)
	if err := h.server.handleMessage(ctx, bob, buildFirstMessage(t, validFirstMessage("Bob"))); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if bob.creature.Position != (world.Position{X: 33, Y: 32, Z: 7}) {
		t.Errorf("Bob should enter at his saved position, got %s", bob.creature.Position)
	}
	if !bob.known.Contains(0x10000001) || !bob.known.Contains(0x10000002) {
		t.Errorf("Bob should know both creatures after his map description")
	}

	// Alice sees Bob appear.
	wantAdd := []byte{addThingOpcode, 33, 0, 32, 0, 7, 1, unknownCreatureOpcode, 0, 0, 0, 0, 0, 0x02, 0x00, 0x00, 0x10}
	if got := aliceConn.last(); !cmp.Equal(wantAdd, got[:len(wantAdd)]) {
		t.Errorf("add creature prefix want = %v, got = %v", wantAdd, got[:len(wantAdd)])
	}

	// Pings are answered once in the game.
	if err := h.server.handleMessage(ctx, bob, []byte{pingRequest}); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if diff := cmp.Diff([]byte{pingBackOpcode}, bobConn.last()); diff != "" {
		t.Errorf("unexpected ping response; diff:\n%s", diff)
	}

	// Unknown opcodes are ignored.
	sent := len(bobConn.sent)
	if err := h.server.handleMessage(ctx, bob, []byte{0x65}); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if len(bobConn.sent) != sent {
		t.Errorf("expected no response to a walk request")
	}

	if err := h.server.handleMessage(ctx, bob, []byte{logoutRequest}); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if !bobConn.closed {
		t.Errorf("expected Bob's connection to be closed after logging out")
	}
	if diff := cmp.Diff([]byte{removeThingOpcode, 33, 0, 32, 0, 7, 1}, aliceConn.last()); diff != "" {
		t.Errorf("unexpected remove message; diff:\n%s", diff)
	}
	if pos := h.players.saved[2]; pos != (world.Position{X: 33, Y: 32, Z: 7}) {
		t.Errorf("saved position want = (33, 32, 7), got = %s", pos)
	}
	if h.server.World.Creature(0x10000002) != nil {
		t.Errorf("Bob should have left the map")
	}
	if bob.known.Len() != 0 {
		t.Errorf("Bob's known creatures should be cleared")
	}

	// Closing the session after logging out does nothing more.
	h.server.closeSession(bob)
	if len(h.players.saved) != 1 {
		t.Errorf("position should be saved once, got %d saves", len(h.players.saved))
	}
}

func TestHandleMessage_AlreadyLoggedIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, _ := h.connect(t, 1)
	if err := h.server.handleMessage(ctx, first, buildFirstMessage(t, validFirstMessage("Alice"))); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}

	second, conn := h.connect(t, 2)
	if err := h.server.handleMessage(ctx, second, buildFirstMessage(t, validFirstMessage("Alice"))); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if diff := cmp.Diff(disconnectMessage("You are already logged in."), conn.last()); diff != "" {
		t.Errorf("unexpected response; diff:\n%s", diff)
	}
}

func TestHandleMessage_IgnoredBeforeLogin(t *testing.T) {
	h := newHarness(t)
	sess, conn := h.connect(t, 1)
	sess.helloReceived.Store(true)

	if err := h.server.handleMessage(context.Background(), sess, []byte{pingRequest}); err != nil {
		t.Fatalf("handleMessage() error = %v", err)
	}
	if len(conn.sent) != 1 {
		t.Errorf("expected only the challenge, got %d messages", len(conn.sent))
	}
}
