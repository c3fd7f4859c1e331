package internal

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/client"
	"github.com/dcrodman/otgate/internal/encryption"
)

type recordingBackend struct {
	err error

	mu           sync.Mutex
	messages     [][]byte
	disconnected []uint64
}

func (b *recordingBackend) Identifier() string             { return "TEST" }
func (b *recordingBackend) Init(context.Context) error     { return nil }
func (b *recordingBackend) SetUpClient(*client.Client)     {}
func (b *recordingBackend) Handshake(*client.Client) error { return nil }

func (b *recordingBackend) Handle(_ context.Context, _ *client.Client, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, append([]byte(nil), data...))
	return b.err
}

func (b *recordingBackend) Disconnect(c *client.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, c.ID())
}

func frame(payload []byte, checksummed bool) []byte {
	body := payload
	if checksummed {
		body = binary.LittleEndian.AppendUint32(nil, encryption.Checksum(payload))
		body = append(body, payload...)
	}
	out := binary.LittleEndian.AppendUint16(nil, uint16(len(body)))
	return append(out, body...)
}

// runFrontend serves one piped connection and returns the game client's end
// along with a channel closed once the frontend lets go of the client.
func runFrontend(t *testing.T, backend Backend) (*frontend, *client.Client, net.Conn, <-chan struct{}) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	f := &frontend{
		Backend:  backend,
		Config:   &core.Config{MaxConnections: 10},
		Logger:   logger,
		Sessions: client.NewList(),
	}

	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close() })

	c := client.NewClient(serverConn)
	f.Sessions.Add(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.processMessages(context.Background(), c)
	}()
	return f, c, clientConn, done
}

func waitFor(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the frontend to release the client")
	}
}

func TestFrontend_Messages(t *testing.T) {
	backend := &recordingBackend{}
	f, c, conn, done := runFrontend(t, backend)

	for _, data := range [][]byte{
		frame([]byte{0x01, 'a', 'b'}, true),
		frame([]byte{0x01, 'c'}, false),
	} {
		if _, err := conn.Write(data); err != nil {
			t.Fatalf("error writing frame: %v", err)
		}
	}
	conn.Close()
	waitFor(t, done)

	want := [][]byte{{0x01, 'a', 'b'}, {0x01, 'c'}}
	if diff := cmp.Diff(want, backend.messages); diff != "" {
		t.Errorf("unexpected messages handled; diff:\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{c.ID()}, backend.disconnected); diff != "" {
		t.Errorf("expected one disconnect; diff:\n%s", diff)
	}
	if f.Sessions.Has(c.ID()) {
		t.Errorf("client should have been removed from the session list")
	}
}

func TestFrontend_BackendError(t *testing.T) {
	backend := &recordingBackend{err: errors.New("unexpected protocol identifier")}
	_, c, conn, done := runFrontend(t, backend)

	if _, err := conn.Write(frame([]byte{0x0A, 'a'}, true)); err != nil {
		t.Fatalf("error writing frame: %v", err)
	}
	waitFor(t, done)

	if len(backend.messages) != 1 {
		t.Errorf("expected one message to reach the backend, got %d", len(backend.messages))
	}
	if !c.Closed() {
		t.Errorf("expected the client to be closed")
	}
	if len(backend.disconnected) != 1 {
		t.Errorf("expected one disconnect, got %d", len(backend.disconnected))
	}
}

func TestFrontend_EmptyFrame(t *testing.T) {
	backend := &recordingBackend{}
	_, c, conn, done := runFrontend(t, backend)

	if _, err := conn.Write([]byte{0x00, 0x00}); err != nil {
		t.Fatalf("error writing frame: %v", err)
	}
	waitFor(t, done)

	if !c.Closed() {
		t.Errorf("expected the client to be closed")
	}
}
