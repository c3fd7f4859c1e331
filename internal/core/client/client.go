package client

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/encryption"
)

// MaxFrameSize is the largest frame body the u16 length header can describe.
const MaxFrameSize = 0xFFFF

var (
	ErrClosed         = errors.New("client connection is closed")
	ErrMalformedFrame = errors.New("malformed frame")
	ErrFrameOversized = errors.New("frame exceeds maximum size")
)

var nextSessionID atomic.Uint64

// Client represents a user connected through a game client. Reads happen on
// the connection's own goroutine; Send may be called from any goroutine.
type Client struct {
	id         uint64
	connection net.Conn
	ipAddr     string
	port       string

	writeMu sync.Mutex
	cipher  CryptoSession
	closed  atomic.Bool

	// Protocol version negotiated in the client's first message.
	Version uint16
	// Enables hex dumps of every message sent to the client.
	Debug bool

	// Debugging information used for logging purposes.
	DebugTags map[string]interface{}
}

func NewClient(connection net.Conn) *Client {
	host, port, err := net.SplitHostPort(connection.RemoteAddr().String())
	if err != nil {
		host = connection.RemoteAddr().String()
	}

	return &Client{
		id:         nextSessionID.Add(1),
		connection: connection,
		ipAddr:     host,
		port:       port,
		DebugTags:  make(map[string]interface{}),
	}
}

// ID returns the session id, unique for the lifetime of the process.
func (c *Client) ID() uint64     { return c.id }
func (c *Client) IPAddr() string { return c.ipAddr }
func (c *Client) Port() string   { return c.port }

// Read consumes the available bytes directly the client's TCP connection.
func (c *Client) Read(b []byte) (int, error) {
	return c.connection.Read(b)
}

// Close the TCP connection. Closing an already closed client is a no-op.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.connection.Close()
}

func (c *Client) Closed() bool { return c.closed.Load() }

// ArmEncryption keys the session cipher. Every message sent or received after
// this call is XTEA encrypted.
func (c *Client) ArmEncryption(key [4]uint32) error {
	cipher, err := NewXTEACryptoSession(key)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	c.cipher = cipher
	c.writeMu.Unlock()
	return nil
}

// Encrypted reports whether the session cipher has been armed.
func (c *Client) Encrypted() bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.cipher != nil
}

// Decode turns the body of a received frame into a message payload by
// stripping the checksum and, once encryption is armed, decrypting it.
func (c *Client) Decode(body []byte) ([]byte, error) {
	if len(body) >= 4 && binary.LittleEndian.Uint32(body) == encryption.Checksum(body[4:]) {
		body = body[4:]
	}

	c.writeMu.Lock()
	cipher := c.cipher
	c.writeMu.Unlock()
	if cipher == nil {
		return body, nil
	}

	if err := cipher.Decrypt(body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if len(body) < 2 {
		return nil, ErrMalformedFrame
	}
	length := int(binary.LittleEndian.Uint16(body))
	if length > len(body)-2 {
		return nil, ErrMalformedFrame
	}
	return body[2 : 2+length], nil
}

// Send frames, encrypts and writes the message to the client.
func (c *Client) Send(msg *bytes.Writer) error {
	return c.SendBytes(msg.Bytes())
}

func (c *Client) SendBytes(payload []byte) error {
	if c.Closed() {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	frame, err := c.encode(payload)
	if err != nil {
		return err
	}
	return c.transmit(frame)
}

// encode builds the full frame: u16 length, u32 checksum and the (possibly
// encrypted) body.
func (c *Client) encode(payload []byte) ([]byte, error) {
	body := make([]byte, 0, len(payload)+16)
	if c.cipher != nil {
		body = binary.LittleEndian.AppendUint16(body, uint16(len(payload)))
		body = append(body, payload...)
		body = encryption.Pad(body)
		if err := c.cipher.Encrypt(body); err != nil {
			return nil, err
		}
	} else {
		body = append(body, payload...)
	}

	size := len(body) + 4
	if size > MaxFrameSize {
		return nil, ErrFrameOversized
	}

	frame := make([]byte, 0, size+2)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(size))
	frame = binary.LittleEndian.AppendUint32(frame, encryption.Checksum(body))
	return append(frame, body...), nil
}

// transmit writes the contents of data to the TCP connection until every byte
// has been written.
func (c *Client) transmit(data []byte) error {
	bytesSent := 0

	for bytesSent < len(data) {
		b, err := c.connection.Write(data[bytesSent:])
		if err != nil {
			return fmt.Errorf("failed to send to client %v: %w", c.IPAddr(), err)
		}
		bytesSent += b
	}

	return nil
}
