package internal

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/client"
	coredebug "github.com/dcrodman/otgate/internal/core/debug"
)

const frameHeaderSize = 2

// frontend implements the concurrent client connection logic.
//
// Data is read from any connected clients and passed to a backend instance, abstracting
// the lower level connection details away from the Backends.
type frontend struct {
	Address string
	Backend Backend
	Config  *core.Config
	Logger  *logrus.Logger
	// Sessions is shared by every frontend so the dispatcher can reach any client.
	Sessions *client.List
}

// Start initializes the server backend and opens a TCP socket for the specified server.
// A blocking loop for accepting client connections is spun off in its own goroutine and
// added to the WaitGroup. Context cancellations will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if err := f.Backend.Init(ctx); err != nil {
		return fmt.Errorf("error initializing %s server: %v", f.Backend.Identifier(), err)
	}

	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %v", f.Address, err)
	}

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

// createSocket opens a TCP socket to listen for client connections on the Address
// provided to the frontend.
func (f *frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address %s", err.Error())
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %s", err.Error())
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely responsible for
// accepting new connections and spinning off goroutines for the Backend to handle them.
func (f *frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Printf("[%s] waiting for connections on %v", f.Backend.Identifier(), f.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for f.Sessions.Len() >= f.Config.MaxConnections {
				time.Sleep(time.Second)
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return
				}
				f.Logger.Warnf("failed to accept connection: %s", err.Error())
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			go f.acceptClient(ctx, connection, clientWg)
		}
	}

	f.Logger.Infof("[%v] shutting down (waiting for connections to close)", f.Backend.Identifier())
	_ = socket.Close()
	clientWg.Wait()
	f.Logger.Infof("[%v] exited", f.Backend.Identifier())
}

// acceptClient takes a connection and attempts to initiate a "session" by setting up
// the Client and sending the challenge, if the Backend has one. If it succeeds, the
// goroutine moves into the message processing loop.
func (f *frontend) acceptClient(ctx context.Context, connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := client.NewClient(connection)
	f.Backend.SetUpClient(c)
	c.Debug = f.Config.Debugging.PacketLoggingEnabled

	f.Logger.Infof("[%s] accepted connection from %s", f.Backend.Identifier(), c.IPAddr())

	f.Sessions.Add(c)
	coredebug.ConnectionsActive.WithLabelValues(f.Backend.Identifier()).Inc()

	if err := f.Backend.Handshake(c); err != nil {
		f.Logger.Errorf("Handshake() failed for client %s: %s", c.IPAddr(), err)
		f.closeConnectionAndRecover(f.Backend.Identifier(), c)
		return
	}

	f.processMessages(ctx, c)
}

// processMessages starts a blocking loop dedicated to reading data sent from
// a game client and only returns once the connection has closed.
func (f *frontend) processMessages(ctx context.Context, c *client.Client) {
	defer f.closeConnectionAndRecover(f.Backend.Identifier(), c)

	// Closing the connection unblocks the read below once the server stops.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	for {
		frame, err := f.readNextFrame(c)
		if errors.Is(err, io.EOF) || c.Closed() {
			return
		} else if err != nil {
			f.Logger.Warn(err.Error())
			return
		}

		if f.Config.Debugging.PacketLoggingEnabled {
			coredebug.PrintPacket(coredebug.PrintPacketParams{
				Writer:       bufio.NewWriter(os.Stdout),
				ServerType:   fmt.Sprint(c.DebugTags["server_type"]),
				ClientPacket: true,
				Data:         frame,
			})
		}

		payload, err := c.Decode(frame)
		if err != nil {
			f.Logger.Warnf("[%s] dropping client %s: %v", f.Backend.Identifier(), c.IPAddr(), err)
			return
		}

		if err = f.Backend.Handle(ctx, c, payload); err != nil {
			f.Logger.Warn("error in client communication: " + err.Error())
			return
		}
	}
}

// closeConnectionAndRecover is the failsafe that catches any panics, disconnects the
// client, and removes them from the list regardless of the state of the connection.
func (f *frontend) closeConnectionAndRecover(serverName string, c *client.Client) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	if err := c.Close(); err != nil {
		f.Logger.Warnf("failed to close client connection: %s", err)
	}

	f.Sessions.Remove(c)
	coredebug.ConnectionsActive.WithLabelValues(serverName).Dec()
	f.Backend.Disconnect(c)

	f.Logger.Infof("[%s] disconnected client %s", serverName, c.IPAddr())
}

// readNextFrame is a blocking call that only returns once the client has
// sent the next frame. The returned body still carries its checksum and,
// once encryption is armed, is still encrypted.
func (f *frontend) readNextFrame(c *client.Client) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if err := f.readDataFromClient(c, header); err != nil {
		return nil, err
	}

	size := int(binary.LittleEndian.Uint16(header))
	if size == 0 {
		return nil, fmt.Errorf("%w: empty frame from %s", client.ErrMalformedFrame, c.IPAddr())
	}

	body := make([]byte, size)
	if err := f.readDataFromClient(c, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (f *frontend) readDataFromClient(c *client.Client, buffer []byte) error {
	received := 0

	for received < len(buffer) {
		bytesRead, err := c.Read(buffer[received:])
		received += bytesRead

		if errors.Is(err, io.EOF) {
			return io.EOF
		} else if err != nil {
			return errors.New("socket error (" + c.IPAddr() + ") " + err.Error())
		}
		if bytesRead == 0 {
			return io.EOF
		}
	}

	return nil
}
