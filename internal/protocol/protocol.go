// Package protocol holds the pieces of the handshake shared by the login
// and game servers: version and state gates, ban messages, the RSA key
// exchange and the disconnect message.
package protocol

import (
	"fmt"
	"time"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/encryption"
)

// Sender delivers messages to a client and hangs up on it.
type Sender interface {
	Send(msg *bytes.Writer) error
	Close() error
}

// Conn is the part of a client connection the handshakes drive.
type Conn interface {
	Sender
	ID() uint64
	IPAddr() string
	ArmEncryption(key [4]uint32) error
}

// StateReader exposes the current lifecycle state of the server.
type StateReader interface {
	Get() core.GameState
}

// Ban is the part of a ban record shown to the banned client.
type Ban struct {
	ExpiresAt time.Time
	BannedBy  string
	Reason    string
}

const shortDateFormat = "02 Jan 2006"

// UnsupportedVersion builds the rejection for a client outside the accepted range.
func UnsupportedVersion(versionStr string) *Rejection {
	return Reject(ErrUnsupportedProtocolVersion,
		fmt.Sprintf("Only clients with protocol %s allowed!", versionStr))
}

// CheckVersion rejects versions outside the configured range.
func CheckVersion(cfg *core.Config, version uint16) *Rejection {
	if !cfg.SupportsVersion(version) {
		return UnsupportedVersion(cfg.LoginServer.ClientVersionStr)
	}
	return nil
}

// CheckGameState rejects clients while the server is starting or under
// maintenance.
func CheckGameState(state core.GameState) *Rejection {
	switch state {
	case core.GameStateStartup:
		return Reject(ErrServerUnavailable, "Gameworld is starting up. Please wait.")
	case core.GameStateMaintain:
		return Reject(ErrServerUnavailable, "Gameworld is under maintenance.\nPlease re-connect in a while.")
	}
	return nil
}

// BanMessage formats the text shown to a client whose address is banned.
func BanMessage(ban *Ban) *Rejection {
	reason := ban.Reason
	if reason == "" {
		reason = "(none)"
	}
	return Reject(ErrClientBanned, fmt.Sprintf(
		"Your IP has been banned until %s by %s.\n\nReason specified:\n%s",
		ban.ExpiresAt.Format(shortDateFormat), ban.BannedBy, reason,
	))
}

// DecryptRSA decrypts the next RSA block of r in place and consumes its
// leading zero byte.
func DecryptRSA(key *encryption.RSAKey, r *bytes.Reader) error {
	if r.Remaining() < encryption.RSABlockSize {
		return encryption.ErrDecryptionFailed
	}
	if err := key.Decrypt(r.Peek()); err != nil {
		return err
	}
	r.Skip(1)
	return nil
}

// ExchangeKeys decrypts the RSA block carrying the XTEA key and arms the
// session cipher with it.
func ExchangeKeys(key *encryption.RSAKey, r *bytes.Reader, c Conn) *Rejection {
	if err := DecryptRSA(key, r); err != nil {
		return Silent(ErrEncryptionFailure)
	}

	var xteaKey [4]uint32
	for i := range xteaKey {
		xteaKey[i] = r.GetUint32()
	}
	if r.Err() != nil {
		return Silent(ErrEncryptionFailure)
	}
	if err := c.ArmEncryption(xteaKey); err != nil {
		return Silent(ErrEncryptionFailure)
	}
	return nil
}

// Disconnect sends message with the given opcode and closes the connection.
// An empty message closes without sending anything.
func Disconnect(c Sender, opcode byte, message string) error {
	var sendErr error
	if message != "" {
		msg := bytes.NewWriter()
		msg.AddByte(opcode)
		msg.AddString(message)
		sendErr = c.Send(msg)
	}
	if err := c.Close(); err != nil && sendErr == nil {
		return err
	}
	return sendErr
}
