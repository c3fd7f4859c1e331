package protocol

import (
	"errors"
	"fmt"
)

// Reasons a handshake can be refused. A *Rejection wraps exactly one of them.
var (
	ErrUnsupportedProtocolVersion = errors.New("unsupported protocol version")
	ErrEncryptionFailure          = errors.New("key exchange failed")
	ErrServerUnavailable          = errors.New("server unavailable")
	ErrClientBanned               = errors.New("client banned")
	ErrInvalidCredentials         = errors.New("invalid credentials")
	ErrSecondFactorRequired       = errors.New("second factor required")
	ErrFeatureDisabled            = errors.New("feature disabled")
	ErrListingStoreUnavailable    = errors.New("listing store unavailable")
	ErrInvalidAuthToken           = errors.New("invalid authentication token")
	ErrCharacterUnavailable       = errors.New("character unavailable")
	ErrInvalidChallenge           = errors.New("challenge mismatch")
)

// Rejection is a refused handshake together with the text shown to the user.
// An empty Message disconnects without telling the client anything.
type Rejection struct {
	Err     error
	Message string
}

func Reject(err error, message string) *Rejection {
	return &Rejection{Err: err, Message: message}
}

// Silent builds a Rejection that closes the connection without a message.
func Silent(err error) *Rejection {
	return &Rejection{Err: err}
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return r.Err.Error()
	}
	return fmt.Sprintf("%v: %q", r.Err, r.Message)
}

func (r *Rejection) Unwrap() error { return r.Err }

// Terminal reports whether the connection must be closed. Only a missing
// second factor leaves it open for the client to resubmit.
func (r *Rejection) Terminal() bool {
	return !errors.Is(r.Err, ErrSecondFactorRequired)
}
