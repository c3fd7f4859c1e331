package auth

import (
	"errors"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidTokenPeriod is returned for authenticator periods shorter than a second.
var ErrInvalidTokenPeriod = errors.New("token period must be at least one second")

// Neighbouring time steps accepted on either side of the current one.
const tokenSkew = 1

func tokenOpts(period time.Duration) (totp.ValidateOpts, error) {
	if period < time.Second {
		return totp.ValidateOpts{}, ErrInvalidTokenPeriod
	}
	return totp.ValidateOpts{
		Period:    uint(period / time.Second),
		Skew:      tokenSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}, nil
}

// GenerateToken returns the six digit authenticator code (RFC 6238) for the
// base32 encoded secret at now. An undecodable secret or an invalid period
// produces an empty token, which never matches.
func GenerateToken(secret string, now time.Time, period time.Duration) string {
	opts, err := tokenOpts(period)
	if err != nil {
		return ""
	}
	code, err := totp.GenerateCodeCustom(secret, now, opts)
	if err != nil {
		return ""
	}
	return code
}

// VerifyToken accepts token if it matches the code for the current time step
// or either neighbouring one.
func VerifyToken(secret, token string, now time.Time, period time.Duration) bool {
	if token == "" {
		return false
	}
	opts, err := tokenOpts(period)
	if err != nil {
		return false
	}
	ok, err := totp.ValidateCustom(token, secret, now, opts)
	return err == nil && ok
}
