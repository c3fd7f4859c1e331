package login

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dcrodman/otgate/internal/core"
	"github.com/dcrodman/otgate/internal/core/auth"
	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/core/client"
	"github.com/dcrodman/otgate/internal/core/debug"
	"github.com/dcrodman/otgate/internal/dispatcher"
	"github.com/dcrodman/otgate/internal/encryption"
	"github.com/dcrodman/otgate/internal/protocol"
	"github.com/dcrodman/otgate/internal/store"
)

// ProtocolID is the byte every login hello starts with, including hellos
// resubmitted with an authenticator token.
const ProtocolID = 0x01

var ErrUnexpectedProtocol = errors.New("unexpected protocol identifier")

const (
	// Versions from this one on send a longer signature block.
	longSignatureVersion = 971
	shortSignatureSize   = 12
	longSignatureSize    = 17
)

// Oracle answers the account, ban, world and spectator queries of a login.
type Oracle interface {
	AuthenticateAccount(name, password string) (*store.Account, error)
	UpdatePremium(account *store.Account) error
	FindIPBan(ip string) (*store.Ban, error)
	Worlds() ([]store.World, error)
	Records() ([]store.Record, error)
	Casts() ([]store.Cast, error)
	MotdNumber(motd string) (uint32, error)
}

// Submitter queues continuations on the dispatcher.
type Submitter interface {
	Submit(ctx context.Context, t dispatcher.Task) error
}

type handshakeState int32

const (
	stateAwaitingHello handshakeState = iota
	stateKeyExchanged
	stateAuthenticating
	stateAuthenticated
	stateSpectatorResponse
	stateRejected
)

// session is the per-connection handshake state.
type session struct {
	state   atomic.Int32
	version atomic.Uint32
}

func (s *session) get() handshakeState     { return handshakeState(s.state.Load()) }
func (s *session) set(state handshakeState) { s.state.Store(int32(state)) }

type loginRequest struct {
	accountName  string
	password     string
	token        string
	stayLoggedIn bool
	version      uint16
}

// Server is the LOGIN server implementation. Clients connect to it with their
// credentials; it negotiates the session cipher, authenticates the account
// and answers with the world and character lists before hanging up. The
// client then opens a fresh connection to the GAME server.
type Server struct {
	Name       string
	Config     *core.Config
	Logger     *logrus.Logger
	Oracle     Oracle
	Dispatcher Submitter
	State      protocol.StateReader
	Key        *encryption.RSAKey

	sessions sync.Map
	now      func() time.Time
}

func (s *Server) Identifier() string {
	return s.Name
}

func (s *Server) Init(_ context.Context) error {
	if s.Oracle == nil || s.Dispatcher == nil || s.State == nil || s.Key == nil {
		return errors.New("login server requires an oracle, dispatcher, state and rsa key")
	}
	if s.Config.LoginServer.TokenPeriodSeconds <= 0 {
		return auth.ErrInvalidTokenPeriod
	}
	if s.now == nil {
		s.now = time.Now
	}
	return nil
}

func (s *Server) SetUpClient(c *client.Client) {
	c.DebugTags["server_type"] = "login"
}

// Handshake is a no-op since login clients send first.
func (s *Server) Handshake(c *client.Client) error {
	return nil
}

func (s *Server) Handle(ctx context.Context, c *client.Client, data []byte) error {
	return s.handleMessage(ctx, c, data)
}

// Disconnect forgets the handshake state of a closed connection.
func (s *Server) Disconnect(c *client.Client) {
	s.sessions.Delete(c.ID())
}

func (s *Server) session(id uint64) *session {
	sess, _ := s.sessions.LoadOrStore(id, &session{})
	return sess.(*session)
}

func (s *Server) handleMessage(ctx context.Context, c protocol.Conn, data []byte) error {
	sess := s.session(c.ID())
	if state := sess.get(); state != stateAwaitingHello {
		s.Logger.Debugf("[%s] ignoring message from %s in state %d", s.Name, c.IPAddr(), state)
		return nil
	}
	if len(data) == 0 || data[0] != ProtocolID {
		return ErrUnexpectedProtocol
	}

	if rej := s.handleFirstMessage(ctx, c, sess, data[1:]); rej != nil {
		s.reject(c, sess, rej)
	}
	return nil
}

// handleFirstMessage validates the client's hello, arms encryption and either
// answers directly or defers the rest of the login to the dispatcher.
func (s *Server) handleFirstMessage(ctx context.Context, c protocol.Conn, sess *session, data []byte) *protocol.Rejection {
	if s.State.Get() == core.GameStateShutdown {
		return protocol.Silent(protocol.ErrServerUnavailable)
	}

	r := bytes.NewReader(data)
	r.Skip(2) // client OS
	version := r.GetUint16()
	sess.version.Store(uint32(version))
	if version >= longSignatureVersion {
		r.Skip(longSignatureSize)
	} else {
		r.Skip(shortSignatureSize)
	}

	if int(version) <= s.Config.LoginServer.LegacyVersion {
		return protocol.UnsupportedVersion(s.Config.LoginServer.ClientVersionStr)
	}
	if r.Err() != nil {
		return protocol.Silent(r.Err())
	}

	if rej := protocol.ExchangeKeys(s.Key, r, c); rej != nil {
		return rej
	}
	sess.set(stateKeyExchanged)

	if rej := protocol.CheckVersion(s.Config, version); rej != nil {
		return rej
	}
	if rej := protocol.CheckGameState(s.State.Get()); rej != nil {
		return rej
	}
	if rej := s.checkBan(c.IPAddr()); rej != nil {
		return rej
	}

	req := loginRequest{
		accountName: r.GetString(),
		password:    r.GetString(),
		version:     version,
	}
	if r.Err() != nil {
		return protocol.Silent(r.Err())
	}

	if req.accountName == "" {
		if !s.Config.LoginServer.EnableLiveCasting {
			return protocol.Reject(protocol.ErrFeatureDisabled, "Invalid account name.")
		}
		return s.dispatch(ctx, c, sess, stateSpectatorResponse, func(out dispatcher.Output) {
			s.sendCastList(out, sess, req)
		})
	}

	if req.password == "" {
		if !s.Config.LoginServer.EnableRecord {
			return protocol.Reject(protocol.ErrFeatureDisabled, "Invalid password.")
		}
		return s.dispatch(ctx, c, sess, stateSpectatorResponse, func(out dispatcher.Output) {
			s.sendRecordList(out, sess, req)
		})
	}

	// The authenticator token and stay logged in flag live in the last RSA block.
	r.Skip(r.Len() - encryption.RSABlockSize - r.Pos())
	if r.Err() != nil || protocol.DecryptRSA(s.Key, r) != nil {
		return protocol.Reject(protocol.ErrInvalidAuthToken, "Invalid authentication token.")
	}
	req.token = r.GetString()
	req.stayLoggedIn = r.GetByte() != 0

	return s.dispatch(ctx, c, sess, stateAuthenticating, func(out dispatcher.Output) {
		s.sendCharacterList(out, sess, req)
	})
}

func (s *Server) checkBan(ip string) *protocol.Rejection {
	ban, err := s.Oracle.FindIPBan(ip)
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

// dispatch hands fn to the dispatcher. Everything that touches the Oracle
// after the ban check runs there.
func (s *Server) dispatch(ctx context.Context, c protocol.Conn, sess *session, state handshakeState, fn func(out dispatcher.Output)) *protocol.Rejection {
	sess.set(state)
	err := s.Dispatcher.Submit(ctx, dispatcher.Task{
		SessionID: c.ID(),
		Fn: func(_ context.Context, out dispatcher.Output) {
			fn(out)
		},
	})
	if err != nil {
		s.Logger.Warnf("[%s] failed to dispatch login for %s: %v", s.Name, c.IPAddr(), err)
		return protocol.Silent(protocol.ErrServerUnavailable)
	}
	return nil
}

// reject sends the rejection text, if any, and closes the connection unless
// the client is allowed to try again.
func (s *Server) reject(c protocol.Sender, sess *session, rej *protocol.Rejection) {
	debug.LoginsTotal.WithLabelValues(resultLabel(rej)).Inc()
	s.Logger.Debugf("[%s] login rejected: %v", s.Name, rej)

	if !rej.Terminal() {
		return
	}
	sess.set(stateRejected)

	version := uint16(sess.version.Load())
	if err := protocol.Disconnect(c, disconnectOpcodeFor(version), rej.Message); err != nil {
		s.Logger.Debugf("[%s] error sending disconnect: %v", s.Name, err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, protocol.ErrUnsupportedProtocolVersion):
		return "unsupported_version"
	case errors.Is(err, protocol.ErrEncryptionFailure):
		return "encryption_failure"
	case errors.Is(err, protocol.ErrServerUnavailable):
		return "unavailable"
	case errors.Is(err, protocol.ErrClientBanned):
		return "banned"
	case errors.Is(err, protocol.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, protocol.ErrSecondFactorRequired):
		return "second_factor_required"
	case errors.Is(err, protocol.ErrFeatureDisabled):
		return "feature_disabled"
	case errors.Is(err, protocol.ErrListingStoreUnavailable):
		return "listing_unavailable"
	case errors.Is(err, protocol.ErrInvalidAuthToken):
		return "invalid_token"
	default:
		return "malformed"
	}
}

// buildWorldInfo loads the MOTD revision and the world list.
func (s *Server) buildWorldInfo(accountName, password string, kind listingKind) (worldInfo, *protocol.Rejection) {
	info := worldInfo{
		motd:        s.Config.LoginServer.Motd,
		accountName: accountName,
		password:    password,
		kind:        kind,
	}

	if info.motd != "" {
		num, err := s.Oracle.MotdNumber(info.motd)
		if err != nil {
			s.Logger.Warnf("[%s] error loading motd number: %v", s.Name, err)
		}
		info.motdNum = num
	}

	worlds, err := s.Oracle.Worlds()
	if err != nil {
		if !errors.Is(err, store.ErrNoWorlds) {
			s.Logger.Errorf("[%s] error loading worlds: %v", s.Name, err)
		}
		return info, protocol.Reject(protocol.ErrListingStoreUnavailable,
			"Game Worlds not is working, please contact the server admin.")
	}
	info.worlds = worlds
	return info, nil
}

// sendCharacterList completes a regular login. It runs on the dispatcher.
func (s *Server) sendCharacterList(out dispatcher.Output, sess *session, req loginRequest) {
	account, err := s.Oracle.AuthenticateAccount(req.accountName, req.password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.Logger.Errorf("[%s] error authenticating %s: %v", s.Name, req.accountName, err)
		}
		s.reject(out, sess, protocol.Reject(protocol.ErrInvalidCredentials, "Account name or password is not correct."))
		return
	}

	msg := bytes.NewWriter()
	if account.Secret != "" {
		period := time.Duration(s.Config.LoginServer.TokenPeriodSeconds) * time.Second
		if !auth.VerifyToken(account.Secret, req.token, s.now(), period) {
			msg.AddByte(tokenRequiredOpcode)
			msg.AddByte(0)
			if err := out.Send(msg); err != nil {
				s.Logger.Debugf("[%s] error requesting second factor: %v", s.Name, err)
			}
			sess.set(stateAwaitingHello)
			s.reject(out, sess, protocol.Reject(protocol.ErrSecondFactorRequired, ""))
			return
		}
		msg.AddByte(tokenAcceptedOpcode)
		msg.AddByte(0)
	}

	if err := s.Oracle.UpdatePremium(account); err != nil {
		s.Logger.Warnf("[%s] error updating premium days of %s: %v", s.Name, account.Name, err)
	}

	info, rej := s.buildWorldInfo(req.accountName, req.password, regularListing)
	if rej != nil {
		s.reject(out, sess, rej)
		return
	}
	writeWorldInfo(msg, info)
	writeCharacterList(msg, account.Characters)
	writePremium(msg, s.Config.LoginServer.FreePremium, account.PremiumDays, s.now())

	sess.set(stateAuthenticated)
	debug.LoginsTotal.WithLabelValues("ok").Inc()
	s.finish(out, msg)
}

// sendCastList answers a spectator asking for live casts. The password is the
// spectator password and is passed on in the session key.
func (s *Server) sendCastList(out dispatcher.Output, sess *session, req loginRequest) {
	info, rej := s.buildWorldInfo("", req.password, castListing)
	if rej != nil {
		s.reject(out, sess, rej)
		return
	}

	casts, err := s.Oracle.Casts()
	if err != nil {
		s.logListingError("casts", err, store.ErrNoCasts)
		s.reject(out, sess, protocol.Reject(protocol.ErrListingStoreUnavailable, "No cast running right now."))
		return
	}

	msg := bytes.NewWriter()
	writeWorldInfo(msg, info)
	writeCastList(msg, casts)

	debug.LoginsTotal.WithLabelValues("cast_list").Inc()
	s.finish(out, msg)
}

func (s *Server) sendRecordList(out dispatcher.Output, sess *session, req loginRequest) {
	info, rej := s.buildWorldInfo(req.accountName, "", recordListing)
	if rej != nil {
		s.reject(out, sess, rej)
		return
	}

	records, err := s.Oracle.Records()
	if err != nil {
		s.logListingError("records", err, store.ErrNoRecords)
		s.reject(out, sess, protocol.Reject(protocol.ErrListingStoreUnavailable, "No Records."))
		return
	}

	msg := bytes.NewWriter()
	writeWorldInfo(msg, info)
	writeRecordList(msg, records)

	debug.LoginsTotal.WithLabelValues("record_list").Inc()
	s.finish(out, msg)
}

func (s *Server) logListingError(listing string, err, empty error) {
	if errors.Is(err, empty) {
		return
	}
	s.Logger.Errorf("[%s] error loading %s: %v", s.Name, listing, err)
}

// finish sends the response and hangs up; the game server takes it from here.
func (s *Server) finish(out protocol.Sender, msg *bytes.Writer) {
	if err := out.Send(msg); err != nil {
		s.Logger.Debugf("[%s] error sending login response: %v", s.Name, err)
	}
	if err := out.Close(); err != nil {
		s.Logger.Debugf("[%s] error closing connection: %v", s.Name, err)
	}
}
