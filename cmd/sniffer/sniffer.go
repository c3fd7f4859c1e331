package main

import (
	"bufio"
	"encoding/binary"
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/dcrodman/otgate/internal/core/bytes"
	"github.com/dcrodman/otgate/internal/core/debug"
	"github.com/dcrodman/otgate/internal/encryption"
	"github.com/dcrodman/otgate/internal/protocol"
)

const (
	loginProtocolID = 0x01
	// Bytes between the version and the RSA block of each first message.
	loginSignatureSize     = 17
	loginLegacySignature   = 12
	loginLongSignatureFrom = 971
	gameClientInfoSize     = 7
)

// conversation is one client connection to one of the servers.
type conversation struct {
	server string
	// Bytes received but not yet split into frames, per direction.
	clientBuffer []byte
	serverBuffer []byte
	cipher       *encryption.XTEA
}

// frame is a decoded message as shown in verbose mode. FirstMessage marks the
// client hello carrying the session key.
type frame struct {
	Server       string
	FromClient   bool
	Checksum     bool
	Encrypted    bool
	FirstMessage bool
	Opcode       string
	Payload      []byte
}

type sniffer struct {
	Writer  *bufio.Writer
	Verbose bool

	key           *encryption.RSAKey
	loginPort     uint16
	gamePort      uint16
	conversations map[string]*conversation
}

func newSniffer(w *bufio.Writer, key *encryption.RSAKey, loginPort, gamePort uint16) *sniffer {
	return &sniffer{
		Writer:        w,
		key:           key,
		loginPort:     loginPort,
		gamePort:      gamePort,
		conversations: make(map[string]*conversation),
	}
}

// handleSegment buffers a TCP payload and prints every frame it completes.
func (s *sniffer) handleSegment(srcIP string, srcPort uint16, dstIP string, dstPort uint16, payload []byte) {
	var (
		fromClient bool
		server     string
		clientAddr string
	)
	switch {
	case dstPort == s.loginPort || dstPort == s.gamePort:
		fromClient, server, clientAddr = true, s.serverName(dstPort), fmt.Sprintf("%s:%d", srcIP, srcPort)
	case srcPort == s.loginPort || srcPort == s.gamePort:
		server, clientAddr = s.serverName(srcPort), fmt.Sprintf("%s:%d", dstIP, dstPort)
	default:
		return
	}

	key := server + "/" + clientAddr
	conv, ok := s.conversations[key]
	if !ok {
		conv = &conversation{server: server}
		s.conversations[key] = conv
	}

	buffer := &conv.serverBuffer
	if fromClient {
		buffer = &conv.clientBuffer
	}
	*buffer = append(*buffer, payload...)

	for len(*buffer) >= 2 {
		size := int(binary.LittleEndian.Uint16(*buffer))
		if len(*buffer) < 2+size {
			break
		}
		body := append([]byte(nil), (*buffer)[2:2+size]...)
		*buffer = (*buffer)[2+size:]
		s.emit(s.decode(conv, fromClient, body))
	}
}

func (s *sniffer) serverName(port uint16) string {
	if port == s.loginPort {
		return "login"
	}
	return "game"
}

func (s *sniffer) decode(conv *conversation, fromClient bool, body []byte) frame {
	f := frame{Server: conv.server, FromClient: fromClient}

	if len(body) >= 4 && binary.LittleEndian.Uint32(body) == encryption.Checksum(body[4:]) {
		f.Checksum = true
		body = body[4:]
	}

	switch {
	case conv.cipher != nil && len(body)%encryption.BlockSize == 0:
		plain := append([]byte(nil), body...)
		if err := conv.cipher.Decrypt(plain); err != nil {
			break
		}
		f.Encrypted = true
		if len(plain) >= 2 {
			if n := int(binary.LittleEndian.Uint16(plain)); n <= len(plain)-2 {
				plain = plain[2 : 2+n]
			}
		}
		body = plain
	case fromClient && conv.cipher == nil:
		f.FirstMessage = true
		body = s.recoverKey(conv, body)
	}

	f.Payload = body
	if f.FirstMessage {
		f.Opcode = "FirstMessage"
	} else {
		f.Opcode = opcodeName(conv.server, fromClient, body)
	}
	return f
}

// recoverKey decrypts the RSA block of a first message and arms the
// conversation's cipher with the key inside it. The returned payload has the
// block decrypted.
func (s *sniffer) recoverKey(conv *conversation, body []byte) []byte {
	payload := append([]byte(nil), body...)
	if conv.server == "login" && len(payload) > 0 && payload[0] == loginProtocolID {
		payload = payload[1:]
	}

	r := bytes.NewReader(payload)
	r.Skip(2)
	version := r.GetUint16()
	switch {
	case conv.server == "game":
		r.Skip(gameClientInfoSize)
	case version >= loginLongSignatureFrom:
		r.Skip(loginSignatureSize)
	default:
		r.Skip(loginLegacySignature)
	}
	if r.Err() != nil || protocol.DecryptRSA(s.key, r) != nil {
		return payload
	}

	var key [4]uint32
	for i := range key {
		key[i] = r.GetUint32()
	}
	if r.Err() != nil {
		return payload
	}
	cipher, err := encryption.NewXTEA(key)
	if err != nil {
		return payload
	}
	conv.cipher = cipher
	_, _ = fmt.Fprintf(s.Writer, "[%s] recovered session key %08x %08x %08x %08x\n",
		conv.server, key[0], key[1], key[2], key[3])
	return payload
}

func (s *sniffer) emit(f frame) {
	_, _ = fmt.Fprintf(s.Writer, "%s\n", f.Opcode)
	debug.PrintPacket(debug.PrintPacketParams{
		Writer:       s.Writer,
		ServerType:   f.Server,
		ClientPacket: f.FromClient,
		FirstMessage: f.FirstMessage,
		Data:         f.Payload,
	})
	if s.Verbose {
		_, _ = s.Writer.WriteString(spew.Sdump(f))
		_ = s.Writer.Flush()
	}
}
