package main

import "fmt"

var serverOpcodes = map[string]map[byte]string{
	"login": {
		0x0A: "Disconnect",
		0x0B: "Disconnect",
		0x0C: "TokenAccepted",
		0x0D: "TokenRequired",
		0x14: "Motd",
		0x28: "SessionKey",
		0x64: "CharacterList",
	},
	"game": {
		0x14: "Disconnect",
		0x17: "Login",
		0x1D: "PingBack",
		0x1F: "Challenge",
		0x64: "MapDescription",
		0x6A: "AddThing",
		0x6C: "RemoveThing",
	},
}

var clientOpcodes = map[string]map[byte]string{
	"game": {
		0x14: "Logout",
		0x1E: "Ping",
	},
}

// opcodeName names the first opcode of a payload. Login server responses
// carry several messages back to back; only the first one is named.
func opcodeName(server string, fromClient bool, payload []byte) string {
	if len(payload) == 0 {
		return "Empty"
	}
	names := serverOpcodes[server]
	if fromClient {
		names = clientOpcodes[server]
	}
	if name, ok := names[payload[0]]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02X)", payload[0])
}
