package core

import "sync/atomic"

// GameState is the lifecycle stage of the server as seen by connecting clients.
type GameState int32

const (
	GameStateStartup GameState = iota
	GameStateNormal
	GameStateMaintain
	GameStateShutdown
)

func (s GameState) String() string {
	switch s {
	case GameStateStartup:
		return "startup"
	case GameStateNormal:
		return "normal"
	case GameStateMaintain:
		return "maintain"
	case GameStateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// StateHolder publishes the current GameState. The Controller is the only writer;
// the servers read it while handling first messages.
type StateHolder struct {
	state atomic.Int32
}

func (h *StateHolder) Get() GameState {
	return GameState(h.state.Load())
}

func (h *StateHolder) Set(s GameState) {
	h.state.Store(int32(s))
}
