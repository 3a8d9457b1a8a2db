package bot

import (
	"sync"
	"time"
)

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
)

// ConnectionInfo is a snapshot of the transport link for the admin server.
type ConnectionInfo struct {
	Status      Status     `json:"status"`
	Identity    string     `json:"identity,omitempty"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// ConnectionState holds the current transport link status. It is owned by
// the dispatcher and handed to whoever needs to read it, rather than living
// in package-level variables.
type ConnectionState struct {
	mu   sync.Mutex
	info ConnectionInfo
}

func NewConnectionState() *ConnectionState {
	return &ConnectionState{info: ConnectionInfo{Status: StatusClosed}}
}

func (s *ConnectionState) SetStatus(status Status, identity string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.info.Status = status
	if identity != "" {
		s.info.Identity = identity
	}

	switch status {
	case StatusOpen:
		now := time.Now()
		s.info.ConnectedAt = &now
		s.info.LastLogin = &now
	case StatusClosed:
		s.info.ConnectedAt = nil
	}
}

func (s *ConnectionState) Info() ConnectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}
