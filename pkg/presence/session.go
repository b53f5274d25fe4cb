package presence

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/network"
	"github.com/gridspace/gridspace/pkg/rooms"
)

// SessionState tracks a session's progression from connect to joined
// to closed.
type SessionState int

const (
	SessionStateConnected SessionState = iota
	SessionStateJoined
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateConnected:
		return "connected"
	case SessionStateJoined:
		return "joined"
	case SessionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session represents one client connection. Its user and space are
// unset until the join handshake completes.
type Session struct {
	id   string
	conn *websocket.Conn

	// writeLock serializes writes; broadcasts from other sessions'
	// goroutines and the session's own handler share the connection.
	writeLock sync.Mutex

	stateLock sync.Mutex
	state     SessionState
	userID    string
	spaceID   string
	room      *rooms.Room
}

var _ rooms.Session = &Session{}

// NewSession wraps a freshly upgraded connection.
func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		id:   uuid.NewString(),
		conn: conn,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) UserID() string {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return s.userID
}

func (s *Session) SpaceID() string {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return s.spaceID
}

func (s *Session) State() SessionState {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return s.state
}

// Room returns the room this session is attached to, or nil before
// the join completes.
func (s *Session) Room() *rooms.Room {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	return s.room
}

// bind records the session's identity once the token is verified.
func (s *Session) bind(userID, spaceID string) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	s.userID = userID
	s.spaceID = spaceID
}

// setJoined transitions the session to Joined.
func (s *Session) setJoined(room *rooms.Room) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	if s.state == SessionStateConnected {
		s.state = SessionStateJoined
		s.room = room
	}
}

// Send delivers a message on the session's connection.
func (s *Session) Send(msg *messages.Message) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return network.WriteMessageToWS(s.conn, msg)
}

// Close transitions the session to Closed and closes the underlying
// connection. Safe to call more than once.
func (s *Session) Close() error {
	s.stateLock.Lock()
	alreadyClosed := s.state == SessionStateClosed
	s.state = SessionStateClosed
	s.stateLock.Unlock()

	if alreadyClosed {
		return nil
	}
	return s.conn.Close()
}
