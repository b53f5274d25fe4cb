package rooms

import "github.com/gridspace/gridspace/pkg/messages"

// Session is the room-facing view of one client connection. Send must
// be safe for concurrent use; a Send failure marks the connection dead
// and triggers the session's teardown path via the registry.
type Session interface {
	ID() string
	UserID() string
	Send(msg *messages.Message) error
	Close() error
}
