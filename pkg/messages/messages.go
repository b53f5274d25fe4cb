package messages

import "encoding/json"

const (
	// MessageBufferSize represents the maximum size of a message
	MessageBufferSize = 1024
)

// Client -> server message types
const (
	MessageTypeClientJoin = "join"
	MessageTypeClientMove = "move"
)

// Server -> client message types
const (
	MessageTypeServerSpaceJoined      = "space-joined"
	MessageTypeServerUserJoined       = "user-joined"
	MessageTypeServerMovement         = "movement"
	MessageTypeServerMovementRejected = "movement-rejected"
	MessageTypeServerUserLeft         = "user-left"
)

// Message represents a generic wire message. The payload shape is
// determined by the type discriminator.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Position represents a grid coordinate pair.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ClientJoin requests entry into a space. The token is verified
// server-side before the join is accepted.
type ClientJoin struct {
	SpaceID string `json:"spaceId"`
	Token   string `json:"token"`
}

// ClientMove requests an absolute target position. The server
// revalidates bounds regardless of how far the target is from the
// participant's current position.
type ClientMove struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// UserSnapshot describes one participant in a space-joined snapshot.
type UserSnapshot struct {
	ID    string `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color,omitempty"`
}

// SpaceInfo carries the space metadata delivered with a snapshot.
type SpaceInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	CreatorID string `json:"creatorId"`
	MapID     string `json:"mapId,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// ServerSpaceJoined is sent to the joining session alone.
type ServerSpaceJoined struct {
	Spawn  Position       `json:"spawn"`
	UserID string         `json:"userId"`
	Users  []UserSnapshot `json:"users"`
	Space  SpaceInfo      `json:"space"`
}

// ServerUserJoined is broadcast to the sessions already in the room.
type ServerUserJoined struct {
	UserID string `json:"userId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color,omitempty"`
}

// ServerMovement is broadcast to every session except the mover.
type ServerMovement struct {
	UserID string `json:"userId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// ServerMovementRejected carries the authoritative position back to
// the session whose move was rejected.
type ServerMovementRejected struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ServerUserLeft is broadcast when a participant's session closes.
type ServerUserLeft struct {
	UserID string `json:"userId"`
}
