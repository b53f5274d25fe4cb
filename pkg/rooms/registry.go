package rooms

import (
	"context"
	"fmt"
	"sync"

	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/spaces"
)

// Registry is the sole owner of the space id -> room mapping. Rooms
// are created on first join and evicted when their last session
// leaves; room state is ephemeral and never persisted.
type Registry struct {
	repository spaces.Repository

	mu           sync.Mutex
	rooms        map[string]*Room
	sessionRooms map[string]string
}

type NewRegistryOptions struct {
	Repository spaces.Repository
}

// NewRegistry creates a new Registry.
func NewRegistry(opts NewRegistryOptions) *Registry {
	return &Registry{
		repository:   opts.Repository,
		rooms:        make(map[string]*Room),
		sessionRooms: make(map[string]string),
	}
}

// JoinResult is the snapshot handed to a joining session, taken at the
// instant of joining.
type JoinResult struct {
	Room  *Room
	Spawn messages.Position
	Color string
	Users []messages.UserSnapshot
	Space messages.SpaceInfo
}

// Join attaches a session to the room for the given space, creating
// the room on first reference. The space metadata lookup may suspend
// the joining session but holds no registry or room locks while it is
// in flight. The joiner's own entry is returned inline; the sessions
// already in the room are sent a user-joined event instead.
func (reg *Registry) Join(ctx context.Context, spaceID, userID string, sess Session) (*JoinResult, error) {
	space, err := reg.repository.GetSpace(ctx, spaceID)
	if err != nil {
		if spaces.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up space %s: %v", spaceID, err)
	}

	reg.mu.Lock()
	room, ok := reg.rooms[spaceID]
	if !ok {
		room = newRoom(space, reg.handleSendFailure)
		reg.rooms[spaceID] = room
		log.Debug("Created room for space %s", spaceID)
	}
	reg.sessionRooms[sess.ID()] = spaceID
	reg.mu.Unlock()

	participant, others, isNewParticipant := room.attach(userID, sess)

	if isNewParticipant {
		userJoined, err := messages.New(messages.MessageTypeServerUserJoined, &messages.ServerUserJoined{
			UserID: participant.UserID,
			X:      participant.X,
			Y:      participant.Y,
			Color:  participant.Color,
		})
		if err != nil {
			log.Error("Failed to build user-joined message: %v", err)
		} else {
			room.Broadcast(userJoined, sess.ID())
		}
	}

	return &JoinResult{
		Room:  room,
		Spawn: messages.Position{X: participant.X, Y: participant.Y},
		Color: participant.Color,
		Users: others,
		Space: messages.SpaceInfo{
			ID:        space.ID,
			Name:      space.Name,
			Width:     space.Width,
			Height:    space.Height,
			CreatorID: space.CreatorID,
			MapID:     space.MapID,
			Thumbnail: space.Thumbnail,
		},
	}, nil
}

// Leave detaches a session from its room, removes its participant if
// this was the user's last session, broadcasts the departure, and
// evicts the room when it becomes empty. Leave is idempotent.
func (reg *Registry) Leave(sess Session) {
	reg.mu.Lock()
	spaceID, ok := reg.sessionRooms[sess.ID()]
	if !ok {
		reg.mu.Unlock()
		return
	}
	delete(reg.sessionRooms, sess.ID())
	room := reg.rooms[spaceID]
	reg.mu.Unlock()

	if room == nil {
		return
	}

	participantRemoved, empty := room.detach(sess)

	if participantRemoved {
		userLeft, err := messages.New(messages.MessageTypeServerUserLeft, &messages.ServerUserLeft{
			UserID: sess.UserID(),
		})
		if err != nil {
			log.Error("Failed to build user-left message: %v", err)
		} else {
			room.Broadcast(userLeft, sess.ID())
		}
	}

	if empty {
		reg.mu.Lock()
		if current, ok := reg.rooms[spaceID]; ok && current == room && !reg.hasSessionsLocked(spaceID) && len(room.SessionIDs()) == 0 {
			delete(reg.rooms, spaceID)
			log.Debug("Evicted empty room for space %s", spaceID)
		}
		reg.mu.Unlock()
	}
}

// hasSessionsLocked reports whether any session is registered against
// the space, including joins that have not finished attaching yet.
// Callers hold reg.mu.
func (reg *Registry) hasSessionsLocked(spaceID string) bool {
	for _, id := range reg.sessionRooms {
		if id == spaceID {
			return true
		}
	}
	return false
}

// RoomCount returns the number of live rooms.
func (reg *Registry) RoomCount() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// handleSendFailure tears down a session whose connection went dead
// mid-broadcast. The teardown runs off the broadcasting goroutine so a
// dead session never stalls delivery to its siblings.
func (reg *Registry) handleSendFailure(sess Session) {
	reg.Leave(sess)
	if err := sess.Close(); err != nil {
		log.Trace("Failed to close session %s: %v", sess.ID(), err)
	}
}
