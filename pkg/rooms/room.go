package rooms

import (
	"sync"

	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/spaces"
)

// Room owns the authoritative state for one space: the space metadata
// snapshot, the participant table, and the attached sessions. All
// mutations go through the room's mutex; rooms never block each other.
type Room struct {
	space *spaces.Space

	mu            sync.Mutex
	participants  map[string]*Participant
	sessions      map[string]Session
	userSessions  map[string]int
	onSendFailure func(Session)
}

func newRoom(space *spaces.Space, onSendFailure func(Session)) *Room {
	return &Room{
		space:         space,
		participants:  make(map[string]*Participant),
		sessions:      make(map[string]Session),
		userSessions:  make(map[string]int),
		onSendFailure: onSendFailure,
	}
}

// Space returns the space metadata snapshot cached at room creation.
func (r *Room) Space() *spaces.Space {
	return r.space
}

// attach registers a session and ensures a participant exists for its
// user. The returned snapshot excludes the joining user. A user with a
// session already attached keeps its existing position and color.
func (r *Room) attach(userID string, sess Session) (participant Participant, others []messages.UserSnapshot, isNewParticipant bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[userID]
	if !ok {
		x, y := r.spawnLocked()
		p = &Participant{
			UserID: userID,
			X:      x,
			Y:      y,
			Color:  colorForUser(userID),
		}
		r.participants[userID] = p
		isNewParticipant = true
	}

	r.sessions[sess.ID()] = sess
	r.userSessions[userID]++

	return *p, r.usersSnapshotLocked(userID), isNewParticipant
}

// detach removes a session. The participant is removed only when its
// last session detaches.
func (r *Room) detach(sess Session) (participantRemoved bool, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sess.ID()]; !ok {
		return false, len(r.sessions) == 0
	}
	delete(r.sessions, sess.ID())

	userID := sess.UserID()
	r.userSessions[userID]--
	if r.userSessions[userID] <= 0 {
		delete(r.userSessions, userID)
		delete(r.participants, userID)
		participantRemoved = true
	}

	return participantRemoved, len(r.sessions) == 0
}

// spawnLocked returns the lowest vacant cell in row-major order, or
// the origin if the grid is fully occupied. Callers hold r.mu.
func (r *Room) spawnLocked() (int, int) {
	occupied := make(map[int]struct{}, len(r.participants))
	for _, p := range r.participants {
		occupied[p.Y*r.space.Width+p.X] = struct{}{}
	}
	for idx := 0; idx < r.space.Width*r.space.Height; idx++ {
		if _, ok := occupied[idx]; !ok {
			return idx % r.space.Width, idx / r.space.Width
		}
	}
	return 0, 0
}

func (r *Room) usersSnapshotLocked(excludeUserID string) []messages.UserSnapshot {
	users := make([]messages.UserSnapshot, 0, len(r.participants))
	for _, p := range r.participants {
		if p.UserID == excludeUserID {
			continue
		}
		users = append(users, messages.UserSnapshot{
			ID:    p.UserID,
			X:     p.X,
			Y:     p.Y,
			Color: p.Color,
		})
	}
	return users
}

// Participants returns a copy of the current participant table.
func (r *Room) Participants() map[string]Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string]Participant, len(r.participants))
	for id, p := range r.participants {
		result[id] = *p
	}
	return result
}

// SessionIDs returns the IDs of the attached sessions.
func (r *Room) SessionIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast delivers a message to every attached session except the
// excluded one. Delivery is fire-and-forget per session: a failed send
// triggers that session's teardown and does not affect the others.
func (r *Room) Broadcast(msg *messages.Message, excludeSessionID string) {
	r.mu.Lock()
	targets := make([]Session, 0, len(r.sessions))
	for id, sess := range r.sessions {
		if id == excludeSessionID {
			continue
		}
		targets = append(targets, sess)
	}
	r.mu.Unlock()

	for _, sess := range targets {
		if err := sess.Send(msg); err != nil {
			log.Warn("Failed to send %s to session %s: %v", msg.Type, sess.ID(), err)
			if r.onSendFailure != nil {
				go r.onSendFailure(sess)
			}
		}
	}
}
