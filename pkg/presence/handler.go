package presence

import (
	"context"
	"encoding/json"

	"github.com/gorilla/websocket"
	authproviders "github.com/gridspace/gridspace/pkg/auth/providers"
	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/network"
	"github.com/gridspace/gridspace/pkg/rooms"
	"github.com/gridspace/gridspace/pkg/spaces"
)

// Handler drives the presence protocol for each connection: the join
// handshake, move dispatch to the movement authority, and teardown.
type Handler struct {
	authProvider authproviders.AuthProvider
	registry     *rooms.Registry
}

type NewHandlerOptions struct {
	AuthProvider authproviders.AuthProvider
	Registry     *rooms.Registry
}

// NewHandler creates a new Handler.
func NewHandler(opts NewHandlerOptions) *Handler {
	return &Handler{
		authProvider: opts.AuthProvider,
		registry:     opts.Registry,
	}
}

// HandleConnection owns one connection for its lifetime. Any exit,
// clean or not, detaches the session from its room and broadcasts the
// departure.
func (h *Handler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	sess := NewSession(conn)
	defer func() {
		h.registry.Leave(sess)
		if err := sess.Close(); err != nil {
			log.Trace("Failed to close session %s: %v", sess.ID(), err)
		}
		log.Debug("Session %s closed", sess.ID())
	}()

	for {
		msg, err := network.ReadMessageFromWS(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading WebSocket message for session %s: %v", sess.ID(), err)
			}
			log.Trace("Connection closed for session %s", sess.ID())
			return
		}

		if closeSession := h.handleMessage(ctx, sess, msg); closeSession {
			return
		}
	}
}

// handleMessage dispatches one inbound message according to the
// session's state. The returned flag requests session teardown.
func (h *Handler) handleMessage(ctx context.Context, sess *Session, msg *messages.Message) bool {
	switch sess.State() {
	case SessionStateConnected:
		if msg.Type != messages.MessageTypeClientJoin {
			// Only join is processed before the handshake completes.
			// Anything that arrives earlier is dropped, not queued.
			log.Warn("Session %s sent %s before joining, dropping", sess.ID(), msg.Type)
			return false
		}
		return h.handleJoin(ctx, sess, msg)
	case SessionStateJoined:
		switch msg.Type {
		case messages.MessageTypeClientMove:
			h.handleMove(sess, msg)
		case messages.MessageTypeClientJoin:
			log.Warn("Session %s sent join but is already joined, ignoring", sess.ID())
		default:
			// Unknown types are ignored for forward compatibility.
			log.Debug("Session %s sent unknown message type %s, ignoring", sess.ID(), msg.Type)
		}
		return false
	default:
		return true
	}
}

func (h *Handler) handleJoin(ctx context.Context, sess *Session, msg *messages.Message) bool {
	join := &messages.ClientJoin{}
	if err := json.Unmarshal(msg.Payload, join); err != nil {
		log.Warn("Session %s sent malformed join payload: %v", sess.ID(), err)
		return true
	}

	claims, err := h.authProvider.VerifyToken(ctx, join.Token)
	if err != nil {
		log.Warn("Session %s failed token verification: %v", sess.ID(), err)
		return true
	}

	sess.bind(claims.UID, join.SpaceID)

	result, err := h.registry.Join(ctx, join.SpaceID, claims.UID, sess)
	if err != nil {
		if spaces.IsNotFound(err) {
			log.Warn("Session %s tried to join unknown space %s", sess.ID(), join.SpaceID)
		} else {
			log.Error("Failed to join session %s to space %s: %v", sess.ID(), join.SpaceID, err)
		}
		return true
	}

	sess.setJoined(result.Room)

	spaceJoined, err := messages.New(messages.MessageTypeServerSpaceJoined, &messages.ServerSpaceJoined{
		Spawn:  result.Spawn,
		UserID: claims.UID,
		Users:  result.Users,
		Space:  result.Space,
	})
	if err != nil {
		log.Error("Failed to build space-joined message: %v", err)
		return true
	}
	if err := sess.Send(spaceJoined); err != nil {
		log.Warn("Failed to send space-joined to session %s: %v", sess.ID(), err)
		return true
	}

	log.Info("User %s joined space %s as session %s", claims.UID, join.SpaceID, sess.ID())
	return false
}

func (h *Handler) handleMove(sess *Session, msg *messages.Message) {
	move := &messages.ClientMove{}
	if err := json.Unmarshal(msg.Payload, move); err != nil {
		log.Warn("Session %s sent malformed move payload: %v", sess.ID(), err)
		return
	}

	room := sess.Room()
	if room == nil {
		return
	}

	result, ok := room.ApplyMove(sess.UserID(), move.X, move.Y)
	if !ok {
		// No participant for this user: a protocol error, not a
		// reconciliation case. Dropped without a correction.
		log.Warn("Session %s sent move without a participant, dropping", sess.ID())
		return
	}

	if !result.Accepted {
		rejected, err := messages.New(messages.MessageTypeServerMovementRejected, &messages.ServerMovementRejected{
			X: result.X,
			Y: result.Y,
		})
		if err != nil {
			log.Error("Failed to build movement-rejected message: %v", err)
			return
		}
		if err := sess.Send(rejected); err != nil {
			log.Warn("Failed to send movement-rejected to session %s: %v", sess.ID(), err)
		}
		return
	}

	movement, err := messages.New(messages.MessageTypeServerMovement, &messages.ServerMovement{
		UserID: sess.UserID(),
		X:      result.X,
		Y:      result.Y,
	})
	if err != nil {
		log.Error("Failed to build movement message: %v", err)
		return
	}
	// The mover gets no echo; its own optimistic state already
	// reflects the accepted move.
	room.Broadcast(movement, sess.ID())
}
