package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/network"
	"github.com/gridspace/gridspace/pkg/queue"
)

// RemoteUser is the client's view of another participant.
type RemoteUser struct {
	ID    string
	X     int
	Y     int
	Color string
}

// Client is the client half of the presence protocol. Movement is
// optimistic: the local position is updated before the server
// confirms, and a movement-rejected event forcibly overwrites it with
// the server's correction. Events about other participants never
// mutate the local position.
type Client struct {
	serverAddr string
	conn       *websocket.Conn
	writeLock  sync.Mutex
	eventQueue queue.Queue
	joinedChan chan *messages.ServerSpaceJoined

	stateLock sync.Mutex
	userID    string
	x         int
	y         int
	space     *messages.SpaceInfo
	users     map[string]*RemoteUser
}

type NewClientOptions struct {
	ServerAddr string
	EventQueue queue.Queue
}

// NewClient creates a new Client.
func NewClient(opts NewClientOptions) *Client {
	return &Client{
		serverAddr: opts.ServerAddr,
		eventQueue: opts.EventQueue,
		joinedChan: make(chan *messages.ServerSpaceJoined, 1),
		users:      make(map[string]*RemoteUser),
	}
}

// Connect establishes a connection to the WebSocket server.
func (c *Client) Connect() error {
	log.Info("Connecting to WebSocket server at %s", c.serverAddr)
	conn, _, err := websocket.DefaultDialer.Dial(c.serverAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %v", err)
	}
	c.conn = conn
	return nil
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Join requests entry into a space. The server's snapshot arrives via
// WaitForJoin; an invalid token or unknown space surfaces as the
// server closing the connection.
func (c *Client) Join(spaceID, token string) error {
	msg, err := messages.New(messages.MessageTypeClientJoin, &messages.ClientJoin{
		SpaceID: spaceID,
		Token:   token,
	})
	if err != nil {
		return fmt.Errorf("failed to build join message: %v", err)
	}
	return c.send(msg)
}

// WaitForJoin blocks until the space-joined snapshot arrives.
func (c *Client) WaitForJoin(ctx context.Context) (*messages.ServerSpaceJoined, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case joined := <-c.joinedChan:
		return joined, nil
	}
}

// HandleMessages reads server messages until the connection closes.
// The space-joined snapshot is applied immediately and handed to
// WaitForJoin; everything else is queued for ProcessEvents.
func (c *Client) HandleMessages(ctx context.Context) error {
	defer c.conn.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msg, err := network.ReadMessageFromWS(c.conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("Error reading WebSocket message: %v", err)
			}
			log.Trace("Connection closed for %s", c.serverAddr)
			return err
		}

		if msg.Type == messages.MessageTypeServerSpaceJoined {
			joined, err := c.applyServerMessage(msg)
			if err != nil {
				log.Error("Failed to handle space-joined: %v", err)
				continue
			}
			select {
			case c.joinedChan <- joined.(*messages.ServerSpaceJoined):
			default:
			}
			continue
		}

		if err := c.eventQueue.Enqueue(msg); err != nil {
			log.Error("Failed to enqueue message: %v", err)
		}
	}
}

// ProcessEvents drains the pending server events, applies them to the
// local state, and returns the decoded payloads for the caller.
func (c *Client) ProcessEvents() ([]interface{}, error) {
	pending, err := c.eventQueue.ReadAllMessages()
	if err != nil {
		return nil, fmt.Errorf("failed to read pending events: %v", err)
	}

	var events []interface{}
	for _, item := range pending {
		msg, ok := item.(*messages.Message)
		if !ok {
			log.Error("Failed to cast queued item to messages.Message")
			continue
		}
		event, err := c.applyServerMessage(msg)
		if err != nil {
			log.Error("Failed to apply %s event: %v", msg.Type, err)
			continue
		}
		if event != nil {
			events = append(events, event)
		}
	}
	return events, nil
}

// MoveBy applies a move optimistically and sends the absolute target
// to the server. If the server rejects it, the next movement-rejected
// event snaps the local position back.
func (c *Client) MoveBy(dx, dy int) error {
	c.stateLock.Lock()
	c.x += dx
	c.y += dy
	targetX, targetY := c.x, c.y
	c.stateLock.Unlock()

	msg, err := messages.New(messages.MessageTypeClientMove, &messages.ClientMove{
		X: targetX,
		Y: targetY,
	})
	if err != nil {
		return fmt.Errorf("failed to build move message: %v", err)
	}
	return c.send(msg)
}

// Position returns the local (optimistic) position.
func (c *Client) Position() (int, int) {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.x, c.y
}

// UserID returns the identity assigned by the join handshake.
func (c *Client) UserID() string {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	return c.userID
}

// Space returns the joined space's metadata, or nil before joining.
func (c *Client) Space() *messages.SpaceInfo {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	if c.space == nil {
		return nil
	}
	copy := *c.space
	return &copy
}

// Users returns a copy of the other participants' positions.
func (c *Client) Users() map[string]RemoteUser {
	c.stateLock.Lock()
	defer c.stateLock.Unlock()
	result := make(map[string]RemoteUser, len(c.users))
	for id, u := range c.users {
		result[id] = *u
	}
	return result
}

func (c *Client) send(msg *messages.Message) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return network.WriteMessageToWS(c.conn, msg)
}

// applyServerMessage mutates the local state for one server event and
// returns the decoded payload.
func (c *Client) applyServerMessage(msg *messages.Message) (interface{}, error) {
	switch msg.Type {
	case messages.MessageTypeServerSpaceJoined:
		joined := &messages.ServerSpaceJoined{}
		if err := decodePayload(msg, joined); err != nil {
			return nil, err
		}
		c.stateLock.Lock()
		c.userID = joined.UserID
		c.x = joined.Spawn.X
		c.y = joined.Spawn.Y
		space := joined.Space
		c.space = &space
		c.users = make(map[string]*RemoteUser, len(joined.Users))
		for _, u := range joined.Users {
			c.users[u.ID] = &RemoteUser{ID: u.ID, X: u.X, Y: u.Y, Color: u.Color}
		}
		c.stateLock.Unlock()
		return joined, nil

	case messages.MessageTypeServerUserJoined:
		userJoined := &messages.ServerUserJoined{}
		if err := decodePayload(msg, userJoined); err != nil {
			return nil, err
		}
		c.stateLock.Lock()
		if userJoined.UserID != c.userID {
			c.users[userJoined.UserID] = &RemoteUser{
				ID:    userJoined.UserID,
				X:     userJoined.X,
				Y:     userJoined.Y,
				Color: userJoined.Color,
			}
		}
		c.stateLock.Unlock()
		return userJoined, nil

	case messages.MessageTypeServerUserLeft:
		userLeft := &messages.ServerUserLeft{}
		if err := decodePayload(msg, userLeft); err != nil {
			return nil, err
		}
		c.stateLock.Lock()
		delete(c.users, userLeft.UserID)
		c.stateLock.Unlock()
		return userLeft, nil

	case messages.MessageTypeServerMovement:
		movement := &messages.ServerMovement{}
		if err := decodePayload(msg, movement); err != nil {
			return nil, err
		}
		c.stateLock.Lock()
		if movement.UserID != c.userID {
			if u, ok := c.users[movement.UserID]; ok {
				u.X = movement.X
				u.Y = movement.Y
			} else {
				// A movement event can outrun the roster entry when a
				// move lands during our own join handshake.
				c.users[movement.UserID] = &RemoteUser{ID: movement.UserID, X: movement.X, Y: movement.Y}
			}
		}
		c.stateLock.Unlock()
		return movement, nil

	case messages.MessageTypeServerMovementRejected:
		rejected := &messages.ServerMovementRejected{}
		if err := decodePayload(msg, rejected); err != nil {
			return nil, err
		}
		c.stateLock.Lock()
		c.x = rejected.X
		c.y = rejected.Y
		c.stateLock.Unlock()
		return rejected, nil

	default:
		log.Debug("Ignoring unknown server message type %s", msg.Type)
		return nil, nil
	}
}

func decodePayload(msg *messages.Message, payload interface{}) error {
	if err := json.Unmarshal(msg.Payload, payload); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %v", msg.Type, err)
	}
	return nil
}
