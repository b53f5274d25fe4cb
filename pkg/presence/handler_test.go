package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	authproviders "github.com/gridspace/gridspace/pkg/auth/providers"
	"github.com/gridspace/gridspace/pkg/messages"
	"github.com/gridspace/gridspace/pkg/rooms"
	"github.com/gridspace/gridspace/pkg/spaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type testServer struct {
	httpServer *httptest.Server
	registry   *rooms.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repository := spaces.NewInMemoryRepository()
	require.NoError(t, repository.CreateSpace(context.Background(), &spaces.Space{
		ID:        "space-1",
		Name:      "Test Space",
		Width:     10,
		Height:    10,
		CreatorID: "creator-1",
	}))
	registry := rooms.NewRegistry(rooms.NewRegistryOptions{Repository: repository})

	authProvider, err := authproviders.NewJWTAuthProvider(testSecret)
	require.NoError(t, err)

	handler := NewHandler(NewHandlerOptions{
		AuthProvider: authProvider,
		Registry:     registry,
	})

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler.HandleConnection(r.Context(), conn)
	}))
	t.Cleanup(httpServer.Close)

	return &testServer{httpServer: httpServer, registry: registry}
}

func (s *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.httpServer.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg, err := messages.New(msgType, payload)
	require.NoError(t, err)
	b, err := messages.SerializeMessage(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, b))
}

func readMessage(t *testing.T, conn *websocket.Conn) *messages.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := messages.DeserializeMessage(b)
	require.NoError(t, err)
	return msg
}

func decodeInto(t *testing.T, msg *messages.Message, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(msg.Payload, dst))
}

func join(t *testing.T, conn *websocket.Conn, spaceID, userID string) *messages.ServerSpaceJoined {
	t.Helper()
	sendMessage(t, conn, messages.MessageTypeClientJoin, &messages.ClientJoin{
		SpaceID: spaceID,
		Token:   mintToken(t, userID),
	})
	msg := readMessage(t, conn)
	require.Equal(t, messages.MessageTypeServerSpaceJoined, msg.Type)
	joined := &messages.ServerSpaceJoined{}
	decodeInto(t, msg, joined)
	return joined
}

func TestHandler_JoinHandshake(t *testing.T) {
	server := newTestServer(t)
	conn := server.dial(t)

	joined := join(t, conn, "space-1", "alice")
	assert.Equal(t, "alice", joined.UserID)
	assert.Equal(t, messages.Position{X: 0, Y: 0}, joined.Spawn)
	assert.Empty(t, joined.Users)
	assert.Equal(t, "space-1", joined.Space.ID)
	assert.Equal(t, "Test Space", joined.Space.Name)
	assert.Equal(t, 10, joined.Space.Width)
	assert.Equal(t, 10, joined.Space.Height)
	assert.Equal(t, "creator-1", joined.Space.CreatorID)
}

func TestHandler_InvalidTokenClosesConnection(t *testing.T) {
	server := newTestServer(t)
	conn := server.dial(t)

	sendMessage(t, conn, messages.MessageTypeClientJoin, &messages.ClientJoin{
		SpaceID: "space-1",
		Token:   "not-a-token",
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, server.registry.RoomCount())
}

func TestHandler_UnknownSpaceClosesConnection(t *testing.T) {
	server := newTestServer(t)
	conn := server.dial(t)

	sendMessage(t, conn, messages.MessageTypeClientJoin, &messages.ClientJoin{
		SpaceID: "no-such-space",
		Token:   mintToken(t, "alice"),
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, server.registry.RoomCount())
}

func TestHandler_MoveBeforeJoinIsDropped(t *testing.T) {
	server := newTestServer(t)
	conn := server.dial(t)

	// A move before the handshake is dropped, not queued, and does not
	// break the session: the join that follows still succeeds.
	sendMessage(t, conn, messages.MessageTypeClientMove, &messages.ClientMove{X: 5, Y: 5})

	joined := join(t, conn, "space-1", "alice")
	assert.Equal(t, messages.Position{X: 0, Y: 0}, joined.Spawn)
}

func TestHandler_UnknownTypeAfterJoinIsIgnored(t *testing.T) {
	server := newTestServer(t)
	conn := server.dial(t)

	join(t, conn, "space-1", "alice")
	sendMessage(t, conn, "wave", map[string]string{"at": "everyone"})

	// The session survives: a valid move still gets its rejection back.
	sendMessage(t, conn, messages.MessageTypeClientMove, &messages.ClientMove{X: -1, Y: 0})
	msg := readMessage(t, conn)
	assert.Equal(t, messages.MessageTypeServerMovementRejected, msg.Type)
}

// TestHandler_TwoUserSession drives two connections through a full
// join/move/reject/leave exchange. Per-connection ordering makes the
// exclusions observable: each unexpected delivery would show up in
// place of the next expected message.
func TestHandler_TwoUserSession(t *testing.T) {
	server := newTestServer(t)

	connA := server.dial(t)
	joinedA := join(t, connA, "space-1", "alice")
	assert.Equal(t, messages.Position{X: 0, Y: 0}, joinedA.Spawn)
	assert.Empty(t, joinedA.Users)

	connB := server.dial(t)
	joinedB := join(t, connB, "space-1", "bob")
	assert.Equal(t, messages.Position{X: 1, Y: 0}, joinedB.Spawn)
	require.Len(t, joinedB.Users, 1)
	assert.Equal(t, "alice", joinedB.Users[0].ID)
	assert.Equal(t, 0, joinedB.Users[0].X)
	assert.Equal(t, 0, joinedB.Users[0].Y)

	// Alice learns of bob's arrival.
	msg := readMessage(t, connA)
	require.Equal(t, messages.MessageTypeServerUserJoined, msg.Type)
	userJoined := &messages.ServerUserJoined{}
	decodeInto(t, msg, userJoined)
	assert.Equal(t, "bob", userJoined.UserID)
	assert.Equal(t, 1, userJoined.X)
	assert.Equal(t, 0, userJoined.Y)

	// Alice steps south; bob observes it.
	sendMessage(t, connA, messages.MessageTypeClientMove, &messages.ClientMove{X: 0, Y: 1})
	msg = readMessage(t, connB)
	require.Equal(t, messages.MessageTypeServerMovement, msg.Type)
	movement := &messages.ServerMovement{}
	decodeInto(t, msg, movement)
	assert.Equal(t, "alice", movement.UserID)
	assert.Equal(t, 0, movement.X)
	assert.Equal(t, 1, movement.Y)

	// Alice walks off the west edge and gets the authoritative position
	// back. This being her next message proves the accepted move above
	// was never echoed to her.
	sendMessage(t, connA, messages.MessageTypeClientMove, &messages.ClientMove{X: -1, Y: 1})
	msg = readMessage(t, connA)
	require.Equal(t, messages.MessageTypeServerMovementRejected, msg.Type)
	rejected := &messages.ServerMovementRejected{}
	decodeInto(t, msg, rejected)
	assert.Equal(t, 0, rejected.X)
	assert.Equal(t, 1, rejected.Y)

	// Another accepted step. Bob seeing it as his next message proves
	// the rejection above stayed private to alice.
	sendMessage(t, connA, messages.MessageTypeClientMove, &messages.ClientMove{X: 1, Y: 1})
	msg = readMessage(t, connB)
	require.Equal(t, messages.MessageTypeServerMovement, msg.Type)
	decodeInto(t, msg, movement)
	assert.Equal(t, "alice", movement.UserID)
	assert.Equal(t, 1, movement.X)
	assert.Equal(t, 1, movement.Y)

	// Bob drops the connection. Alice's next message being user-left
	// proves her own accepted moves never came back to her.
	require.NoError(t, connB.Close())
	msg = readMessage(t, connA)
	require.Equal(t, messages.MessageTypeServerUserLeft, msg.Type)
	userLeft := &messages.ServerUserLeft{}
	decodeInto(t, msg, userLeft)
	assert.Equal(t, "bob", userLeft.UserID)

	// Alice leaving empties the room, which is then evicted.
	require.NoError(t, connA.Close())
	assert.Eventually(t, func() bool {
		return server.registry.RoomCount() == 0
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHandler_SecondJoinIsIgnored(t *testing.T) {
	server := newTestServer(t)
	conn := server.dial(t)

	join(t, conn, "space-1", "alice")
	sendMessage(t, conn, messages.MessageTypeClientJoin, &messages.ClientJoin{
		SpaceID: "space-1",
		Token:   mintToken(t, "alice"),
	})

	// No second snapshot arrives; a rejected move is the next message.
	sendMessage(t, conn, messages.MessageTypeClientMove, &messages.ClientMove{X: 99, Y: 99})
	msg := readMessage(t, conn)
	assert.Equal(t, messages.MessageTypeServerMovementRejected, msg.Type)
}
