package messages

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeMessage(t *testing.T) {
	msg, err := New(MessageTypeClientJoin, &ClientJoin{
		SpaceID: "space-1",
		Token:   "token-1",
	})
	require.NoError(t, err)

	b, err := SerializeMessage(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join","payload":{"spaceId":"space-1","token":"token-1"}}`, string(b))

	got, err := DeserializeMessage(b)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeClientJoin, got.Type)

	join := &ClientJoin{}
	require.NoError(t, json.Unmarshal(got.Payload, join))
	assert.Equal(t, "space-1", join.SpaceID)
}

func TestDeserializeMessage_Invalid(t *testing.T) {
	_, err := DeserializeMessage([]byte("not json"))
	assert.Error(t, err)
}

func TestUserSnapshot_OmitsEmptyColor(t *testing.T) {
	b, err := json.Marshal(UserSnapshot{ID: "alice", X: 1, Y: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"alice","x":1,"y":2}`, string(b))
}
