package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcast_DecodeServerPayload(t *testing.T) {
	payload := `{
		"id": 42,
		"title": "Morning Show",
		"status": "LIVE",
		"actualStart": "2025-03-01T08:00:00",
		"scheduledEnd": "2025-03-01T10:00:00.123",
		"createdBy": {"id": 1, "firstname": "Ada", "lastname": "Lovelace"},
		"currentActiveDJ": {"id": 7, "email": "dj@example.com"}
	}`

	var b Broadcast
	require.NoError(t, json.Unmarshal([]byte(payload), &b))

	assert.Equal(t, int64(42), b.ID)
	assert.True(t, b.IsLive())
	assert.Equal(t, int64(7), b.ActiveDJID())
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC), b.ActualStart.Time)
	assert.Equal(t, 123*time.Millisecond, time.Duration(b.ScheduledEnd.Nanosecond()))
	assert.Equal(t, "Ada Lovelace", b.CreatedBy.DisplayName())
	assert.Equal(t, "dj@example.com", b.CurrentActiveDJ.DisplayName())
}

func TestBroadcast_NoActiveDJ(t *testing.T) {
	assert.Equal(t, int64(0), Broadcast{}.ActiveDJID())
}

func TestLocalTime_NullAndInvalid(t *testing.T) {
	var lt LocalTime
	require.NoError(t, json.Unmarshal([]byte(`null`), &lt))
	assert.True(t, lt.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &lt))
}

func TestLocalTime_MarshalRoundTrip(t *testing.T) {
	in := LocalTime{time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `"2025-01-02T03:04:05"`, string(data))

	data, err = json.Marshal(LocalTime{})
	require.NoError(t, err)
	assert.Equal(t, `null`, string(data))
}

func TestEnvelope_Decode(t *testing.T) {
	env := Envelope{
		Topic:   "/topic/broadcast/1/chat",
		Body:    []byte(`{"id":3,"broadcastId":1,"content":"hi"}`),
		Headers: map[string]string{"message-id": "m-1"},
	}

	var msg ChatMessage
	require.NoError(t, env.Decode(&msg))
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "m-1", env.Header("message-id"))
	assert.Equal(t, "", env.Header("missing"))

	bad := Envelope{Topic: "/topic/x", Body: []byte("{")}
	err := bad.Decode(&msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/topic/x")
}
