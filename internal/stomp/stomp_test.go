package stomp

import (
	"strings"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_Subscribe(t *testing.T) {
	data, err := Encode(Subscribe("sub-1", "/topic/broadcast/7/chat"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "SUBSCRIBE\n"))
	assert.Equal(t, byte(0), data[len(data)-1])

	f, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, frame.SUBSCRIBE, f.Command)
	assert.Equal(t, "sub-1", f.Header.Get(frame.Id))
	assert.Equal(t, "/topic/broadcast/7/chat", f.Header.Get(frame.Destination))
	assert.Equal(t, "auto", f.Header.Get(frame.Ack))
}

func TestDecode_Message(t *testing.T) {
	raw := "MESSAGE\n" +
		"destination:/topic/broadcast/7\n" +
		"subscription:sub-1\n" +
		"message-id:m-1\n" +
		"content-type:application/json\n\n" +
		`{"type":"BROADCAST_STARTED"}` + "\x00"

	f, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, frame.MESSAGE, f.Command)
	assert.Equal(t, `{"type":"BROADCAST_STARTED"}`, string(f.Body))

	h := Headers(f)
	assert.Equal(t, "/topic/broadcast/7", h["destination"])
	assert.Equal(t, "m-1", h["message-id"])
}

func TestDecode_HeartBeat(t *testing.T) {
	for _, in := range []string{"\n", "\r\n", "\n\n"} {
		f, err := Decode([]byte(in))
		assert.NoError(t, err)
		assert.Nil(t, f)
	}

	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode([]byte("NOT A FRAME"))
	assert.Error(t, err)
}

func TestSend_CarriesBody(t *testing.T) {
	data, err := Encode(Send("/app/broadcast/3/join", []byte(`{}`)))
	require.NoError(t, err)

	f, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, frame.SEND, f.Command)
	assert.Equal(t, "application/json", f.Header.Get(frame.ContentType))
	assert.Equal(t, "{}", string(f.Body))
}

func TestConnect_Headers(t *testing.T) {
	f := Connect("radio.local", HeartBeat{Outgoing: 10 * time.Second, Incoming: 10 * time.Second},
		map[string]string{"Authorization": "Bearer tok"})

	assert.Equal(t, frame.CONNECT, f.Command)
	assert.Equal(t, "1.2", f.Header.Get(frame.AcceptVersion))
	assert.Equal(t, "10000,10000", f.Header.Get(frame.HeartBeat))
	assert.Equal(t, "radio.local", f.Header.Get(frame.Host))
	assert.Equal(t, "Bearer tok", f.Header.Get("Authorization"))
}

func TestDisconnect_Receipt(t *testing.T) {
	_, ok := Disconnect("").Header.Contains(frame.Receipt)
	assert.False(t, ok)
	assert.Equal(t, "r-1", Disconnect("r-1").Header.Get(frame.Receipt))
}

func TestNegotiate(t *testing.T) {
	offer := HeartBeat{Outgoing: 10 * time.Second, Incoming: 10 * time.Second}

	tests := []struct {
		name       string
		client     HeartBeat
		server     string
		wantSend   time.Duration
		wantExpect time.Duration
	}{
		{"server silent", offer, "", 0, 0},
		{"server disables", offer, "0,0", 0, 0},
		{"larger wins", offer, "20000,5000", 10 * time.Second, 20 * time.Second},
		{"client disables send", HeartBeat{Incoming: time.Second}, "1000,1000", 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send, expect, err := Negotiate(tt.client, tt.server)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSend, send)
			assert.Equal(t, tt.wantExpect, expect)
		})
	}

	_, _, err := Negotiate(offer, "fast")
	assert.Error(t, err)
}

func TestErrorText(t *testing.T) {
	f := frame.New(frame.ERROR, frame.Message, "access denied")
	assert.Equal(t, "access denied", ErrorText(f))

	f.Body = []byte("token expired\n")
	assert.Equal(t, "access denied: token expired", ErrorText(f))

	f = frame.New(frame.ERROR)
	f.Body = []byte("boom")
	assert.Equal(t, "boom", ErrorText(f))
}
