package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcastradio/radiolink/internal/model"
	"github.com/wildcastradio/radiolink/internal/topic"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"listen", "publish", "handover", "version"}, names)

	for _, flag := range []string{"config", "base-url", "token", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "radiolink "))
}

func TestListenTopics(t *testing.T) {
	t.Run("broadcast expands and dedups", func(t *testing.T) {
		got, err := listenTopics(&listenOptions{
			broadcasts: []int64{42, 42},
			topics:     []string{topic.Chat(42)},
			global:     true,
		})
		require.NoError(t, err)

		want := append(topic.ForBroadcast(42), topic.BroadcastStatus, topic.BroadcastLive)
		assert.Equal(t, want, got)
	})

	t.Run("notifications only", func(t *testing.T) {
		got, err := listenTopics(&listenOptions{notifications: true})
		require.NoError(t, err)
		assert.Equal(t, []string{topic.UserNotifications}, got)
	})

	t.Run("invalid broadcast id", func(t *testing.T) {
		_, err := listenTopics(&listenOptions{broadcasts: []int64{0}})
		assert.ErrorContains(t, err, "invalid broadcast id")
	})

	t.Run("invalid topic", func(t *testing.T) {
		_, err := listenTopics(&listenOptions{topics: []string{"/queue/nope"}})
		assert.ErrorContains(t, err, "invalid topic")
	})

	t.Run("nothing requested", func(t *testing.T) {
		_, err := listenTopics(&listenOptions{})
		assert.ErrorContains(t, err, "nothing to listen to")
	})
}

func TestPrinter(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

	t.Run("text uses typed summary", func(t *testing.T) {
		var buf bytes.Buffer
		p, err := newPrinter("text", &buf)
		require.NoError(t, err)

		env := model.Envelope{
			Topic:      topic.Chat(42),
			ReceivedAt: at,
			Body:       []byte(`{"content":"hi"}`),
			Payload:    &model.ChatMessage{Content: "hi"},
		}
		require.NoError(t, p.print(env))
		assert.Equal(t, "12:30:00 /topic/broadcast/42/chat anonymous: hi\n", buf.String())
	})

	t.Run("json embeds body", func(t *testing.T) {
		var buf bytes.Buffer
		p, err := newPrinter("json", &buf)
		require.NoError(t, err)

		require.NoError(t, p.print(model.Envelope{Topic: "/topic/x", ReceivedAt: at, Body: []byte(`{"a":1}`)}))
		require.NoError(t, p.print(model.Envelope{Topic: "/topic/x", ReceivedAt: at, Body: []byte("plain")}))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		var first, second struct {
			Topic   string          `json:"topic"`
			Payload json.RawMessage `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		assert.JSONEq(t, `{"a":1}`, string(first.Payload))
		assert.Equal(t, `"plain"`, string(second.Payload))
	})

	t.Run("none prints nothing", func(t *testing.T) {
		var buf bytes.Buffer
		p, err := newPrinter("none", &buf)
		require.NoError(t, err)
		require.NoError(t, p.print(model.Envelope{Topic: "/topic/x", Body: []byte("{}")}))
		assert.Empty(t, buf.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := newPrinter("yaml", nil)
		assert.Error(t, err)
	})
}

func TestSummary_Untyped(t *testing.T) {
	assert.Equal(t, "null", summary(model.Envelope{}))
	assert.Equal(t, `{"x":1}`, summary(model.Envelope{Body: []byte(`{"x":1}`)}))
}

func TestPublishOptions_Resolve(t *testing.T) {
	dest, body, err := (&publishOptions{chat: 42, body: `{"content":"hi"}`}).resolve()
	require.NoError(t, err)
	assert.Equal(t, topic.ChatDestination(42), dest)
	assert.JSONEq(t, `{"content":"hi"}`, string(body))

	dest, _, err = (&publishOptions{destination: "/app/broadcast/42/join", body: "{}"}).resolve()
	require.NoError(t, err)
	assert.Equal(t, "/app/broadcast/42/join", dest)

	_, _, err = (&publishOptions{body: "{}"}).resolve()
	assert.ErrorContains(t, err, "required")

	_, _, err = (&publishOptions{destination: "/app/x", chat: 1, body: "{}"}).resolve()
	assert.ErrorContains(t, err, "mutually exclusive")

	_, _, err = (&publishOptions{destination: "/topic/x", body: "{}"}).resolve()
	assert.ErrorContains(t, err, "must start with /app/")

	_, _, err = (&publishOptions{chat: 1, body: "{"}).resolve()
	assert.ErrorContains(t, err, "valid JSON")
}

func TestHandoverCommand(t *testing.T) {
	var gotReq model.HandoverRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/broadcasts/42/handover":
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			_, _ = w.Write([]byte(`{"id":99,"broadcastId":42}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/broadcasts/42":
			_, _ = w.Write([]byte(`{"id":42,"status":"LIVE","currentActiveDJ":{"id":7}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{
		"handover", "--base-url", srv.URL, "--log-level", "error",
		"--broadcast", "42", "--dj", "7", "--reason", "shift change", "--json",
	})

	require.NoError(t, root.Execute())

	var report handoverReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, handoverReport{HandoverID: 99, Confirmed: true, Attempts: 1, ActiveDJ: 7}, report)
	assert.Equal(t, int64(7), gotReq.NewDJID)
	assert.Equal(t, "shift change", gotReq.Reason)
}

func TestHandoverCommand_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"Access denied"}`))
	}))
	defer srv.Close()

	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{
		"handover", "--base-url", srv.URL, "--log-level", "error",
		"--broadcast", "42", "--dj", "7",
	})

	err := root.Execute()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "403")
}
