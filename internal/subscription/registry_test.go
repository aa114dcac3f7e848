package subscription

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildcastradio/radiolink/internal/auth"
	"github.com/wildcastradio/radiolink/internal/model"
)

func noop() Handler {
	return Func(func(model.Envelope) error { return nil })
}

func TestRegistry_AddIsIdempotentPerHandler(t *testing.T) {
	r := NewRegistry()
	h := noop()

	first, added := r.Add("/topic/broadcast/1", h, auth.Credential{})
	require.True(t, added)
	assert.False(t, first.IsZero())

	again, added := r.Add("/topic/broadcast/1", h, auth.Credential{})
	assert.False(t, added)
	assert.Equal(t, first, again)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_DistinctHandlersShareTopic(t *testing.T) {
	r := NewRegistry()

	a, _ := r.Add("/topic/broadcast/1/chat", noop(), auth.Credential{})
	b, _ := r.Add("/topic/broadcast/1/chat", noop(), auth.Credential{})

	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, r.Handlers("/topic/broadcast/1/chat"), 2)
	assert.Equal(t, []string{"/topic/broadcast/1/chat"}, r.Topics())
}

func TestRegistry_SameHandlerDifferentTopics(t *testing.T) {
	r := NewRegistry()
	h := noop()

	_, addedA := r.Add("/topic/a", h, auth.Credential{})
	_, addedB := r.Add("/topic/b", h, auth.Credential{})

	assert.True(t, addedA)
	assert.True(t, addedB)
	assert.Equal(t, []string{"/topic/a", "/topic/b"}, r.Topics())
}

func TestRegistry_UnwrappedFuncsNeverDedupe(t *testing.T) {
	r := NewRegistry()
	fn := HandlerFunc(func(model.Envelope) error { return nil })

	_, first := r.Add("/topic/a", fn, auth.Credential{})
	_, second := r.Add("/topic/a", fn, auth.Credential{})

	assert.True(t, first)
	assert.True(t, second)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Add("/topic/a", noop(), auth.Credential{})
	b, _ := r.Add("/topic/a", noop(), auth.Credential{})

	empty, ok := r.Remove(a)
	assert.True(t, ok)
	assert.False(t, empty)
	assert.True(t, r.Has("/topic/a"))

	empty, ok = r.Remove(b)
	assert.True(t, ok)
	assert.True(t, empty)
	assert.False(t, r.Has("/topic/a"))
	assert.Empty(t, r.Topics())

	_, ok = r.Remove(b)
	assert.False(t, ok)
	_, ok = r.Remove(Handle{})
	assert.False(t, ok)
}

func TestRegistry_TopicOrderSurvivesRemoval(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add("/topic/a", noop(), auth.Credential{})
	mid, _ := r.Add("/topic/b", noop(), auth.Credential{})
	_, _ = r.Add("/topic/c", noop(), auth.Credential{})

	r.Remove(mid)
	assert.Equal(t, []string{"/topic/a", "/topic/c"}, r.Topics())

	_, _ = r.Add("/topic/b", noop(), auth.Credential{})
	assert.Equal(t, []string{"/topic/a", "/topic/c", "/topic/b"}, r.Topics())
}

func TestRegistry_SnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	cred := auth.Bearer("tok")
	h, _ := r.Add("/topic/a", noop(), cred)

	snap := r.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, h, snap[0].Handle)
	assert.Equal(t, cred, snap[0].Credential)

	r.Clear()
	assert.Len(t, snap, 1)
	assert.Empty(t, r.Snapshot())
	assert.Equal(t, 0, r.Len())

	handlers := r.Handlers("/topic/a")
	assert.Nil(t, handlers)
}

func TestWithParser(t *testing.T) {
	h := WithParser(noop(), func(body []byte) (any, error) {
		return string(body), nil
	})

	p, ok := h.(PayloadParser)
	require.True(t, ok)
	v, err := p.ParsePayload([]byte("raw"))
	require.NoError(t, err)
	assert.Equal(t, "raw", v)
}

func TestRegistry_ConcurrentAddRemove(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			topic := fmt.Sprintf("/topic/%d", i%5)
			h, _ := r.Add(topic, noop(), auth.Credential{})
			_ = r.Snapshot()
			if i%2 == 0 {
				r.Remove(h)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, r.Len())
	assert.Len(t, r.Topics(), 5)
}
