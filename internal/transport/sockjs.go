package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ErrWebSocketDisabled is returned when the SockJS server does not offer the
// websocket transport.
var ErrWebSocketDisabled = errors.New("sockjs server has websocket transport disabled")

// CloseError is a SockJS close frame ("c[code,reason]").
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("sockjs closed: %d %s", e.Code, e.Reason)
}

// sockJSInfo is the response of GET {base}/info.
type sockJSInfo struct {
	WebSocket    bool     `json:"websocket"`
	CookieNeeded bool     `json:"cookie_needed"`
	Origins      []string `json:"origins"`
	Entropy      int64    `json:"entropy"`
}

// NewSockJS creates a transport that speaks the SockJS WebSocket protocol.
func NewSockJS(cfg Config, logger *slog.Logger) Transport {
	c := newClient(cfg, logger, sockJSFramer{})
	httpClient := &http.Client{Timeout: cfg.HandshakeTimeout}
	c.resolve = func(ctx context.Context, header http.Header) (string, error) {
		return sockJSEndpoint(ctx, httpClient, cfg.URL, header)
	}
	return c
}

// sockJSEndpoint performs the /info handshake and returns the session's
// WebSocket URL.
func sockJSEndpoint(ctx context.Context, hc *http.Client, base string, header http.Header) (string, error) {
	infoURL, err := httpURL(base)
	if err != nil {
		return "", err
	}
	infoURL.Path = strings.TrimSuffix(infoURL.Path, "/") + "/info"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create info request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("sockjs info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sockjs info: unexpected status %d", resp.StatusCode)
	}

	var info sockJSInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("decode sockjs info: %w", err)
	}
	if !info.WebSocket {
		return "", ErrWebSocketDisabled
	}

	wsURL, err := websocketURL(base)
	if err != nil {
		return "", err
	}
	server := fmt.Sprintf("%03d", rand.IntN(1000))
	session := strings.ReplaceAll(uuid.NewString(), "-", "")
	wsURL.Path = strings.TrimSuffix(wsURL.Path, "/") + "/" + server + "/" + session + "/websocket"

	return wsURL.String(), nil
}

// sockJSFramer implements SockJS message framing.
type sockJSFramer struct{}

func (sockJSFramer) unwrap(data []byte) ([][]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case 'o', 'h':
		return nil, nil

	case 'a':
		var batch []string
		if err := json.Unmarshal(data[1:], &batch); err != nil {
			return nil, fmt.Errorf("decode sockjs array frame: %w", err)
		}
		out := make([][]byte, len(batch))
		for i, m := range batch {
			out[i] = []byte(m)
		}
		return out, nil

	case 'm':
		var m string
		if err := json.Unmarshal(data[1:], &m); err != nil {
			return nil, fmt.Errorf("decode sockjs message frame: %w", err)
		}
		return [][]byte{[]byte(m)}, nil

	case 'c':
		var raw []json.RawMessage
		if err := json.Unmarshal(data[1:], &raw); err != nil || len(raw) < 2 {
			return nil, &CloseError{Reason: string(data[1:])}
		}
		ce := &CloseError{}
		_ = json.Unmarshal(raw[0], &ce.Code)
		_ = json.Unmarshal(raw[1], &ce.Reason)
		return nil, ce
	}

	return nil, fmt.Errorf("unknown sockjs frame type %q", data[0])
}

func (sockJSFramer) wrap(data []byte) ([]byte, error) {
	return json.Marshal([]string{string(data)})
}
