// Package auth provides the bearer credential used for REST calls and the
// STOMP session.
package auth

import (
	"fmt"
	"net/http"
	"os"
	"strings"
)

// Mode selects how the token is presented on HTTP requests.
type Mode string

const (
	ModeBearer Mode = "bearer" // Authorization: Bearer <token>
	ModeCookie Mode = "cookie" // Cookie: token=<token>
)

// CookieName is the session cookie the server issues on login.
const CookieName = "token"

// Credential is an opaque bearer token plus its presentation mode.
// The zero value is an anonymous credential.
type Credential struct {
	Token string
	Mode  Mode
}

// Bearer returns a header-mode credential.
func Bearer(token string) Credential {
	return Credential{Token: token, Mode: ModeBearer}
}

// LoadCredential builds a credential from an inline token or a token file.
// The inline token wins when both are set.
func LoadCredential(token, tokenFile string, mode Mode) (Credential, error) {
	if mode == "" {
		mode = ModeBearer
	}
	if mode != ModeBearer && mode != ModeCookie {
		return Credential{}, fmt.Errorf("unknown auth mode %q", mode)
	}

	if token == "" && tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return Credential{}, fmt.Errorf("read token file: %w", err)
		}
		token = strings.TrimSpace(string(data))
		if token == "" {
			return Credential{}, fmt.Errorf("token file %s is empty", tokenFile)
		}
	}

	return Credential{Token: token, Mode: mode}, nil
}

// IsAnonymous reports whether the credential carries no token.
func (c Credential) IsAnonymous() bool {
	return c.Token == ""
}

// Apply attaches the credential to an outgoing HTTP request.
func (c Credential) Apply(req *http.Request) {
	if c.IsAnonymous() {
		return
	}
	if c.Mode == ModeCookie {
		req.AddCookie(&http.Cookie{Name: CookieName, Value: c.Token})
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
}

// HandshakeHeader returns the headers for the WebSocket upgrade request.
// The cookie is always sent so the server's handshake interceptor can
// authenticate the socket even when the STOMP frame carries the token too.
func (c Credential) HandshakeHeader() http.Header {
	h := http.Header{}
	if c.IsAnonymous() {
		return h
	}
	h.Set("Cookie", (&http.Cookie{Name: CookieName, Value: c.Token}).String())
	if c.Mode != ModeCookie {
		h.Set("Authorization", "Bearer "+c.Token)
	}
	return h
}

// ConnectHeaders returns the STOMP CONNECT headers for this credential.
func (c Credential) ConnectHeaders() map[string]string {
	if c.IsAnonymous() {
		return nil
	}
	return map[string]string{
		"Authorization": "Bearer " + c.Token,
	}
}

// String redacts the token.
func (c Credential) String() string {
	if c.IsAnonymous() {
		return "anonymous"
	}
	tail := c.Token
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return fmt.Sprintf("%s(...%s)", c.Mode, tail)
}
