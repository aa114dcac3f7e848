package model

import (
	"encoding/json"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Broadcast resources
// -----------------------------------------------------------------------------

// Broadcast status values reported by the server.
const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusEnded     = "ENDED"
	StatusCancelled = "CANCELLED"
)

// User is the server's public view of an account.
type User struct {
	ID        int64  `json:"id"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
}

// DisplayName joins first and last name, falling back to the email.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.Firstname + " " + u.Lastname)
	if name == "" {
		return u.Email
	}
	return name
}

// Broadcast is the authoritative broadcast resource from GET /api/broadcasts/{id}.
type Broadcast struct {
	ID              int64      `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	StreamURL       string     `json:"streamUrl,omitempty"`
	ScheduledStart  *LocalTime `json:"scheduledStart,omitempty"`
	ScheduledEnd    *LocalTime `json:"scheduledEnd,omitempty"`
	ActualStart     *LocalTime `json:"actualStart,omitempty"`
	ActualEnd       *LocalTime `json:"actualEnd,omitempty"`
	CreatedBy       *User      `json:"createdBy,omitempty"`
	CurrentActiveDJ *User      `json:"currentActiveDJ,omitempty"`
}

// IsLive reports whether the broadcast is currently on air.
func (b Broadcast) IsLive() bool {
	return b.Status == StatusLive
}

// ActiveDJID returns the current DJ's ID, or 0 when none is assigned.
func (b Broadcast) ActiveDJID() int64 {
	if b.CurrentActiveDJ == nil {
		return 0
	}
	return b.CurrentActiveDJ.ID
}

// HandoverRequest is the body of POST /api/broadcasts/{id}/handover.
type HandoverRequest struct {
	NewDJID int64  `json:"newDJId"`
	Reason  string `json:"reason,omitempty"`
}

// Handover is the server's record of a completed handover write.
type Handover struct {
	ID              int64      `json:"id"`
	BroadcastID     int64      `json:"broadcastId"`
	PreviousDJ      *User      `json:"previousDJ,omitempty"`
	NewDJ           *User      `json:"newDJ,omitempty"`
	InitiatedBy     *User      `json:"initiatedBy,omitempty"`
	HandoverTime    *LocalTime `json:"handoverTime,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	DurationSeconds int64      `json:"durationSeconds,omitempty"`
}

// -----------------------------------------------------------------------------
// Topic payloads
// -----------------------------------------------------------------------------

// BroadcastEvent is published on /topic/broadcast/{id} and the global
// status topics.
type BroadcastEvent struct {
	Type        string          `json:"type"` // e.g. BROADCAST_STARTED, BROADCAST_ENDED, DJ_HANDOVER
	BroadcastID int64           `json:"broadcastId,omitempty"`
	Broadcast   *Broadcast      `json:"broadcast,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// ChatMessage is published on /topic/broadcast/{id}/chat.
type ChatMessage struct {
	ID          int64      `json:"id"`
	BroadcastID int64      `json:"broadcastId"`
	Content     string     `json:"content"`
	Sender      *User      `json:"sender,omitempty"`
	CreatedAt   *LocalTime `json:"createdAt,omitempty"`
}

// PollOption is one choice in a poll.
type PollOption struct {
	ID        int64  `json:"id"`
	Text      string `json:"optionText"`
	VoteCount int64  `json:"voteCount"`
}

// PollEvent is published on /topic/broadcast/{id}/polls for create, vote and
// end events.
type PollEvent struct {
	Type        string       `json:"type"` // NEW_POLL, POLL_UPDATED, POLL_RESULTS, POLL_ENDED
	PollID      int64        `json:"pollId,omitempty"`
	BroadcastID int64        `json:"broadcastId,omitempty"`
	Question    string       `json:"question,omitempty"`
	Options     []PollOption `json:"options,omitempty"`
	Active      bool         `json:"active"`
}

// Notification is delivered on /user/queue/notifications.
type Notification struct {
	ID        int64      `json:"id"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	Timestamp *LocalTime `json:"timestamp,omitempty"`
}

// -----------------------------------------------------------------------------
// Time
// -----------------------------------------------------------------------------

// localTimeLayouts are the date-time forms the server emits. The server
// serialises LocalDateTime without a zone.
var localTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// LocalTime decodes the server's zone-less timestamps as UTC.
type LocalTime struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339 and zone-less ISO-8601 strings.
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	var lastErr error
	for _, layout := range localTimeLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// MarshalJSON writes the zone-less form the server expects.
func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format("2006-01-02T15:04:05") + `"`), nil
}
