// Package topic builds the destinations of the radio server's STOMP contract.
package topic

import (
	"strconv"
	"strings"
)

// Global topics.
const (
	BroadcastStatus   = "/topic/broadcast/status"
	BroadcastLive     = "/topic/broadcast/live"
	UserNotifications = "/user/queue/notifications"
)

const (
	broadcastPrefix = "/topic/broadcast/"
	appPrefix       = "/app/broadcast/"
)

// Broadcast returns the per-broadcast event topic.
func Broadcast(id int64) string {
	return broadcastPrefix + strconv.FormatInt(id, 10)
}

// Chat returns the chat topic of a broadcast.
func Chat(id int64) string {
	return Broadcast(id) + "/chat"
}

// Polls returns the poll topic of a broadcast.
func Polls(id int64) string {
	return Broadcast(id) + "/polls"
}

// JoinDestination is the outbound destination announcing a listener joined.
func JoinDestination(id int64) string {
	return appPrefix + strconv.FormatInt(id, 10) + "/join"
}

// LeaveDestination is the outbound destination announcing a listener left.
func LeaveDestination(id int64) string {
	return appPrefix + strconv.FormatInt(id, 10) + "/leave"
}

// ChatDestination is the outbound destination for sending a chat message.
func ChatDestination(id int64) string {
	return appPrefix + strconv.FormatInt(id, 10) + "/chat"
}

// ForBroadcast returns every per-broadcast topic for id.
func ForBroadcast(id int64) []string {
	return []string{Broadcast(id), Chat(id), Polls(id)}
}

// IsValid reports whether s is a subscribable destination.
func IsValid(s string) bool {
	if strings.ContainsAny(s, " \t\r\n\x00") {
		return false
	}
	for _, prefix := range []string{"/topic/", "/queue/", "/user/"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			return rest != ""
		}
	}
	return false
}

// BroadcastID extracts the broadcast ID from a per-broadcast topic.
func BroadcastID(s string) (int64, bool) {
	rest, ok := strings.CutPrefix(s, broadcastPrefix)
	if !ok {
		return 0, false
	}
	idPart, _, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
