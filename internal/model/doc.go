// Package model defines shared data types used across the radio client.
//
// Conventions:
//   - IDs are int64, matching the server's Long identifiers
//   - Timestamps are time.Time; the server sends ISO-8601 local date-times
//   - Envelope is the only value handed to subscription handlers
package model
