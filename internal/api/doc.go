// Package api is the REST client for the WildcastRadio backend.
//
// Every non-2xx response and every transport failure is returned as an
// *apierror.Error so callers can present it without inspecting status codes.
//
// Endpoints used:
//   - GET  /api/broadcasts/{id}
//   - GET  /api/broadcasts/{id}/current-dj
//   - POST /api/broadcasts/{id}/handover
//   - GET  /api/broadcasts/{id}/handovers
package api
