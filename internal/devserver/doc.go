// Package devserver is a small form backend for trying submissions locally.
//
// It accepts JSON payloads under /forms/{name}, checks them against the
// rules configured for the form and answers the way a typical API does:
// 201 or 200 with the stored record on success, 422 with per-field messages
// on validation failure. Records live in memory.
//
// The same routes are reachable over a websocket at /ws. Each request frame
// is replayed through the router and the reply is written back as a frame
// carrying the frame's ID.
package devserver
