// Package api implements the HTTP configuration server and WebSocket event
// stream for streamdeckx.
//
// This package provides:
//   - REST endpoints to list decks, inspect buttons, restyle them and edit
//     their action sequences
//   - a manual trigger that runs a button's actions as if it were pressed
//   - an on-demand discovery pass
//   - a WebSocket hub relaying execution and attach/detach events
//   - Prometheus exposition on /metrics
//
// # Routes
//
//	GET    /api/v1/health
//	GET    /api/v1/keys
//	GET    /api/v1/decks
//	POST   /api/v1/decks/rescan
//	GET    /api/v1/decks/{serial}
//	GET    /api/v1/decks/{serial}/buttons/{position}
//	GET    /api/v1/decks/{serial}/buttons/{position}/face
//	PUT    /api/v1/decks/{serial}/buttons/{position}/{text,colors,font-size,font,background-image}
//	POST   /api/v1/decks/{serial}/buttons/{position}/actions
//	PATCH  /api/v1/decks/{serial}/buttons/{position}/actions/{id}
//	DELETE /api/v1/decks/{serial}/buttons/{position}/actions/{id}
//	POST   /api/v1/decks/{serial}/buttons/{position}/execute
//	GET    /api/v1/ws
//	GET    /metrics
//
// Errors use a single body shape, {status, code, message}. Unknown decks,
// buttons and actions answer 404; unsupported action types, unknown key
// names and invalid styles answer 400. Changes to buttons or actions that
// were never persisted answer 409.
//
// The server binds to loopback by default and has no authentication.
package api
