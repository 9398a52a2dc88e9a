// Package dashboard serves the live weather dashboard.
//
// The page and its script are embedded with go:embed, so the binary carries
// everything it needs. The script subscribes to the telemetry and events
// channels of the API WebSocket and renders the latest topic messages.
//
// For UI work the assets can be served from a directory instead, which
// avoids a rebuild after every edit. Unknown paths fall back to index.html.
package dashboard
