// Package server implements the WebSocket transport and HTTP surface for
// roomchat.
//
// The implementation is organized into specialized files for configuration,
// origin checks, clients, routing, and HTTP handlers. Room state lives in the
// relay package; this package only moves frames between sockets and the
// relay hub.
package server
