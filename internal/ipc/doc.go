// Package ipc exposes flashd control over JSON-RPC on a Unix domain
// socket. The server embeds the daemon; the client backs flashctl.
package ipc
