// Package ws streams preview frames over a WebSocket.
//
// Every message is {"type": string, "data": object}.
//
// Message Types (Client → Server):
//   - generate: run a prompt, data {prompt, model?, submission_id?}
//   - update: direct edit of the workspace, data {html, css, js}
//   - rendered: acknowledge a frame, data {generation}
//   - ping: keep-alive ping
//
// Message Types (Server → Client):
//   - connected: connection id and the current generation
//   - frame: a newly composed document, data {generation, trigger, document, hash}
//   - generation_start: a generate request was accepted
//   - generation_complete: the generation result
//   - updated: the revision created by an update
//   - ack: result of a rendered acknowledgement
//   - pong: reply to ping
//   - error: data {code, message}
//
// Example Usage:
//
//	handler := ws.NewHandler(generator, workspace, surface, logger)
//	router.GET("/stream", handler.HandleConnection)
package ws
