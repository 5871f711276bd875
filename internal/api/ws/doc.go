// Package ws serves the bridge channel over a WebSocket.
//
// Each text frame from the client is a MethodCall; the server answers every
// call with exactly one Reply, in order, echoing the call id. Calls on one
// connection never overlap.
//
// Message Types (Client → Server):
//   - MethodCall: {"id", "method", "args"}
//   - ping: {"type":"ping"}
//
// Message Types (Server → Client):
//   - Reply: {"id", "ok", "result"} or {"id", "ok":false, "error"}
//   - system: sent once after the upgrade
//   - pong: answer to ping
//   - error: malformed frame; the connection stays open
//
// Example Usage:
//
//	handler := ws.NewHandler(dispatcher, ws.Options{Channel: "dingtalk_service"})
//	handler.Register(router)
package ws
