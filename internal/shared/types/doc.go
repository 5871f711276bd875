// Package types provides the data structures shared by the bridge.
//
// Core Types:
//   - Command: a decoded channel request (CheckInstalled, LaunchApp)
//   - Result: exactly one outcome per Command, success bool or failure
//   - ErrorCode: closed failure taxonomy
//   - MethodCall, Reply: channel wire envelopes
//   - AppEntry: one application known to the host registry
//
// Example Usage:
//
//	cmd := types.Command{Kind: types.CommandCheckInstalled, AppID: "com.example.notes"}
//	res := types.Success(true)
//	reply := res.Reply(call.ID)
package types
