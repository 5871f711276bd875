// Package bridge implements the host side of the command channel.
//
// A Dispatcher decodes (method, args) into a types.Command, runs it against
// the registry adapter under a bounded wait, and turns every outcome,
// including adapter errors and panics, into exactly one types.Result.
package bridge
