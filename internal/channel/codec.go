// Package channel encodes and decodes the envelopes exchanged on the bridge
// channel.
package channel

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/zou/appbridge/internal/shared/types"
)

// ErrMalformed marks a payload that is not a valid envelope
var ErrMalformed = errors.New("malformed channel message")

// api matches encoding/json behavior so replies are stable across transports.
// Numbers decode as json.Number so large integer arguments keep every digit.
var api = sonic.Config{
	EscapeHTML:       true,
	SortMapKeys:      true,
	CompactMarshaler: true,
	CopyString:       true,
	ValidateString:   true,
	UseNumber:        true,
}.Froze()

// DecodeCall parses a MethodCall. A call with an unknown or empty method is
// still well formed; the dispatcher answers it.
func DecodeCall(data []byte) (types.MethodCall, error) {
	var call types.MethodCall
	if len(data) == 0 {
		return call, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if err := api.Unmarshal(data, &call); err != nil {
		return types.MethodCall{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return call, nil
}

// EncodeCall serializes a MethodCall
func EncodeCall(call types.MethodCall) ([]byte, error) {
	return api.Marshal(call)
}

// DecodeReply parses a Reply
func DecodeReply(data []byte) (types.Reply, error) {
	var reply types.Reply
	if err := api.Unmarshal(data, &reply); err != nil {
		return types.Reply{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return reply, nil
}

// EncodeReply serializes a Reply
func EncodeReply(reply types.Reply) ([]byte, error) {
	return api.Marshal(reply)
}

// EncodeFrame serializes a transport-level stream frame
func EncodeFrame(frame types.StreamFrame) ([]byte, error) {
	return api.Marshal(frame)
}

// DecodeFrame parses a stream frame. Clients use it to tell a transport
// notice from a Reply.
func DecodeFrame(data []byte) (types.StreamFrame, error) {
	var frame types.StreamFrame
	if err := api.Unmarshal(data, &frame); err != nil {
		return types.StreamFrame{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return frame, nil
}
