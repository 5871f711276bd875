package types

// MethodCall is one request on the channel
type MethodCall struct {
	ID     string                 `json:"id,omitempty"`
	Method string                 `json:"method"`
	Args   map[string]interface{} `json:"args,omitempty"`
}

// Reply is the single response to a MethodCall
type Reply struct {
	ID     string      `json:"id,omitempty"`
	OK     bool        `json:"ok"`
	Result *bool       `json:"result,omitempty"`
	Error  *ReplyError `json:"error,omitempty"`
}

// ReplyError carries a structured failure over the wire
type ReplyError struct {
	Code    string  `json:"code"`
	Message *string `json:"message,omitempty"`
}

// ToResult decodes a reply back into a Result
func (r Reply) ToResult() Result {
	if r.OK {
		if r.Result == nil {
			return Success(false)
		}
		return Success(*r.Result)
	}
	if r.Error == nil {
		return Fail(PlatformError, "reply carried neither result nor error")
	}
	code, ok := ParseWireCode(r.Error.Code)
	if !ok {
		code = PlatformError
	}
	var msg string
	if r.Error.Message != nil {
		msg = *r.Error.Message
	}
	return Fail(code, msg)
}

// StreamFrame is a websocket transport-level notice that is not a Reply
type StreamFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
