package protocol

import "encoding/json"

// Request is the envelope a client sends for one command round trip.
type Request struct {
	Command   Command         `json:"command"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	AuthToken string          `json:"authToken,omitempty"`
}

// Response is the envelope the server writes back for one round trip.
type Response struct {
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	AuthToken string `json:"authToken,omitempty"`
}

// OK builds a response with the given status and payload.
func OK(status Status, payload any) Response {
	return Response{Status: status, Payload: payload}
}

// Fail builds an error-class response with a human-readable message.
func Fail(status Status, message string) Response {
	return Response{Status: status, Message: message}
}
