package protocol

import (
	"bytes"
	"fmt"
)

// Kind is the frame type byte.
type Kind byte

// Message kinds
const (
	KindCurrentState Kind = 0x01 // Device state report
	KindErrorState   Kind = 0x02 // Device error report
	KindRPCCommand   Kind = 0x03 // Client to device RPC
	KindRPCResponse  Kind = 0x04 // Device RPC result
)

// Known reports whether k is one of the kinds defined by protocol version 1.
// Anything else is carried through as an unknown kind with its raw type byte.
func (k Kind) Known() bool {
	return k >= KindCurrentState && k <= KindRPCResponse
}

// String returns a string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindCurrentState:
		return "current_state"
	case KindErrorState:
		return "error_state"
	case KindRPCCommand:
		return "rpc_command"
	case KindRPCResponse:
		return "rpc_response"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(k))
	}
}

// Message is a decoded frame: its kind and the raw payload bytes.
// Body is never nil; an empty payload is an empty slice.
type Message struct {
	Kind Kind
	Body []byte
}

// NewMessage builds a message, copying body so the caller may reuse its buffer.
func NewMessage(kind Kind, body []byte) Message {
	b := make([]byte, len(body))
	copy(b, body)
	return Message{Kind: kind, Body: b}
}

// Equal reports whether two messages carry the same kind and payload.
func (m Message) Equal(other Message) bool {
	return m.Kind == other.Kind && bytes.Equal(m.Body, other.Body)
}

func (m Message) String() string {
	return fmt.Sprintf("Message(kind=%s, body=% x)", m.Kind, m.Body)
}

// State returns the device state carried by a current-state message.
func (m Message) State() (State, bool) {
	if m.Kind != KindCurrentState || len(m.Body) < 1 {
		return 0, false
	}
	return State(m.Body[0]), true
}

// ErrorCode returns the error code carried by an error-state message.
func (m Message) ErrorCode() (ErrorCode, bool) {
	if m.Kind != KindErrorState || len(m.Body) < 1 {
		return 0, false
	}
	return ErrorCode(m.Body[0]), true
}

// RPC parses the body of an RPC command or RPC response message.
func (m Message) RPC() (RPC, error) {
	if m.Kind != KindRPCCommand && m.Kind != KindRPCResponse {
		return RPC{}, fmt.Errorf("%w: message kind %s carries no rpc", ErrMalformedRPC, m.Kind)
	}
	return ParseRPC(m.Body)
}

// State is the device provisioning state reported in current-state messages.
type State byte

const (
	StateAuthorizationRequired State = 0x01
	StateAuthorized            State = 0x02
	StateProvisioning          State = 0x03
	StateProvisioned           State = 0x04
)

func (s State) String() string {
	switch s {
	case StateAuthorizationRequired:
		return "authorization_required"
	case StateAuthorized:
		return "authorized"
	case StateProvisioning:
		return "provisioning"
	case StateProvisioned:
		return "provisioned"
	default:
		return fmt.Sprintf("state(0x%02x)", byte(s))
	}
}

// ErrorCode is the device error reported in error-state messages.
type ErrorCode byte

const (
	ErrorNone              ErrorCode = 0x00
	ErrorInvalidRPCPacket  ErrorCode = 0x01
	ErrorUnknownRPCCommand ErrorCode = 0x02
	ErrorUnableToConnect   ErrorCode = 0x03
	ErrorNotAuthorized     ErrorCode = 0x04
	ErrorUnknown           ErrorCode = 0xFF
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorNone:
		return "none"
	case ErrorInvalidRPCPacket:
		return "invalid_rpc_packet"
	case ErrorUnknownRPCCommand:
		return "unknown_rpc_command"
	case ErrorUnableToConnect:
		return "unable_to_connect"
	case ErrorNotAuthorized:
		return "not_authorized"
	case ErrorUnknown:
		return "unknown_error"
	default:
		return fmt.Sprintf("error(0x%02x)", byte(e))
	}
}

const ProtocolVersion = 1
