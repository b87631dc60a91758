package protocol

import (
	"errors"
	"fmt"
)

// RPC payload layout: [1 byte command][1 byte data length][data]
// where data is a sequence of [1 byte length][string] fields.

// RPC commands
const (
	RPCSendWiFiSettings       = 0x01 // ssid, password
	RPCRequestCurrentState    = 0x02
	RPCRequestDeviceInfo      = 0x03
	RPCRequestScannedNetworks = 0x04
)

var ErrMalformedRPC = errors.New("protocol: malformed rpc payload")

// RPC is a decoded RPC command or RPC result.
type RPC struct {
	Command byte
	Args    []string
}

// EncodeRPC builds the payload of an RPC command or result.
func EncodeRPC(command byte, args ...string) ([]byte, error) {
	dataLen := 0
	for _, arg := range args {
		if len(arg) > MaxPayloadSize {
			return nil, fmt.Errorf("%w: rpc field of %d bytes", ErrPayloadTooLarge, len(arg))
		}
		dataLen += 1 + len(arg)
	}
	// command + data length + data must still fit into one frame
	if dataLen+2 > MaxPayloadSize {
		return nil, fmt.Errorf("%w: rpc data of %d bytes", ErrPayloadTooLarge, dataLen)
	}

	payload := make([]byte, 0, dataLen+2)
	payload = append(payload, command, byte(dataLen))
	for _, arg := range args {
		payload = append(payload, byte(len(arg)))
		payload = append(payload, arg...)
	}
	return payload, nil
}

// ParseRPC decodes an RPC payload.
func ParseRPC(body []byte) (RPC, error) {
	if len(body) < 2 {
		return RPC{}, fmt.Errorf("%w: %d bytes", ErrMalformedRPC, len(body))
	}

	rpc := RPC{Command: body[0], Args: []string{}}
	dataLen := int(body[1])
	if len(body) < 2+dataLen {
		return RPC{}, fmt.Errorf("%w: data length %d exceeds payload", ErrMalformedRPC, dataLen)
	}

	data := body[2 : 2+dataLen]
	for len(data) > 0 {
		n := int(data[0])
		if len(data) < 1+n {
			return RPC{}, fmt.Errorf("%w: field length %d exceeds data", ErrMalformedRPC, n)
		}
		rpc.Args = append(rpc.Args, string(data[1:1+n]))
		data = data[1+n:]
	}
	return rpc, nil
}

// NewRPCCommand builds an RPC command message.
func NewRPCCommand(command byte, args ...string) (Message, error) {
	payload, err := EncodeRPC(command, args...)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindRPCCommand, Body: payload}, nil
}

// NewRPCResponse builds an RPC result message.
func NewRPCResponse(command byte, args ...string) (Message, error) {
	payload, err := EncodeRPC(command, args...)
	if err != nil {
		return Message{}, err
	}
	return Message{Kind: KindRPCResponse, Body: payload}, nil
}

// NewCurrentState builds a current-state message.
func NewCurrentState(state State) Message {
	return Message{Kind: KindCurrentState, Body: []byte{byte(state)}}
}

// NewErrorState builds an error-state message.
func NewErrorState(code ErrorCode) Message {
	return Message{Kind: KindErrorState, Body: []byte{byte(code)}}
}

// RPCCommandName returns a readable name for an RPC command byte.
func RPCCommandName(command byte) string {
	switch command {
	case RPCSendWiFiSettings:
		return "send_wifi_settings"
	case RPCRequestCurrentState:
		return "request_current_state"
	case RPCRequestDeviceInfo:
		return "request_device_info"
	case RPCRequestScannedNetworks:
		return "request_scanned_networks"
	default:
		return fmt.Sprintf("rpc(0x%02x)", command)
	}
}
