package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Wire format: ["IMPROV"][1 byte version][1 byte type][1 byte length][payload][1 byte checksum]
// The checksum is the low byte of the sum of version, type, length and payload.

const (
	HeaderSize     = 6
	MinFrameSize   = HeaderSize + 4 // version + type + length + checksum
	MaxPayloadSize = 255
)

var header = []byte("IMPROV")

var (
	ErrPayloadTooLarge    = errors.New("protocol: payload too large")
	ErrFrameCorrupt       = errors.New("protocol: frame checksum mismatch")
	ErrUnsupportedVersion = errors.New("protocol: unsupported version")
)

// Header returns a copy of the frame header constant.
func Header() []byte {
	return bytes.Clone(header)
}

// Checksum returns the low byte of the sum of b.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// Decode tries to extract one message from the front of buf.
//
// n is the number of bytes the caller must drop from the front of buf. A nil
// message with n == 0 means buf holds at most an incomplete frame and more
// input is needed. When a frame is dropped for a bad checksum or an
// unsupported version, n covers the frame and err says why; the caller keeps
// decoding the remainder.
func Decode(buf []byte) (n int, msg *Message, err error) {
	start := bytes.Index(buf, header)
	if start < 0 {
		// Keep a trailing partial header, it may complete on the next read
		return len(buf) - partialHeaderLen(buf), nil, nil
	}

	frame := buf[start:]
	if len(frame) < MinFrameSize {
		return start, nil, nil
	}

	version := frame[HeaderSize]
	kind := Kind(frame[HeaderSize+1])
	length := int(frame[HeaderSize+2])
	size := MinFrameSize + length
	if len(frame) < size {
		return start, nil, nil
	}

	payloadEnd := HeaderSize + 3 + length
	want := Checksum(frame[HeaderSize:payloadEnd])
	if got := frame[payloadEnd]; got != want {
		return start + size, nil, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrFrameCorrupt, got, want)
	}

	if version != ProtocolVersion {
		return start + size, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	m := NewMessage(kind, frame[HeaderSize+3:payloadEnd])
	return start + size, &m, nil
}

// partialHeaderLen returns the length of the longest suffix of buf that is a
// proper prefix of the header.
func partialHeaderLen(buf []byte) int {
	for n := min(len(buf), HeaderSize-1); n > 0; n-- {
		if bytes.HasSuffix(buf, header[:n]) {
			return n
		}
	}
	return 0
}

// AppendFrame appends the encoded frame for msg to dst.
func AppendFrame(dst []byte, msg Message) ([]byte, error) {
	if len(msg.Body) > MaxPayloadSize {
		return dst, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(msg.Body))
	}

	dst = append(dst, header...)
	sumFrom := len(dst)
	dst = append(dst, ProtocolVersion, byte(msg.Kind), byte(len(msg.Body)))
	dst = append(dst, msg.Body...)
	return append(dst, Checksum(dst[sumFrom:])), nil
}

// Encode returns the wire bytes for msg.
func Encode(msg Message) ([]byte, error) {
	frame, err := AppendFrame(make([]byte, 0, MinFrameSize+len(msg.Body)), msg)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// WriteMessage encodes msg into a pooled buffer and writes it with a single Write call.
func WriteMessage(w io.Writer, msg Message) error {
	buf := GetBufferWithSize(MinFrameSize + len(msg.Body))
	defer PutBuffer(buf)

	frame, err := AppendFrame(buf.AvailableBuffer(), msg)
	if err != nil {
		return err
	}
	buf.Write(frame)

	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}
