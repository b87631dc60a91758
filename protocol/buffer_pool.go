package protocol

import (
	"bytes"
	"sync"
)

// A full frame never exceeds MinFrameSize + MaxPayloadSize bytes,
// so anything grown past MaxPooledBuffer came from misuse and is dropped.
const (
	FrameBufferSize = MinFrameSize + MaxPayloadSize
	MaxPooledBuffer = 4 * FrameBufferSize
)

// bufferPool is a sync.Pool for reusing frame encode buffers
var bufferPool = sync.Pool{
	New: func() interface{} {
		buf := new(bytes.Buffer)
		buf.Grow(FrameBufferSize)
		return buf
	},
}

// GetBuffer retrieves a buffer from the pool.
// The buffer is reset and ready for use.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool.
func PutBuffer(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	if buf.Cap() > MaxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// GetBufferWithSize retrieves a buffer from the pool and grows it to the specified size hint.
func GetBufferWithSize(sizeHint int) *bytes.Buffer {
	buf := GetBuffer()
	if sizeHint > 0 && buf.Cap() < sizeHint {
		buf.Grow(sizeHint)
	}
	return buf
}
