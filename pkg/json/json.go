// Package json wraps goccy/go-json for network and report exports.
package json

import (
	"bytes"
	"io"
	"sync"

	gojson "github.com/goccy/go-json"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		return
	}
	bufferPool.Put(buf)
}

// Marshal is a drop-in replacement for encoding/json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// Encode writes v to w. With pretty set the output is indented by two spaces.
func Encode(w io.Writer, v interface{}, pretty bool) error {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// LineEncoder writes one JSON document per line.
type LineEncoder struct {
	mu  sync.Mutex
	w   io.Writer
	buf *bytes.Buffer
}

// NewLineEncoder creates a line-delimited encoder on w.
func NewLineEncoder(w io.Writer) *LineEncoder {
	return &LineEncoder{w: w, buf: GetBuffer()}
}

// Encode writes v followed by a newline. Safe for concurrent use.
func (le *LineEncoder) Encode(v interface{}) error {
	le.mu.Lock()
	defer le.mu.Unlock()

	le.buf.Reset()
	enc := gojson.NewEncoder(le.buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := le.w.Write(le.buf.Bytes())
	return err
}

// Close releases the internal buffer.
func (le *LineEncoder) Close() error {
	le.mu.Lock()
	defer le.mu.Unlock()
	if le.buf != nil {
		PutBuffer(le.buf)
		le.buf = nil
	}
	return nil
}
