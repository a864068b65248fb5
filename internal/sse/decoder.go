// Package sse decodes provider event streams: line framing over an
// arbitrarily chunked byte stream, and parsing of individual stream lines
// into incremental-content deltas.
package sse

import "bytes"

// LineDecoder reassembles complete terminated lines from a byte stream that
// may be split at arbitrary read boundaries. A trailing partial line is
// carried over until a later Feed supplies its terminator; an unterminated
// line is never emitted.
type LineDecoder struct {
	buf []byte
}

// Feed appends p to the carry-over buffer and returns every complete line it
// now holds, in order, with line terminators stripped. An empty chunk is a
// no-op. Feed never fails; this layer is below parsing and passes malformed
// text through untouched.
func (d *LineDecoder) Feed(p []byte) []string {
	if len(p) == 0 {
		return nil
	}
	d.buf = append(d.buf, p...)

	var lines []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		line = bytes.TrimSuffix(line, []byte("\r"))
		lines = append(lines, string(line))
		d.buf = d.buf[i+1:]
	}
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return lines
}

// Reset discards any buffered partial line so the decoder can be reused for
// a new stream.
func (d *LineDecoder) Reset() {
	d.buf = nil
}
