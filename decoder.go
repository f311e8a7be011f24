package zenforce

// LineDecoder reassembles a newline-delimited text stream from arbitrarily
// chunked bytes. It is transport-agnostic and knows nothing about SSE framing
// or JSON: chunks go in via Push, complete lines come out, and whatever
// follows the last delimiter stays buffered until a later chunk terminates it.
//
// Splitting happens in byte space and decoding to a string is deferred until
// a line is complete, so a chunk boundary may fall inside a multi-byte UTF-8
// sequence without corrupting the reassembled line.
//
// A LineDecoder is owned by exactly one decoding session and is not safe for
// concurrent use.
type LineDecoder struct {
	buf []byte
}

// Push appends chunk to the decode buffer and returns every line completed by
// it, in order, with the trailing '\n' stripped. An empty line between two
// delimiters is returned as "". The final undelimited fragment is retained,
// never returned.
func (d *LineDecoder) Push(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)

	var lines []string
	start := 0
	for i := start; i < len(d.buf); i++ {
		if d.buf[i] == '\n' {
			lines = append(lines, string(d.buf[start:i]))
			start = i + 1
		}
	}
	if start > 0 {
		// Shift the residual fragment to the front instead of re-allocating,
		// the buffer is reused across the whole stream.
		d.buf = d.buf[:copy(d.buf, d.buf[start:])]
	}
	return lines
}

// Pending reports how many bytes of an unterminated trailing fragment are
// currently buffered.
func (d *LineDecoder) Pending() int {
	return len(d.buf)
}

// Reset discards any buffered fragment. Called at end of stream: a line that
// never received its terminator came from a severed connection and must not
// be surfaced as if it were complete.
func (d *LineDecoder) Reset() {
	d.buf = d.buf[:0]
}
