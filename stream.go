package zenforce

import (
	"encoding/json"
	"io"
	"strings"

	"go.uber.org/zap"
)

// dataPrefix marks the lines that participate in the SSE protocol.
// Anything else on the wire (blank keep-alive lines, comments) is inert.
const dataPrefix = "data: "

// doneSentinel terminates a logical event stream independently of the
// transport's own end-of-body signal.
const doneSentinel = "[DONE]"

// Stream is a pull-based iterator over one SSE response body. It owns the
// body and its decode buffer; two concurrent streams never share state.
//
// Usage follows the scanner idiom:
//
//	stream, err := client.Reconcile(ctx, "q3.csv", f)
//	if err != nil {
//		return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//		ev := stream.Current()
//		// handle ev
//	}
//	if err := stream.Err(); err != nil {
//		return err
//	}
//
// Events are delivered in the exact order their "data:" lines appeared in the
// body. A stopped consumer must call Close to release the underlying
// connection; abandoning a Stream without Close leaks it.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	endpoint string
	body     io.ReadCloser
	log      *zap.Logger

	dec     LineDecoder
	scratch []byte
	pending []string // complete lines not yet dispatched

	cur      Event
	err      error
	eof      bool // transport signalled end of body
	finished bool // sentinel seen or body exhausted
	closed   bool
}

func newStream(endpoint string, body io.ReadCloser, log *zap.Logger) *Stream {
	return &Stream{
		endpoint: endpoint,
		body:     body,
		log:      log,
		scratch:  make([]byte, 4096),
	}
}

// Next advances to the next event. It returns false when the stream ends:
// sentinel seen, body exhausted, transport failure, or Close called. After
// Next returns false, consult Err to distinguish completion from failure.
func (s *Stream) Next() bool {
	if s.closed {
		if !s.finished && s.err == nil {
			s.err = ErrStreamClosed
		}
		return false
	}
	if s.finished {
		return false
	}

	for {
		if len(s.pending) == 0 && !s.fill() {
			s.finished = true
			return false
		}
		line := s.pending[0]
		s.pending = s.pending[1:]

		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, dataPrefix)

		if payload == doneSentinel {
			// Terminate immediately: lines already buffered past the
			// sentinel are never dispatched.
			s.finished = true
			s.pending = nil
			return false
		}

		ev, ok := s.decodeFrame(payload)
		if !ok {
			// One malformed frame must not abort an otherwise-healthy
			// long stream.
			continue
		}
		s.cur = ev
		return true
	}
}

// fill reads from the body until at least one complete line is buffered or
// the transport ends. It returns false when no further lines will arrive.
func (s *Stream) fill() bool {
	for len(s.pending) == 0 {
		if s.eof {
			return false
		}
		n, err := s.body.Read(s.scratch)
		if n > 0 {
			s.pending = append(s.pending, s.dec.Push(s.scratch[:n])...)
		}
		if err != nil {
			s.eof = true
			if err != io.EOF {
				s.err = &StreamError{Endpoint: s.endpoint, Err: err}
			}
			if s.dec.Pending() > 0 {
				// A truncated final line indicates a severed connection;
				// it is not a complete event.
				s.log.Debug("discarding unterminated trailing fragment",
					zap.String("endpoint", s.endpoint),
					zap.Int("bytes", s.dec.Pending()))
				s.dec.Reset()
			}
		}
	}
	return true
}

// decodeFrame parses one data payload into an Event. Malformed JSON drops the
// frame (logged as a diagnostic) and reports ok=false; unknown discriminators
// pass through with only Type and Raw populated.
func (s *Stream) decodeFrame(payload string) (Event, bool) {
	raw := json.RawMessage(payload)

	var wire wireEvent
	if err := json.Unmarshal(raw, &wire); err != nil {
		s.log.Debug("dropping malformed frame",
			zap.String("endpoint", s.endpoint),
			zap.Error(err))
		return Event{}, false
	}

	ev := Event{Type: wire.Type, Raw: raw}
	switch wire.Type {
	case EventThought:
		if err := json.Unmarshal(wire.Data, &ev.Thought); err != nil {
			s.log.Debug("dropping frame with malformed thought payload", zap.Error(err))
			return Event{}, false
		}
	case EventSummary:
		ev.Summary = &ReconciliationSummary{}
		if err := json.Unmarshal(wire.Data, ev.Summary); err != nil {
			s.log.Debug("dropping frame with malformed summary payload", zap.Error(err))
			return Event{}, false
		}
	case EventVizResult:
		ev.Viz = &VizResult{}
		if err := json.Unmarshal(wire.Data, ev.Viz); err != nil {
			s.log.Debug("dropping frame with malformed viz payload", zap.Error(err))
			return Event{}, false
		}
	case EventError:
		if err := json.Unmarshal(wire.Data, &ev.Message); err != nil {
			// Some error payloads are objects rather than strings; keep
			// the frame and let the consumer read Raw.
			ev.Message = string(wire.Data)
		}
	}
	return ev, true
}

// Current returns the event produced by the last successful call to Next.
func (s *Stream) Current() Event {
	return s.cur
}

// Err returns the first failure encountered, or nil if the stream ended
// normally (sentinel or end of body). A discarded trailing fragment is not an
// error at this layer.
func (s *Stream) Err() error {
	return s.err
}

// Close releases the underlying connection. It is safe to call at any point
// of iteration, and more than once; a consumer that stops early must call it
// so the transport is not held open in the background.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}
