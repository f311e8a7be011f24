// Package zenforce is a Go client for the Zenalyst reconciliation backend.
//
// The backend exposes a small HTTP surface: two long-lived Server-Sent Events
// streams (/reconcile and /visualize), a reachability probe (/health), a
// synchronous question endpoint (/ask), and a rendered plot (/plot). This
// package turns the SSE streams into typed events (Stream), tracks backend
// reachability and dataset presence (SessionController), and wraps the plain
// request/response endpoints (Client).
package zenforce

import "encoding/json"

// EventType discriminates the payload carried by an Event.
// The backend tags every SSE frame with a "type" field.
type EventType string

const (
	// EventThought is a human-readable progress line emitted while an agent
	// pipeline is working. Payload: Event.Thought.
	EventThought EventType = "thought"

	// EventSummary is the terminal result of a /reconcile stream, emitted at
	// most once per stream. Payload: Event.Summary.
	EventSummary EventType = "summary"

	// EventVizResult is the terminal result of a /visualize stream.
	// Payload: Event.Viz.
	EventVizResult EventType = "viz_result"

	// EventError is an in-band failure report, e.g. /visualize called before
	// any dataset exists. Payload: Event.Message.
	EventError EventType = "error"
)

// Event is a single decoded SSE frame. Exactly one payload field is populated
// depending on Type; Raw always holds the undecoded JSON object so consumers
// can recover fields this package does not model.
//
// Unknown Type values are passed through rather than rejected: the backend is
// free to add event kinds, and dropping them silently would hide data.
// Consumers should switch on Type and ignore kinds they do not handle.
type Event struct {
	// Type is the frame discriminator ("thought", "summary", "viz_result", ...).
	Type EventType

	// Thought is the progress text for EventThought frames.
	Thought string

	// Summary is the reconciliation result for EventSummary frames.
	Summary *ReconciliationSummary

	// Viz is the visualization result for EventVizResult frames.
	Viz *VizResult

	// Message is the failure description for EventError frames.
	Message string

	// Raw is the frame's JSON object as received, for unknown event types
	// and defensive access to unmapped fields.
	Raw json.RawMessage
}

// ReconciliationSummary is the final record of one reconciliation run.
// It is produced once, at the end of a /reconcile stream, and is immutable
// afterwards. Row-count arithmetic is the producer's responsibility; see
// AuditWarnings for an advisory cross-check.
type ReconciliationSummary struct {
	SessionID         string    `json:"session_id"`
	Filename          string    `json:"filename"`
	OriginalRows      int       `json:"original_rows"`
	CleanRows         int       `json:"clean_rows"`
	DuplicatesRemoved int       `json:"duplicates_removed"`
	Audit             AuditData `json:"audit"`
}

// IntegrityStatus is the auditor's verdict on a cleaned dataset.
type IntegrityStatus string

const (
	IntegrityPass IntegrityStatus = "PASS"
	IntegrityWarn IntegrityStatus = "WARN"
	IntegrityFail IntegrityStatus = "FAIL"
)

// AuditData is the integrity report embedded in a ReconciliationSummary.
type AuditData struct {
	OriginalRowCount    int             `json:"original_row_count"`
	CleanRowCount       int             `json:"clean_row_count"`
	DuplicatesRemoved   int             `json:"duplicates_removed"`
	ResidualNulls       int             `json:"residual_nulls"`
	CompositeKeyPresent bool            `json:"composite_key_present"`
	IntegrityStatus     IntegrityStatus `json:"integrity_status"`
}

// VizResult is the terminal payload of a /visualize stream. PlotPath is an
// opaque server-side locator; the rendered image itself is fetched via
// Client.FetchPlot, not decoded here.
type VizResult struct {
	Success  bool   `json:"success"`
	PlotPath string `json:"plot_path"`
	Error    string `json:"error"`
}

// HealthStatus is the response of the /health reachability probe.
// HasSession reports whether the backend currently holds a processed dataset;
// the probe does not carry the dataset itself.
type HealthStatus struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	HasSession bool   `json:"has_session"`
	Filename   string `json:"filename"`
	CleanRows  int    `json:"clean_rows"`
}

// Answer is the response of the synchronous /ask endpoint.
type Answer struct {
	Answer      string      `json:"answer"`
	Grounded    bool        `json:"grounded"`
	Computed    bool        `json:"computed"`
	ComputedRaw string      `json:"computed_raw"`
	Session     AnswerScope `json:"session"`
}

// AnswerScope identifies the dataset an Answer was computed against.
type AnswerScope struct {
	Filename     string `json:"filename"`
	OriginalRows int    `json:"original_rows"`
	CleanRows    int    `json:"clean_rows"`
}

// wireEvent is the envelope of every SSE frame: {"type": ..., "data": ...}.
// Data's shape depends on Type, so it is decoded in a second pass.
type wireEvent struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}
