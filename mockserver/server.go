// Package mockserver is an in-process stand-in for the Zenalyst backend.
// It serves the same five endpoints with the same wire behavior, generating
// thought text instead of running the real agent pipeline, so examples and
// tests work without a Python backend or API keys.
package mockserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"
	"github.com/google/uuid"
)

// sseEvent mirrors the backend's frame envelope: {"type": ..., "data": ...}.
type sseEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// sessionData is the mock's equivalent of the backend's in-memory session.
type sessionData struct {
	filename     string
	originalRows int
	cleanRows    int
	duplicates   int
}

// Server implements http.Handler over the backend's endpoint surface:
// /health, /reconcile, /visualize, /plot and /ask. State lives in memory and
// resets with the process, like the real backend's module-level session.
type Server struct {
	gen   *loremgen.Lorem
	delay time.Duration

	mu      sync.Mutex
	session *sessionData
	plot    []byte
}

// Option configures a Server.
type Option func(*Server)

// WithDelay inserts a pause before each streamed event, simulating agent
// think time. Tests leave it at zero; demos use something human-visible.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

// New creates a mock backend with no active session.
func New(opts ...Option) *Server {
	s := &Server{gen: loremgen.New()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/health":
		s.handleHealth(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/reconcile":
		s.handleReconcile(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/visualize":
		s.handleVisualize(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/plot":
		s.handlePlot(w, r)
	case r.Method == http.MethodPost && r.URL.Path == "/ask":
		s.handleAsk(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Reset drops the mock's session and plot, as if the process restarted.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.plot = nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	resp := map[string]any{
		"status":      "ZenForce online",
		"version":     "3.0.0",
		"has_session": sess != nil,
		"filename":    "—",
		"clean_rows":  0,
	}
	if sess != nil {
		resp["filename"] = sess.filename
		resp["clean_rows"] = sess.cleanRows
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing multipart field 'file'", http.StatusBadRequest)
		return
	}
	defer file.Close()

	csv, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "reading upload", http.StatusBadRequest)
		return
	}

	filename := header.Filename
	if filename == "" {
		filename = "upload.csv"
	}
	original, clean := countRows(csv)
	duplicates := original - clean

	sess := &sessionData{
		filename:     filename,
		originalRows: original,
		cleanRows:    clean,
		duplicates:   duplicates,
	}
	s.mu.Lock()
	s.session = sess
	s.plot = nil
	s.mu.Unlock()

	sw, ok := s.startStream(w)
	if !ok {
		return
	}

	sessionID := uuid.NewString()
	sw.event(sseEvent{Type: "thought", Data: fmt.Sprintf("ZenForce [%s] :: Workforce activated. Processing `%s`…", sessionID, filename)})
	sw.event(sseEvent{Type: "thought", Data: fmt.Sprintf("ZenForce :: Loaded %d rows. %s", original, s.gen.Sentence(5, 10))})
	sw.event(sseEvent{Type: "thought", Data: "ZenRecon :: " + s.gen.Sentence(8, 14)})
	sw.event(sseEvent{Type: "thought", Data: fmt.Sprintf("ZenVault :: Integrity audit complete — %d duplicates removed.", duplicates)})
	sw.event(sseEvent{Type: "summary", Data: map[string]any{
		"session_id":         sessionID,
		"filename":           filename,
		"original_rows":      original,
		"clean_rows":         clean,
		"duplicates_removed": duplicates,
		"audit": map[string]any{
			"original_row_count":    original,
			"clean_row_count":       clean,
			"duplicates_removed":    duplicates,
			"residual_nulls":        0,
			"composite_key_present": true,
			"integrity_status":      "PASS",
		},
	}})
	sw.done()
}

func (s *Server) handleVisualize(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	sw, ok := s.startStream(w)
	if !ok {
		return
	}

	if sess == nil {
		// The real backend ends this stream without a sentinel.
		sw.event(sseEvent{Type: "error", Data: "No session data. Run /reconcile first."})
		return
	}

	sw.event(sseEvent{Type: "thought", Data: "ZenView :: Visualization agent activated."})
	sw.event(sseEvent{Type: "thought", Data: fmt.Sprintf("ZenView :: Analysing DataFrame — %d rows.", sess.cleanRows)})
	sw.event(sseEvent{Type: "thought", Data: "ZenView :: " + s.gen.Sentence(6, 12)})

	s.mu.Lock()
	s.plot = minimalPNG
	s.mu.Unlock()

	sw.event(sseEvent{Type: "viz_result", Data: map[string]any{
		"success":   true,
		"plot_path": "app/reports/analysis_plot.png",
		"error":     nil,
	}})
	sw.done()
}

func (s *Server) handlePlot(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	plot := s.plot
	s.mu.Unlock()

	if plot == nil {
		http.Error(w, `{"detail":"No plot generated yet."}`, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(plot)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		http.Error(w, `{"detail":"Question cannot be empty."}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"answer":   "No session data found. Please upload and reconcile a CSV file first.",
			"grounded": false,
			"computed": false,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":       s.gen.Sentence(10, 20),
		"grounded":     true,
		"computed":     true,
		"computed_raw": fmt.Sprintf("%d", sess.cleanRows),
		"session": map[string]any{
			"filename":      sess.filename,
			"original_rows": sess.originalRows,
			"clean_rows":    sess.cleanRows,
		},
	})
}

// streamWriter emits SSE frames in the backend's exact format:
// "data: <json>\n\n", flushed per event, closed with "data: [DONE]\n\n".
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	delay   time.Duration
}

func (s *Server) startStream(w http.ResponseWriter) (*streamWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	return &streamWriter{w: w, flusher: flusher, delay: s.delay}, true
}

func (sw *streamWriter) event(ev sseEvent) {
	if sw.delay > 0 {
		time.Sleep(sw.delay)
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(sw.w, "data: %s\n\n", payload)
	sw.flusher.Flush()
}

func (sw *streamWriter) done() {
	fmt.Fprint(sw.w, "data: [DONE]\n\n")
	sw.flusher.Flush()
}

// countRows reports (data rows, unique data rows) for a CSV, treating the
// first line as the header. The mock "cleans" by dropping exact duplicates,
// which is enough to exercise the client's arithmetic.
func countRows(csv []byte) (original, clean int) {
	lines := bytes.Split(csv, []byte("\n"))
	seen := make(map[string]struct{})
	for i, line := range lines {
		if i == 0 || len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		original++
		key := string(bytes.TrimSpace(line))
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			clean++
		}
	}
	return original, clean
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// minimalPNG is a valid 1x1 transparent PNG, enough for /plot consumers that
// only check content type and non-empty bytes.
var minimalPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}
