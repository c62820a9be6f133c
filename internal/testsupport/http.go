package testsupport

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedRequest captures one request seen by a RecordingServer.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// RecordingServer is an httptest server that stores every request and replies
// through a caller supplied handler.
type RecordingServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewRecordingServer starts a server that records requests before delegating
// to reply. A nil reply answers 200 with an empty body.
func NewRecordingServer(t testing.TB, reply http.HandlerFunc) *RecordingServer {
	t.Helper()

	rs := &RecordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		rs.mu.Lock()
		rs.requests = append(rs.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		rs.mu.Unlock()
		if reply == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		reply(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

// Requests returns a copy of the recorded requests.
func (rs *RecordingServer) Requests() []RecordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]RecordedRequest, len(rs.requests))
	copy(out, rs.requests)
	return out
}
