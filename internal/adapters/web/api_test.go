package web

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// brokenWriter is a response writer whose client went away
type brokenWriter struct {
	header http.Header
	status int
}

func (w *brokenWriter) Header() http.Header {
	return w.header
}

func (w *brokenWriter) WriteHeader(status int) {
	w.status = status
}

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestWriteJSON_LogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	saved := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = saved })

	w := &brokenWriter{header: make(http.Header)}
	writeJSON(w, http.StatusOK, detailResponse{Detail: "ok"})

	if w.status != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.status)
	}
	out := buf.String()
	if !strings.Contains(out, "failed to write JSON response") || !strings.Contains(out, "connection reset by peer") {
		t.Errorf("expected the write failure to be logged, got %q", out)
	}
}
