package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_Logging(t *testing.T) {
	var buf bytes.Buffer
	mw := NewMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)))

	h := mw.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/abc123", nil))

	out := buf.String()
	for _, want := range []string{`"status":418`, `"path":"/abc123"`, `"bytes":15`, `"method":"GET"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log %s missing %s", out, want)
		}
	}
}

func TestMiddleware_Recovery(t *testing.T) {
	var buf bytes.Buffer
	mw := NewMiddleware(slog.New(slog.NewJSONHandler(&buf, nil)))

	h := mw.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("panic value not logged: %s", buf.String())
	}
}
