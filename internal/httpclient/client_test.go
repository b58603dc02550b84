package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "marquee" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := New(DefaultConfig(), testLogger())
	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestDo_NoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := New(DefaultConfig(), testLogger())
	req, _ := http.NewRequest(http.MethodGet, server.URL, http.NoBody)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", n)
	}
}

func TestDo_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	c := New(DefaultConfig(), testLogger())
	req, _ := http.NewRequest(http.MethodGet, addr+"/movie/popular?api_key=secret", http.NoBody)
	_, err := c.Do(req)
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %T", err)
	}
	if strings.Contains(err.Error(), "secret") {
		t.Errorf("api key leaked into error: %v", err)
	}
}

func TestDo_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(DefaultConfig(), testLogger())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	_, err := c.Do(req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRedactURL(t *testing.T) {
	u, _ := url.Parse("https://user:pw@api.example.com/3/movie/popular?api_key=abc&language=pt-BR")
	got := RedactURL(u)
	if strings.Contains(got, "abc") || strings.Contains(got, "pw") {
		t.Errorf("secrets not redacted: %s", got)
	}
	if !strings.Contains(got, "language=pt-BR") {
		t.Errorf("non-secret params dropped: %s", got)
	}
	if RedactURL(nil) != "" {
		t.Error("expected empty string for nil URL")
	}
}

func TestHTTPError(t *testing.T) {
	err := error(&HTTPError{URL: "http://x", StatusCode: http.StatusNotFound, Body: "missing"})
	if !IsNotFound(err) {
		t.Error("expected IsNotFound to be true")
	}
	if IsNotFound(&HTTPError{StatusCode: http.StatusUnauthorized}) {
		t.Error("expected IsNotFound to be false for 401")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("unexpected message: %v", err)
	}
}
