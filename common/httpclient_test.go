package common

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBackendClient_SingleAttemptOnServerError(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"overloaded"}`))
	}))
	defer server.Close()

	client := NewBackendClient(BackendClientConfig{Timeout: 2 * time.Second})
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("Expected the error status to be passed through, got %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"error":"overloaded"}` {
		t.Errorf("Expected backend body to be readable, got %q", body)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected exactly one attempt, got %d", n)
	}
}

func TestNewBackendClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewBackendClient(BackendClientConfig{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.Get(server.URL)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected the call to be cut at the timeout, took %s", elapsed)
	}
}

func TestDefaultBackendClientConfig(t *testing.T) {
	if DefaultBackendClientConfig().Timeout != 60*time.Second {
		t.Errorf("Expected 60s default timeout, got %s", DefaultBackendClientConfig().Timeout)
	}
	client := NewBackendClient(BackendClientConfig{})
	if client.Timeout != 60*time.Second {
		t.Errorf("Expected zero timeout to fall back to default, got %s", client.Timeout)
	}
}
