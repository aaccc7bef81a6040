package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"playlistnotify/internal/core"
)

type fakeReadiness struct {
	ready bool
	size  int
}

func (p *fakeReadiness) Ready() bool       { return p.ready }
func (p *fakeReadiness) SnapshotSize() int { return p.size }

// Ensure Metrics satisfies the monitor's recorder interface
var _ core.MetricsRecorder = (*Metrics)(nil)

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	req, _ := http.NewRequestWithContext(context.Background(), "GET", url, http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to call %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", url, err)
	}
	return resp, string(body)
}

func TestCreateHTTPServer(t *testing.T) {
	config := &core.ServerConfig{
		Host:         "0.0.0.0",
		Port:         9090,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	mux := http.NewServeMux()
	server := createHTTPServer(config, mux)

	expectedAddr := "0.0.0.0:9090"
	if server.Addr != expectedAddr {
		t.Errorf("createHTTPServer() Addr = %q, expected %q", server.Addr, expectedAddr)
	}

	if server.Handler != mux {
		t.Errorf("createHTTPServer() Handler mismatch")
	}

	if server.ReadTimeout != config.ReadTimeout {
		t.Errorf("createHTTPServer() ReadTimeout = %v, expected %v", server.ReadTimeout, config.ReadTimeout)
	}

	if server.WriteTimeout != config.WriteTimeout {
		t.Errorf("createHTTPServer() WriteTimeout = %v, expected %v", server.WriteTimeout, config.WriteTimeout)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	server := httptest.NewServer(setupRoutes(zap.NewNop(), NewMetrics(), &fakeReadiness{}))
	defer server.Close()

	resp, body := get(t, server.URL+"/healthz")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if contentType := resp.Header.Get("Content-Type"); contentType != "application/json" {
		t.Errorf("/healthz Content-Type = %q, expected %q", contentType, "application/json")
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("Failed to decode body %q: %v", body, err)
	}
	if decoded["status"] != "ok" || decoded["service"] != "playlistnotify" {
		t.Errorf("unexpected body %v", decoded)
	}
}

func TestReadyzEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		readiness      *fakeReadiness
		expectedStatus int
		expectedState  string
	}{
		{
			name:           "before baseline",
			readiness:      &fakeReadiness{ready: false},
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "not ready",
		},
		{
			name:           "after baseline",
			readiness:      &fakeReadiness{ready: true, size: 12},
			expectedStatus: http.StatusOK,
			expectedState:  "ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(setupRoutes(zap.NewNop(), NewMetrics(), tt.readiness))
			defer server.Close()

			resp, body := get(t, server.URL+"/readyz")
			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}

			var decoded map[string]any
			if err := json.Unmarshal([]byte(body), &decoded); err != nil {
				t.Fatalf("Failed to decode body %q: %v", body, err)
			}
			if decoded["status"] != tt.expectedState {
				t.Errorf("status = %v, expected %q", decoded["status"], tt.expectedState)
			}
			if tt.readiness.ready && decoded["entries"] != float64(tt.readiness.size) {
				t.Errorf("entries = %v, expected %d", decoded["entries"], tt.readiness.size)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	metrics.RecordPoll("success")
	metrics.RecordPoll("success")
	metrics.RecordChange("added")
	metrics.RecordNotification("discord", "error")
	metrics.RecordTokenRefresh("success")
	metrics.RecordError("monitor", "fetch_playlist")
	metrics.SetPlaylistSize(42)

	server := httptest.NewServer(setupRoutes(zap.NewNop(), metrics, &fakeReadiness{}))
	defer server.Close()

	resp, body := get(t, server.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics returned status %d", resp.StatusCode)
	}

	expected := []string{
		`playlistnotify_polls_total{status="success"} 2`,
		`playlistnotify_changes_total{kind="added"} 1`,
		`playlistnotify_notifications_total{sink="discord",status="error"} 1`,
		`playlistnotify_token_refresh_total{status="success"} 1`,
		`playlistnotify_errors_total{component="monitor",type="fetch_playlist"} 1`,
		`playlistnotify_playlist_size 42`,
		`go_goroutines`,
	}
	for _, line := range expected {
		if !strings.Contains(body, line) {
			t.Errorf("Expected metrics output to contain %q", line)
		}
	}
}

func TestNewMetricsIsolated(t *testing.T) {
	// Separate registries must not panic on duplicate registration
	first := NewMetrics()
	second := NewMetrics()
	first.RecordChange("removed")

	if first.registry == second.registry {
		t.Error("Expected each Metrics to own its registry")
	}
}

func TestServer_StartContextCancellation(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	config := &core.ServerConfig{Host: "127.0.0.1", Port: port, ReadTimeout: time.Second, WriteTimeout: time.Second}
	server := NewServer(config, NewMetrics(), &fakeReadiness{ready: true}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Start(ctx) }()

	// Wait for the listener to come up
	deadline := time.Now().Add(2 * time.Second)
	for {
		conn, dialErr := net.Dial("tcp", fmt.Sprintf("%s:%d", config.Host, port))
		if dialErr == nil {
			conn.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Server did not start: %v", dialErr)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v after cancellation, expected nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after cancellation")
	}
}

func TestServer_StartInvalidPort(t *testing.T) {
	config := &core.ServerConfig{Host: "127.0.0.1", Port: -1}
	server := NewServer(config, NewMetrics(), &fakeReadiness{}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := server.Start(ctx); err == nil {
		t.Error("Start() should fail for an invalid port")
	}
}
