package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/mireles/tether/internal/monitor"
	"github.com/mireles/tether/internal/notify"
	"github.com/mireles/tether/internal/zone"
)

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(ctx context.Context, ev notify.Event) notify.DispatchStatus {
	return notify.StatusSent
}

// startTestServer serves mux on an ephemeral port and returns the server,
// its address, and a channel closed when Serve returns.
func startTestServer(t *testing.T, mux http.Handler) (*http.Server, string, <-chan struct{}) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	server := &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.Errorf("server error: %v", err)
		}
	}()

	return server, ln.Addr().String(), stopped
}

func shutdownServer(t *testing.T, server *http.Server, stopped <-chan struct{}) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("server shutdown error: %v", err)
	}
	select {
	case <-stopped:
	case <-time.After(15 * time.Second):
		t.Fatal("server failed to stop in time")
	}
}

// TestGracefulShutdown_LogOrder checks that the startup and shutdown log
// lines appear in lifecycle order.
func TestGracefulShutdown_LogOrder(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	server, addr, stopped := startTestServer(t, mux)
	logger.Info("starting server", "addr", addr)

	logger.Info("shutting down server...")
	shutdownServer(t, server, stopped)
	logger.Info("server stopped")

	logs := logBuf.String()
	order := []string{"starting server", "shutting down server", "server stopped"}
	last := -1
	for _, msg := range order {
		idx := strings.Index(logs, msg)
		if idx == -1 {
			t.Fatalf("expected %q log message, logs: %s", msg, logs)
		}
		if idx < last {
			t.Errorf("log message %q out of order", msg)
		}
		last = idx
	}
}

// TestGracefulShutdown_InFlightRequests checks that a request already in a
// handler finishes with a full response while Shutdown is waiting.
func TestGracefulShutdown_InFlightRequests(t *testing.T) {
	handlerStarted := make(chan struct{})
	handlerCanContinue := make(chan struct{})

	var mu sync.Mutex
	requestCompleted := false

	mux := http.NewServeMux()
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(handlerStarted)
		<-handlerCanContinue

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"completed"}`))

		mu.Lock()
		requestCompleted = true
		mu.Unlock()
	})

	server, addr, stopped := startTestServer(t, mux)

	requestDone := make(chan struct{})
	var response *http.Response
	go func() {
		defer close(requestDone)
		resp, err := http.Get("http://" + addr + "/slow")
		if err != nil {
			t.Errorf("request error: %v", err)
			return
		}
		response = resp
	}()

	select {
	case <-handlerStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("handler failed to start in time")
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		shutdownServer(t, server, stopped)
	}()

	// Give Shutdown a moment to begin draining, then release the handler.
	time.Sleep(50 * time.Millisecond)
	close(handlerCanContinue)

	select {
	case <-requestDone:
	case <-time.After(5 * time.Second):
		t.Fatal("request failed to complete in time")
	}
	select {
	case <-shutdownDone:
	case <-time.After(15 * time.Second):
		t.Fatal("shutdown failed to complete in time")
	}

	mu.Lock()
	completed := requestCompleted
	mu.Unlock()
	if !completed {
		t.Error("expected in-flight request to have completed")
	}

	if response == nil {
		t.Fatal("no response received")
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", response.StatusCode)
	}
	body, _ := io.ReadAll(response.Body)
	var result map[string]string
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if result["status"] != "completed" {
		t.Errorf("expected status 'completed', got %q", result["status"])
	}
}

// TestGracefulShutdown_DrainsSessions tests that hub shutdown after the
// listener closes stops every active monitoring session.
func TestGracefulShutdown_DrainsSessions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	zones := zone.NewInMemoryRepository()
	statuses := zone.NewInMemoryStatusStore()
	hub := monitor.NewHub(func(ownerID string) *monitor.Session {
		evaluator := monitor.NewEvaluator(zones, statuses, logger, nil)
		return monitor.NewSession(monitor.SessionConfig{
			OwnerID: ownerID,
			Logger:  logger,
		}, evaluator, noopDispatcher{}, nil)
	}, logger, nil)

	if _, err := hub.StartSession(context.Background(), "guardian-1"); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}
	if _, err := hub.StartSession(context.Background(), "guardian-2"); err != nil {
		t.Fatalf("StartSession() error = %v", err)
	}

	server, _, stopped := startTestServer(t, http.NewServeMux())
	shutdownServer(t, server, stopped)

	hub.Shutdown()

	if hub.HasSession("guardian-1") || hub.HasSession("guardian-2") {
		t.Error("expected all sessions stopped after hub shutdown")
	}
}

// TestSignalNotify covers the signals the server shuts down on.
func TestSignalNotify(t *testing.T) {
	for _, sig := range []syscall.Signal{syscall.SIGINT, syscall.SIGTERM} {
		t.Run(sig.String(), func(t *testing.T) {
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			go func() {
				time.Sleep(50 * time.Millisecond)
				_ = syscall.Kill(syscall.Getpid(), sig)
			}()

			select {
			case got := <-quit:
				if got != sig {
					t.Errorf("expected %v, got %v", sig, got)
				}
			case <-time.After(2 * time.Second):
				t.Errorf("did not receive %v in time", sig)
			}
		})
	}
}
