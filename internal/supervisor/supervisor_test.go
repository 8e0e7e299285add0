// Podscale - Podcast Download Analytics and Forecasting
// Copyright 2026 Podscale contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/podscale/podscale

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func discardSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeServer blocks in ListenAndServe until Shutdown or close(fail).
type fakeServer struct {
	started  chan struct{}
	stop     chan error
	shutdown chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		started:  make(chan struct{}),
		stop:     make(chan error, 1),
		shutdown: make(chan struct{}, 1),
	}
}

func (f *fakeServer) ListenAndServe() error {
	close(f.started)
	return <-f.stop
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.shutdown <- struct{}{}
	f.stop <- http.ErrServerClosed
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	select {
	case <-srv.shutdown:
	default:
		t.Fatal("Shutdown was never called")
	}
}

func TestHTTPServicePropagatesListenFailure(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService(srv, time.Second)

	done := make(chan error, 1)
	go func() { done <- svc.Serve(context.Background()) }()

	<-srv.started
	srv.stop <- errors.New("listen tcp: address in use")

	select {
	case err := <-done:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			t.Fatalf("Serve returned %v, want listen failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after listener failure")
	}
}

func TestHTTPServiceName(t *testing.T) {
	if got := NewHTTPServerService(newFakeServer(), 0).String(); got != "http-server" {
		t.Fatalf("String = %q", got)
	}
}

func TestTreeRunsServiceUntilCancel(t *testing.T) {
	srv := newFakeServer()
	tree := NewTree(discardSlog(), TreeConfig{})
	tree.Add(NewHTTPServerService(srv, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tree.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("tree.Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}
}
