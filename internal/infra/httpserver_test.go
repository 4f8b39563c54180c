package infra

import (
	"context"
	"net/http"
	"testing"
	"time"
)

func TestHTTPServerShutdownStopsStart(t *testing.T) {
	srv := NewHTTPServer(&Config{Port: "0"}, http.NotFoundHandler())
	if srv.Addr() != ":0" {
		t.Fatalf("Addr = %q, want %q", srv.Addr(), ":0")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown error: %v", err)
	}
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Start did not return after Shutdown")
	}
}
