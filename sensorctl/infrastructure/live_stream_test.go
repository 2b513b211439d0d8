package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	controlapiv1 "github.com/samoilenko/sensorlog/pkg/controlapi/v1"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestLiveFollower_Reconnects(t *testing.T) {
	var calls atomic.Int32
	mux := http.NewServeMux()
	mux.Handle(controlapiv1.LiveProcedure, connect.NewServerStreamHandler(controlapiv1.LiveProcedure,
		func(_ context.Context, _ *connect.Request[emptypb.Empty], stream *connect.ServerStream[wrapperspb.StringValue]) error {
			n := calls.Add(1)
			if n == 1 {
				return connect.NewError(connect.CodeUnavailable, errors.New("warming up"))
			}
			for i := 0; i < 2; i++ {
				if err := stream.Send(wrapperspb.String(fmt.Sprintf("[%d.000]:line %d", n, i))); err != nil {
					return err
				}
			}
			return nil
		}))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewControlClient(server.Client(), Address(server.URL))
	follower := NewLiveFollower(client, &mockLogger{})
	follower.minDelay = time.Millisecond
	follower.maxDelay = 5 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		mu    sync.Mutex
		lines []string
	)
	done := make(chan error, 1)
	go func() {
		done <- follower.Follow(ctx, func(line string) {
			mu.Lock()
			defer mu.Unlock()
			lines = append(lines, line)
			if len(lines) == 4 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("follow: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("follower did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) < 4 {
		t.Fatalf("expected 4 lines across reconnects, got %v", lines)
	}
	if calls.Load() < 3 {
		t.Errorf("expected at least 3 stream attempts, got %d", calls.Load())
	}
	if lines[0] != "[2.000]:line 0" {
		t.Errorf("unexpected first line %q", lines[0])
	}
}
