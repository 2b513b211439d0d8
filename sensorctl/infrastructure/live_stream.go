package infrastructure

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Logger defines the contract for logging operations with different severity levels.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// LiveSource opens a live record stream.
type LiveSource interface {
	Live(ctx context.Context) (*connect.ServerStreamForClient[wrapperspb.StringValue], error)
}

// LiveFollower prints the live record stream and reopens it when it breaks.
type LiveFollower struct {
	source   LiveSource
	logger   Logger
	minDelay time.Duration
	maxDelay time.Duration
}

func (f *LiveFollower) handleBackoff(ctx context.Context, delay time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// Follow passes every received line to out until ctx is done. A broken stream is
// reopened with a doubling delay capped at maxDelay; a successful receive resets it.
func (f *LiveFollower) Follow(ctx context.Context, out func(line string)) error {
	delay := f.minDelay
	for {
		if ctx.Err() != nil {
			return nil
		}

		received, err := f.consume(ctx, out)
		if ctx.Err() != nil {
			return nil
		}
		if received {
			delay = f.minDelay
		}
		if err != nil {
			f.logger.Error("live stream broke: %s", err.Error())
		} else {
			f.logger.Info("live stream closed by server")
		}

		if !f.handleBackoff(ctx, delay) {
			return nil
		}
		delay = min(delay*2, f.maxDelay)
	}
}

// consume reads one stream until it ends and reports whether anything arrived.
func (f *LiveFollower) consume(ctx context.Context, out func(line string)) (bool, error) {
	stream, err := f.source.Live(ctx)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = stream.Close()
	}()

	received := false
	for stream.Receive() {
		received = true
		out(stream.Msg().GetValue())
	}
	return received, stream.Err()
}

// NewLiveFollower creates a follower that retries after 1s, backing off to 10s.
func NewLiveFollower(source LiveSource, logger Logger) *LiveFollower {
	return &LiveFollower{source: source, logger: logger, minDelay: time.Second, maxDelay: 10 * time.Second}
}
