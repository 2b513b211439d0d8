// Package infrastructure connects sensorctl to the sampler control service.
package infrastructure

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"connectrpc.com/connect"
	controlapiv1 "github.com/samoilenko/sensorlog/pkg/controlapi/v1"
	"golang.org/x/net/http2"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Address of the sampler control service, e.g. http://127.0.0.1:8081.
type Address string

// NewAddress validates an absolute http(s) URL.
func NewAddress(address string) (Address, error) {
	if len(address) == 0 {
		return "", errors.New("address cannot be empty")
	}
	u, err := url.Parse(address)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("address must be an http(s) URL: %q", address)
	}
	return Address(address), nil
}

// NewH2CClient returns an HTTP client speaking cleartext HTTP/2.
func NewH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

// ControlClient calls the procedures of the control service.
type ControlClient struct {
	start     *connect.Client[emptypb.Empty, structpb.Struct]
	stop      *connect.Client[emptypb.Empty, wrapperspb.Int64Value]
	clearLog  *connect.Client[emptypb.Empty, emptypb.Empty]
	getLast   *connect.Client[wrapperspb.StringValue, structpb.Struct]
	status    *connect.Client[emptypb.Empty, structpb.Struct]
	setPeriod *connect.Client[structpb.Struct, emptypb.Empty]
	readLog   *connect.Client[wrapperspb.Int64Value, wrapperspb.BytesValue]
	summary   *connect.Client[emptypb.Empty, wrapperspb.StringValue]
	live      *connect.Client[emptypb.Empty, wrapperspb.StringValue]
}

// Start starts sampling and returns the resulting status.
func (c *ControlClient) Start(ctx context.Context) (controlapiv1.Status, error) {
	resp, err := c.start.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return controlapiv1.Status{}, err
	}
	return controlapiv1.StatusFromStruct(resp.Msg), nil
}

// Stop stops sampling and returns the number of discarded records.
func (c *ControlClient) Stop(ctx context.Context) (int64, error) {
	resp, err := c.stop.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return 0, err
	}
	return resp.Msg.GetValue(), nil
}

// ClearLog deletes the record log.
func (c *ControlClient) ClearLog(ctx context.Context) error {
	_, err := c.clearLog.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	return err
}

// GetLast returns the latest reading of kind (name or tag).
func (c *ControlClient) GetLast(ctx context.Context, kind string) (controlapiv1.Reading, error) {
	resp, err := c.getLast.CallUnary(ctx, connect.NewRequest(wrapperspb.String(kind)))
	if err != nil {
		return controlapiv1.Reading{}, err
	}
	return controlapiv1.ReadingFromStruct(resp.Msg)
}

// Status returns workers, queue state and periods.
func (c *ControlClient) Status(ctx context.Context) (controlapiv1.Status, error) {
	resp, err := c.status.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return controlapiv1.Status{}, err
	}
	return controlapiv1.StatusFromStruct(resp.Msg), nil
}

// SetPeriod changes the sampling period of kind.
func (c *ControlClient) SetPeriod(ctx context.Context, kind string, period time.Duration) error {
	msg, err := controlapiv1.PeriodRequest{Kind: kind, PeriodMs: period.Milliseconds()}.ToStruct()
	if err != nil {
		return err
	}
	_, err = c.setPeriod.CallUnary(ctx, connect.NewRequest(msg))
	return err
}

// ReadLog returns up to maxBytes of the record log; 0 reads all of it.
func (c *ControlClient) ReadLog(ctx context.Context, maxBytes int64) ([]byte, error) {
	resp, err := c.readLog.CallUnary(ctx, connect.NewRequest(wrapperspb.Int64(maxBytes)))
	if err != nil {
		return nil, err
	}
	return resp.Msg.GetValue(), nil
}

// Summary returns the one-line overview of all sensors.
func (c *ControlClient) Summary(ctx context.Context) (string, error) {
	resp, err := c.summary.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return "", err
	}
	return resp.Msg.GetValue(), nil
}

// Live opens the live record stream.
func (c *ControlClient) Live(ctx context.Context) (*connect.ServerStreamForClient[wrapperspb.StringValue], error) {
	return c.live.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
}

// NewControlClient creates clients for every procedure under address.
func NewControlClient(httpClient connect.HTTPClient, address Address, opts ...connect.ClientOption) *ControlClient {
	base := string(address)
	return &ControlClient{
		start:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, base+controlapiv1.StartProcedure, opts...),
		stop:      connect.NewClient[emptypb.Empty, wrapperspb.Int64Value](httpClient, base+controlapiv1.StopProcedure, opts...),
		clearLog:  connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, base+controlapiv1.ClearLogProcedure, opts...),
		getLast:   connect.NewClient[wrapperspb.StringValue, structpb.Struct](httpClient, base+controlapiv1.GetLastProcedure, opts...),
		status:    connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, base+controlapiv1.StatusProcedure, opts...),
		setPeriod: connect.NewClient[structpb.Struct, emptypb.Empty](httpClient, base+controlapiv1.SetPeriodProcedure, opts...),
		readLog:   connect.NewClient[wrapperspb.Int64Value, wrapperspb.BytesValue](httpClient, base+controlapiv1.ReadLogProcedure, opts...),
		summary:   connect.NewClient[emptypb.Empty, wrapperspb.StringValue](httpClient, base+controlapiv1.SummaryProcedure, opts...),
		live:      connect.NewClient[emptypb.Empty, wrapperspb.StringValue](httpClient, base+controlapiv1.LiveProcedure, opts...),
	}
}
