package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"connectrpc.com/connect"
	controlapiv1 "github.com/samoilenko/sensorlog/pkg/controlapi/v1"
	"github.com/samoilenko/sensorlog/sampler/domain"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const liveBuffer = 64

// maxPeriodMs is the largest period in milliseconds a time.Duration can hold.
const maxPeriodMs = math.MaxInt64 / int64(time.Millisecond)

// Pipeline is the part of domain.Pipeline exposed over the control service.
type Pipeline interface {
	Start() error
	Stop() int
	Running() []string
	ClearLog(ctx context.Context) error
	ReadLog(ctx context.Context, maxBytes int64) ([]byte, error)
	GetLast(kind domain.SensorKind) (domain.SensorReading, error)
	SetPeriod(kind domain.SensorKind, d time.Duration) error
	Period(kind domain.SensorKind) (time.Duration, error)
	Summary() string
	QueueDepth() int
	QueueCapacity() int
	FlushState() string
	Feed() *domain.LiveFeed
	Uptime() time.Duration
}

// ControlService serves the lifecycle controls and queries of a pipeline.
type ControlService struct {
	pipeline Pipeline
	logger   domain.Logger
}

// Start launches the workers and reports the resulting status.
func (s *ControlService) Start(_ context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	if err := s.pipeline.Start(); err != nil {
		return nil, toConnectError(err)
	}
	return s.statusResponse()
}

// Stop halts the workers and returns the number of discarded records.
func (s *ControlService) Stop(_ context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.Int64Value], error) {
	discarded := s.pipeline.Stop()
	return connect.NewResponse(wrapperspb.Int64(int64(discarded))), nil
}

// ClearLog deletes the durable log.
func (s *ControlService) ClearLog(ctx context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	if err := s.pipeline.ClearLog(ctx); err != nil {
		s.logger.Error("clear log: %s", err.Error())
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetLast returns the latest reading of the requested kind.
func (s *ControlService) GetLast(_ context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[structpb.Struct], error) {
	kind, err := domain.ParseSensorKind(req.Msg.GetValue())
	if err != nil {
		return nil, toConnectError(err)
	}
	r, err := s.pipeline.GetLast(kind)
	if err != nil {
		return nil, toConnectError(err)
	}

	values := make(map[string]float64, len(r.Values))
	for _, f := range r.Values {
		values[f.Name] = f.Value
	}
	msg, err := controlapiv1.Reading{
		Kind:        kind.String(),
		Valid:       r.Valid,
		TimestampMs: r.Timestamp.Milliseconds(),
		Values:      values,
	}.ToStruct()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// Status reports workers, queue and flush state and sampling periods.
func (s *ControlService) Status(_ context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	return s.statusResponse()
}

func (s *ControlService) statusResponse() (*connect.Response[structpb.Struct], error) {
	periods := make(map[string]int64)
	for _, k := range domain.Kinds() {
		if d, err := s.pipeline.Period(k); err == nil {
			periods[k.String()] = d.Milliseconds()
		}
	}
	msg, err := controlapiv1.Status{
		Running:       s.pipeline.Running(),
		QueueDepth:    s.pipeline.QueueDepth(),
		QueueCapacity: s.pipeline.QueueCapacity(),
		FlushState:    s.pipeline.FlushState(),
		UptimeMs:      s.pipeline.Uptime().Milliseconds(),
		PeriodsMs:     periods,
		LiveClients:   s.pipeline.Feed().Subscribers(),
	}.ToStruct()
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// SetPeriod changes the sampling period of one kind.
func (s *ControlService) SetPeriod(_ context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[emptypb.Empty], error) {
	pr, err := controlapiv1.PeriodRequestFromStruct(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	kind, err := domain.ParseSensorKind(pr.Kind)
	if err != nil {
		return nil, toConnectError(err)
	}
	if pr.PeriodMs > maxPeriodMs {
		return nil, toConnectError(fmt.Errorf("%w: period %dms is too long", domain.ErrValidation, pr.PeriodMs))
	}
	if err := s.pipeline.SetPeriod(kind, time.Duration(pr.PeriodMs)*time.Millisecond); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// ReadLog returns the beginning of the durable log, limited to the requested byte count.
func (s *ControlService) ReadLog(ctx context.Context, req *connect.Request[wrapperspb.Int64Value]) (*connect.Response[wrapperspb.BytesValue], error) {
	data, err := s.pipeline.ReadLog(ctx, req.Msg.GetValue())
	if err != nil {
		s.logger.Error("read log: %s", err.Error())
		return nil, toConnectError(err)
	}
	return connect.NewResponse(wrapperspb.Bytes(data)), nil
}

// Summary returns the one-line overview of all sensors.
func (s *ControlService) Summary(_ context.Context, _ *connect.Request[emptypb.Empty]) (*connect.Response[wrapperspb.StringValue], error) {
	return connect.NewResponse(wrapperspb.String(s.pipeline.Summary())), nil
}

// Live streams every new record line until the client goes away.
func (s *ControlService) Live(ctx context.Context, _ *connect.Request[emptypb.Empty], stream *connect.ServerStream[wrapperspb.StringValue]) error {
	records, cancel := s.pipeline.Feed().Subscribe(liveBuffer)
	defer cancel()
	s.logger.Info("live client attached")
	defer s.logger.Info("live client detached")

	for {
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-records:
			if !ok {
				return nil
			}
			if err := stream.Send(wrapperspb.String(rec.Line)); err != nil {
				return err
			}
		}
	}
}

// Register mounts every procedure on mux.
func (s *ControlService) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(controlapiv1.StartProcedure, connect.NewUnaryHandler(controlapiv1.StartProcedure, s.Start, opts...))
	mux.Handle(controlapiv1.StopProcedure, connect.NewUnaryHandler(controlapiv1.StopProcedure, s.Stop, opts...))
	mux.Handle(controlapiv1.ClearLogProcedure, connect.NewUnaryHandler(controlapiv1.ClearLogProcedure, s.ClearLog, opts...))
	mux.Handle(controlapiv1.GetLastProcedure, connect.NewUnaryHandler(controlapiv1.GetLastProcedure, s.GetLast, opts...))
	mux.Handle(controlapiv1.StatusProcedure, connect.NewUnaryHandler(controlapiv1.StatusProcedure, s.Status, opts...))
	mux.Handle(controlapiv1.SetPeriodProcedure, connect.NewUnaryHandler(controlapiv1.SetPeriodProcedure, s.SetPeriod, opts...))
	mux.Handle(controlapiv1.ReadLogProcedure, connect.NewUnaryHandler(controlapiv1.ReadLogProcedure, s.ReadLog, opts...))
	mux.Handle(controlapiv1.SummaryProcedure, connect.NewUnaryHandler(controlapiv1.SummaryProcedure, s.Summary, opts...))
	mux.Handle(controlapiv1.LiveProcedure, connect.NewServerStreamHandler(controlapiv1.LiveProcedure, s.Live, opts...))
}

// toConnectError maps domain errors onto connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownKind), errors.Is(err, domain.ErrValidation):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, domain.ErrStoreNotReady):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// NewControlService exposes pipeline.
func NewControlService(pipeline Pipeline, logger domain.Logger) *ControlService {
	return &ControlService{pipeline: pipeline, logger: logger}
}
