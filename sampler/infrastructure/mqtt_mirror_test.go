package infrastructure

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/samoilenko/sensorlog/sampler/domain"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error, completed bool) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

// fakeClient implements only Publish and Disconnect. A stuck client never completes
// its publish tokens.
type fakeClient struct {
	mqtt.Client
	mu           sync.Mutex
	err          error
	stuck        bool
	messages     []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, payload: payload.([]byte)})
	return newFakeToken(c.err, !c.stuck)
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
}

func (c *fakeClient) Messages() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published{}, c.messages...)
}

func waitUntil(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestMQTTMirror_Append(t *testing.T) {
	client := &fakeClient{}
	mirror := NewMQTTMirror(client, "sensorlog", 0, &mockLogger{})

	rec := domain.LogRecord{
		Kind:      domain.Pressure,
		Timestamp: 5 * time.Second,
		Values:    []domain.Field{{Name: "pressure_kpa", Value: 101.3}},
		Line:      "[5.000]:Pressure: 101.3 kPa",
	}
	if err := mirror.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
	messages := client.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.topic != "sensorlog/pressure" {
		t.Errorf("unexpected topic %s", msg.topic)
	}

	var payload mirrorPayload
	if err := json.Unmarshal(msg.payload, &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload.TimestampMs != 5000 || payload.Values["pressure_kpa"] != 101.3 || payload.Line != rec.Line {
		t.Errorf("unexpected payload %+v", payload)
	}

	mirror.Close()
	if !client.disconnected {
		t.Error("client was not disconnected")
	}
}

func TestMQTTMirror_PublishError(t *testing.T) {
	client := &fakeClient{err: errors.New("not connected")}
	mirror := NewMQTTMirror(client, "sensorlog", 1, &mockLogger{})
	if err := mirror.Append(context.Background(), domain.LogRecord{Kind: domain.Inertial}); err == nil {
		t.Error("expected publish error")
	}
}

func TestTeeStore_MirrorFailureIsLogged(t *testing.T) {
	path := tempLogPath(t)
	primary := NewFileStore(path, 4096, &mockLogger{})
	defer func() { _ = primary.Close() }()
	logger := &mockLogger{}
	mirror := NewMQTTMirror(&fakeClient{err: errors.New("offline")}, "sensorlog", 0, logger)

	tee := domain.NewTeeStore(primary, logger, mirror)
	defer tee.Close()
	if err := tee.Append(context.Background(), domain.LogRecord{Kind: domain.Pressure, Line: "x"}); err != nil {
		t.Fatalf("mirror failure leaked: %v", err)
	}
	if !waitUntil(time.Second, func() bool { return len(logger.GetMessages()) == 1 }) {
		t.Errorf("expected one logged mirror error, got %v", logger.GetMessages())
	}
	data, _ := tee.ReadLog(context.Background(), 0)
	if string(data) != "x\n" {
		t.Errorf("unexpected log %q", data)
	}
}

func TestTeeStore_StuckMirrorDoesNotBlockDrain(t *testing.T) {
	path := tempLogPath(t)
	primary := NewFileStore(path, 4096, &mockLogger{})
	defer func() { _ = primary.Close() }()
	client := &fakeClient{stuck: true}
	logger := &mockLogger{}
	tee := domain.NewTeeStore(primary, logger, NewMQTTMirror(client, "sensorlog", 1, logger))

	q := domain.NewRecordQueue(domain.DefaultQueueCapacity)
	for i := 0; i < domain.DefaultQueueCapacity; i++ {
		_ = q.Enqueue(context.Background(), domain.LogRecord{Kind: domain.Inertial, Line: "imu"})
	}
	fw := domain.NewFlushWorker(q, tee, domain.FlushInterval(1), &mockLogger{}, nil)

	started := time.Now()
	written := fw.Drain(context.Background())
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("drain waited on the mirror for %s", elapsed)
	}
	if written != domain.DefaultQueueCapacity {
		t.Errorf("expected %d records written, got %d", domain.DefaultQueueCapacity, written)
	}
	if !waitUntil(time.Second, func() bool { return len(client.Messages()) == 1 }) {
		t.Errorf("expected the mirror to be publishing, got %d messages", len(client.Messages()))
	}

	closed := make(chan struct{})
	go func() {
		tee.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("close blocked on the stuck mirror")
	}
	if len(logger.GetMessages()) != 0 {
		t.Errorf("abandoned publishes should not be logged, got %v", logger.GetMessages())
	}
}

func TestTeeStore_MirrorBacklogOverflow(t *testing.T) {
	primary := NewFileStore(tempLogPath(t), 4096, &mockLogger{})
	defer func() { _ = primary.Close() }()
	logger := &mockLogger{}
	client := &fakeClient{stuck: true}
	tee := domain.NewTeeStore(primary, logger, NewMQTTMirror(client, "sensorlog", 1, &mockLogger{}))
	defer tee.Close()

	// One record is held by the blocked publish, MirrorBacklog more fit the lane.
	if !waitUntil(time.Second, func() bool {
		_ = tee.Append(context.Background(), domain.LogRecord{Kind: domain.Pressure, Line: "p"})
		return len(client.Messages()) == 1
	}) {
		t.Fatal("mirror never started publishing")
	}
	for i := 0; i < domain.MirrorBacklog+1; i++ {
		if err := tee.Append(context.Background(), domain.LogRecord{Kind: domain.Pressure, Line: "p"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if len(logger.GetMessages()) == 0 {
		t.Error("expected dropped mirror records to be logged")
	}
}

func TestMQTTClientID(t *testing.T) {
	if got := MQTTClientID("fixed"); got != "fixed" {
		t.Errorf("explicit id replaced: %s", got)
	}
	a, b := MQTTClientID(""), MQTTClientID("")
	if a == b || len(a) <= len("sensorlog-") {
		t.Errorf("expected distinct generated ids, got %s and %s", a, b)
	}
}
