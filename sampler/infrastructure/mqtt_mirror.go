package infrastructure

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/samoilenko/sensorlog/sampler/domain"
)

const mqttPublishTimeout = 5 * time.Second

// mirrorPayload is the JSON document published for every flushed record.
type mirrorPayload struct {
	Kind        string             `json:"kind"`
	TimestampMs int64              `json:"timestamp_ms"`
	Values      map[string]float64 `json:"values"`
	Line        string             `json:"line"`
}

// MQTTMirror publishes flushed records to <prefix>/<kind>.
type MQTTMirror struct {
	client      mqtt.Client
	topicPrefix string
	qos         byte
	logger      domain.Logger
}

// Topic returns the topic records of kind are published to.
func (m *MQTTMirror) Topic(kind domain.SensorKind) string {
	return m.topicPrefix + "/" + kind.String()
}

// Append implements domain.Store.
func (m *MQTTMirror) Append(ctx context.Context, rec domain.LogRecord) error {
	values := make(map[string]float64, len(rec.Values))
	for _, f := range rec.Values {
		values[f.Name] = f.Value
	}
	payload, err := json.Marshal(mirrorPayload{
		Kind:        rec.Kind.String(),
		TimestampMs: rec.Timestamp.Milliseconds(),
		Values:      values,
		Line:        rec.Line,
	})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	token := m.client.Publish(m.Topic(rec.Kind), m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttPublishTimeout):
		return fmt.Errorf("publish to %s timed out", m.Topic(rec.Kind))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.Topic(rec.Kind), err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTTMirror) Close() {
	m.client.Disconnect(250)
}

// NewMQTTMirror publishes through an already connected client.
func NewMQTTMirror(client mqtt.Client, topicPrefix string, qos byte, logger domain.Logger) *MQTTMirror {
	return &MQTTMirror{client: client, topicPrefix: topicPrefix, qos: qos, logger: logger}
}

// MQTTClientID returns clientID, or a unique id when it is empty.
func MQTTClientID(clientID string) string {
	if clientID != "" {
		return clientID
	}
	return "sensorlog-" + uuid.NewString()
}

// ConnectMQTT connects to broker with automatic reconnection. An empty clientID is
// replaced by a unique one.
func ConnectMQTT(broker, clientID string, logger domain.Logger) (mqtt.Client, error) {
	clientID = MQTTClientID(clientID)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("connected to MQTT broker %s", broker)
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error("connection to MQTT broker lost: %s", err.Error())
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return client, fmt.Errorf("connecting to %s timed out, retrying in background", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", broker, err)
	}
	return client, nil
}
