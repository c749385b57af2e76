package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/taskboard/internal/config"
	"github.com/turtacn/taskboard/internal/testutil"
	pkgerrors "github.com/turtacn/taskboard/pkg/errors"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	written   []kafka.Message
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if m.writeFunc != nil {
		if err := m.writeFunc(ctx, msgs...); err != nil {
			return err
		}
	}
	m.written = append(m.written, msgs...)
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

type completedEvent struct {
	Type   string `json:"type"`
	TaskID string `json:"task_id"`
}

func (e completedEvent) EventType() string { return e.Type }

var fixedNow = time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

func newTestProducer(w WriterInterface) (*Producer, *testutil.MockLogger) {
	log := testutil.NewMockLogger()
	p := newProducer(w, ProducerConfig{Brokers: []string{"localhost:9092"}}, log)
	p.now = func() time.Time { return fixedNow }
	return p, log
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b:9092"}}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{}))
	assert.Error(t, ValidateProducerConfig(ProducerConfig{Brokers: []string{"b:9092"}, MaxAttempts: -1}))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.KafkaConfig{
		Brokers:      []string{"k1:9092", "k2:9092"},
		Topic:        "board.activity",
		ClientID:     "tb-api",
		RequiredAcks: -1,
	})
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, "board.activity", cfg.Topic)
	assert.Equal(t, "tb-api", cfg.ClientID)
	assert.Equal(t, -1, cfg.RequiredAcks)
}

func TestNewProducer_Defaults(t *testing.T) {
	p, err := NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}}, testutil.NewMockLogger())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, TopicTaskActivity, p.config.Topic)
	assert.Equal(t, 3, p.config.MaxAttempts)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, TopicTaskActivity, w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

func TestPublish_Success(t *testing.T) {
	w := &mockKafkaWriter{}
	p, _ := newTestProducer(w)

	err := p.Publish(context.Background(), "root-1", completedEvent{Type: "task.recurrence.completed", TaskID: "t-1"})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	msg := w.written[0]
	assert.Equal(t, "root-1", string(msg.Key))
	assert.Empty(t, msg.Topic, "topic is set on the writer")
	assert.Equal(t, fixedNow, msg.Time)
	assert.Contains(t, msg.Headers, kafka.Header{Key: HeaderEventType, Value: []byte("task.recurrence.completed")})

	env, err := MessageToEventEnvelope(msg)
	require.NoError(t, err)
	assert.Equal(t, "task.recurrence.completed", env.EventType)
	assert.Equal(t, SourceService, env.Source)
	assert.NotEmpty(t, env.EventID)

	var got completedEvent
	require.NoError(t, env.DecodePayload(&got))
	assert.Equal(t, "t-1", got.TaskID)

	assert.Equal(t, int64(1), p.Sent())
}

func TestPublish_WriteFailure(t *testing.T) {
	w := &mockKafkaWriter{writeFunc: func(context.Context, ...kafka.Message) error {
		return errors.New("leader not available")
	}}
	p, _ := newTestProducer(w)

	err := p.Publish(context.Background(), "root-1", completedEvent{Type: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodePublishFailed))
	assert.Equal(t, int64(1), p.Failed())
	assert.Equal(t, int64(0), p.Sent())
}

func TestPublish_Unserializable(t *testing.T) {
	p, _ := newTestProducer(&mockKafkaWriter{})

	err := p.Publish(context.Background(), "k", map[string]interface{}{"ch": make(chan int)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeSerialization))
}

func TestPublish_TooLarge(t *testing.T) {
	w := &mockKafkaWriter{}
	p, _ := newTestProducer(w)
	p.config.MaxMessageBytes = 64

	err := p.Publish(context.Background(), "k", completedEvent{Type: "x", TaskID: string(make([]byte, 128))})
	assert.True(t, pkgerrors.IsValidation(err))
	assert.Empty(t, w.written)
}

func TestPublish_AfterClose(t *testing.T) {
	closed := 0
	w := &mockKafkaWriter{closeFunc: func() error { closed++; return nil }}
	p, log := newTestProducer(w)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Equal(t, 1, closed)
	assert.True(t, log.HasMessage("info", "Kafka producer closed"))

	err := p.Publish(context.Background(), "k", completedEvent{Type: "x"})
	assert.Equal(t, ErrProducerClosed, err)
}

func TestNewEventEnvelope_UnknownType(t *testing.T) {
	env, err := NewEventEnvelope(map[string]string{"a": "b"}, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "unknown", env.EventType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "b", payload["a"])
}

//Personal.AI order the ending
