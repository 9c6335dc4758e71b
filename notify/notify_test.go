package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleNotification() goIdentity.Notification {
	return goIdentity.Notification{
		Channel: goIdentity.ChannelEmail,
		Address: "alice@example.com",
		Code:    "123456",
		Purpose: goIdentity.PurposeVerification,
		UserID:  "u-1",
	}
}

func TestKafkaSender_PublishesKeyedEvent(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSender(w, "identity.codes", nil)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.SendCode(context.Background(), sampleNotification()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, []byte("u-1"), msg.Key)

	var event CodeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, EventTypeCodeIssued, event.EventType)
	assert.Equal(t, "email", event.Channel)
	assert.Equal(t, "verification", event.Purpose)
	assert.Equal(t, "123456", event.Code)
	assert.True(t, event.OccurredAt.Equal(fixed))

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, EventTypeCodeIssued, headers["event_type"])
	assert.Equal(t, "verification", headers["purpose"])
}

func TestKafkaSender_WrapsWriteError(t *testing.T) {
	cause := errors.New("broker down")
	s := newKafkaSender(&fakeWriter{err: cause}, "identity.codes", nil)

	err := s.SendCode(context.Background(), sampleNotification())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "identity.codes")
}

func TestKafkaSender_Close(t *testing.T) {
	w := &fakeWriter{}
	s := newKafkaSender(w, "identity.codes", nil)
	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaSender_RequiresBrokersAndTopic(t *testing.T) {
	_, err := NewKafkaSender(KafkaConfig{Topic: "t"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaSender(KafkaConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}

func TestLogSender_LogsNotification(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.SendCode(context.Background(), sampleNotification()))
	entries := logs.FilterMessage("code issued").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "alice@example.com", fields["address"])
	assert.Equal(t, "123456", fields["code"])
	assert.Equal(t, "notify", entries[0].LoggerName)
}
