package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"ecoxchange/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	fail   bool
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return errors.New("broker unavailable")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaPublisherDeliversKeyedEvents(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zap.NewNop())
	p.Start()

	p.Publish(context.Background(), models.MarketEvent{
		Type:      models.EventPayoutCredited,
		SessionID: "s1",
		Amount:    4550,
		Balance:   104550,
		Timestamp: time.Unix(0, 0).UTC(),
	})
	require.NoError(t, p.Stop())

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "s1", string(w.msgs[0].Key))
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "payout_credited", got["type"])
	assert.Equal(t, 45.5, got["amount"])
	assert.True(t, w.closed)
}

func TestKafkaPublisherSurvivesWriteFailures(t *testing.T) {
	w := &fakeWriter{fail: true}
	p := newKafkaPublisher(w, zap.NewNop())
	p.Start()
	p.Publish(context.Background(), models.MarketEvent{Type: models.EventSignedIn, SessionID: "s1"})
	require.NoError(t, p.Stop())
	assert.Empty(t, w.msgs)
}

func TestKafkaPublisherDropsEventsAfterStop(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zap.NewNop())
	p.Start()
	require.NoError(t, p.Stop())

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), models.MarketEvent{Type: models.EventSignedIn, SessionID: "late"})
	})
	require.NoError(t, p.Stop())
	assert.Empty(t, w.msgs)
}

func TestKafkaPublisherConcurrentPublishAndStop(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zap.NewNop())
	p.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Publish(context.Background(), models.MarketEvent{Type: models.EventSignedIn, SessionID: "s1"})
			}
		}()
	}
	require.NoError(t, p.Stop())
	wg.Wait()
	assert.True(t, w.closed)
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic", zap.NewNop())
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "", zap.NewNop())
	assert.Error(t, err)
}
