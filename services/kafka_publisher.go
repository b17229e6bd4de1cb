package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"ecoxchange/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const kafkaQueueSize = 256

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams market events to a Kafka topic from a background
// goroutine. Events are keyed by session id so one session's events stay
// ordered within a partition.
type KafkaPublisher struct {
	writer kafkaMessageWriter
	logger *zap.Logger
	queue  chan kafka.Message

	mu      sync.RWMutex // guards stopped and sends on queue
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewKafkaPublisher builds a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, logger), nil
}

func newKafkaPublisher(writer kafkaMessageWriter, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With(zap.String("component", "kafka_publisher")),
		queue:  make(chan kafka.Message, kafkaQueueSize),
	}
}

// Start launches the delivery loop. It returns immediately.
func (p *KafkaPublisher) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.run()
	})
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()
	for msg := range p.queue {
		if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
			p.logger.Warn("event delivery failed", zap.ByteString("key", msg.Key), zap.Error(err))
		}
	}
}

// Publish enqueues the event. When the queue is full the event is dropped.
func (p *KafkaPublisher) Publish(ctx context.Context, event models.MarketEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("event encoding failed", zap.String("type", event.Type), zap.Error(err))
		return
	}
	msg := kafka.Message{Key: []byte(event.SessionID), Value: value}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.logger.Warn("publisher stopped, dropping event", zap.String("type", event.Type), zap.String("session", event.SessionID))
		return
	}
	select {
	case p.queue <- msg:
	default:
		p.logger.Warn("event queue full, dropping event", zap.String("type", event.Type), zap.String("session", event.SessionID))
	}
}

// Stop drains queued events and closes the writer. Events published after
// Stop are dropped.
func (p *KafkaPublisher) Stop() error {
	var err error
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.queue)
		p.mu.Unlock()

		p.wg.Wait()
		err = p.writer.Close()
	})
	return err
}
