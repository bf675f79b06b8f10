package mqtt

import (
	"context"
	"time"

	"github.com/hmctl/hmdispatch/infra/logger"
)

// Publisher publishes backend command payloads with bounded retries. One
// publisher is shared by all control units of a process.
type Publisher struct {
	cli        pahoClient
	qos        byte
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewPublisher connects to the broker and returns a command publisher.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	qos := byte(0)
	if q, ok := cfg.QoS["command"]; ok {
		qos = q
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 3
	}
	backoff := time.Duration(cfg.BackoffMS) * time.Millisecond
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	return &Publisher{
		cli:        c,
		qos:        qos,
		maxRetries: retries,
		backoff:    backoff,
		log:        logger.New("mqtt_publisher"),
	}, nil
}

// PublishCommand publishes one command payload, retrying with exponential
// backoff on transient failures.
func (p *Publisher) PublishCommand(ctx context.Context, topic string, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := p.cli.Publish(topic, p.qos, false, payload)
		token.Wait()
		if lastErr = token.Error(); lastErr == nil {
			return nil
		}
		p.log.Errorf("command publish attempt %d failed: %v", attempt+1, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.backoff * time.Duration(1<<attempt)):
		}
	}
	return lastErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
