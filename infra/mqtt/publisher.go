package mqtt

import (
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/infra/logger"
)

// Publisher sends vehicle position reports to the broker. It is used by the
// fleet simulator and by integration tooling.
type Publisher struct {
	cli        pahoClient
	cfg        Config
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

// NewPublisher connects to the MQTT broker.
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
	return &Publisher{
		cli:        c,
		cfg:        cfg,
		logger:     logger.New("mqtt_publisher"),
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}, nil
}

// PublishLocation publishes a position report on the vehicle topic, retrying
// with exponential backoff on transient failures.
func (p *Publisher) PublishLocation(vehicleID string, pt geo.Point, at time.Time) error {
	payload, err := EncodeLocation(vehicleID, pt, at)
	if err != nil {
		return err
	}
	topic := LocationTopic(p.cfg.TopicPrefix, vehicleID)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.cfg.QoS, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
