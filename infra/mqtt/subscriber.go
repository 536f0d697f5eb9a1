package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/infra/logger"
)

// LocationHandler receives decoded vehicle position reports.
type LocationHandler interface {
	OnLocationUpdate(ctx context.Context, vehicleID string, p geo.Point, at time.Time) error
}

// Subscriber listens on <prefix>/+ and forwards position reports to a
// LocationHandler.
type Subscriber struct {
	cli     pahoClient
	cfg     Config
	handler LocationHandler
	logger  logger.Logger
}

// NewSubscriber connects to the broker and subscribes to the fleet location
// topic. Messages are handled until Disconnect is called.
func NewSubscriber(cfg Config, handler LocationHandler) (*Subscriber, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_subscriber")
	s := &Subscriber{cfg: cfg, handler: handler, logger: log}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		topic := cfg.TopicPrefix + "/+"
		if token := c.Subscribe(topic, cfg.QoS, s.onMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}

	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	s.cli = c
	return s, nil
}

func (s *Subscriber) onMessage(_ paho.Client, msg paho.Message) {
	u, p, at, err := DecodeLocation(msg.Payload())
	if err != nil {
		s.logger.Errorf("dropping message on %s: %v", msg.Topic(), err)
		return
	}
	if id := vehicleIDFromTopic(msg.Topic()); id != "" && id != "+" && id != u.VehicleID {
		s.logger.Warnf("topic %s does not match vehicle %s", msg.Topic(), u.VehicleID)
	}
	if err := s.handler.OnLocationUpdate(context.Background(), u.VehicleID, p, at); err != nil {
		s.logger.Errorf("location update for %s failed: %v", u.VehicleID, err)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (s *Subscriber) Disconnect() {
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}
