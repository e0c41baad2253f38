package operator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig addresses a remote button box.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Topic    string
}

// MQTTSource subscribes to a topic on which a button box publishes command
// names, one per message, and feeds them to a Queue.
type MQTTSource struct {
	cfg     MQTTConfig
	queue   *Queue
	release func()
	logger  *slog.Logger
	client  mqtt.Client
}

// NewMQTTSource returns an unconnected source attached to q. The queue
// stays open until Stop is called, whatever other producers do.
func NewMQTTSource(cfg MQTTConfig, q *Queue, logger *slog.Logger) *MQTTSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTTSource{cfg: cfg, queue: q, release: q.Attach(), logger: logger}
}

// Start connects to the broker and subscribes to the command topic.
func (s *MQTTSource) Start() error {
	opts := mqtt.NewClientOptions().
		AddBroker(s.cfg.Broker).
		SetClientID(s.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("operator: mqtt connect %s: %w", s.cfg.Broker, token.Error())
	}
	s.logger.Info("connected to mqtt broker", "broker", s.cfg.Broker)

	token := s.client.Subscribe(s.cfg.Topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		s.handle(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		s.client.Disconnect(250)
		return fmt.Errorf("operator: mqtt subscribe %s: %w", s.cfg.Topic, err)
	}
	s.logger.Info("subscribed to operator commands", "topic", s.cfg.Topic)
	return nil
}

// Stop unsubscribes, disconnects and detaches from the queue.
func (s *MQTTSource) Stop() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Unsubscribe(s.cfg.Topic).Wait()
		s.client.Disconnect(250)
	}
	s.release()
}

func (s *MQTTSource) handle(payload []byte) {
	cmds, err := ParseLine(string(payload))
	if err != nil {
		s.logger.Warn("ignoring mqtt command", "topic", s.cfg.Topic, "error", err)
		return
	}
	for _, cmd := range cmds {
		switch err := s.queue.TryPush(cmd); {
		case errors.Is(err, ErrClosed):
			s.logger.Warn("command stream closed, command dropped", "command", cmd)
			return
		case err != nil:
			s.logger.Warn("operator queue full, command dropped", "command", cmd)
		}
	}
}
