package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-analytics/internal/models"
)

// QoS used for telemetry subscriptions.
const QoS byte = 1

// TelemetryUpdater is satisfied by db.VehicleStore.
type TelemetryUpdater interface {
	UpdateTelemetryByRegistration(ctx context.Context, registration string, telemetry models.Telemetry) error
}

// Handler applies telemetry messages to a store.
type Handler struct {
	Store   TelemetryUpdater
	Log     log.FieldLogger
	Timeout time.Duration
	Now     func() time.Time
}

// Handle parses and stores one message. Invalid payloads and store failures
// are returned; callers log and drop them.
func (h *Handler) Handle(ctx context.Context, topic string, body []byte) error {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	reading, err := Parse(topic, body, now())
	if err != nil {
		return err
	}
	if !BatteryInRange(reading.Telemetry.BatteryPercent) {
		h.logger().WithFields(log.Fields{
			"registration":   reading.Registration,
			"batteryPercent": *reading.Telemetry.BatteryPercent,
		}).Warn("Battery reading outside 0-100")
	}

	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}
	if err := h.Store.UpdateTelemetryByRegistration(ctx, reading.Registration, reading.Telemetry); err != nil {
		return fmt.Errorf("apply telemetry for %s: %w", reading.Registration, err)
	}
	h.logger().WithField("registration", reading.Registration).Debug("Applied telemetry")
	return nil
}

// MessageHandler adapts Handle to a paho callback bound to ctx.
func (h *Handler) MessageHandler(ctx context.Context) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		if err := h.Handle(ctx, msg.Topic(), msg.Payload()); err != nil {
			entry := h.logger().WithField("topic", msg.Topic()).WithError(err)
			if errors.Is(err, ErrInvalidPayload) {
				entry.Warn("Dropping telemetry message")
				return
			}
			entry.Error("Failed to apply telemetry")
		}
	}
}

func (h *Handler) logger() log.FieldLogger {
	if h.Log == nil {
		return log.StandardLogger()
	}
	return h.Log
}

// NewClient builds an auto-reconnecting paho client for broker.
func NewClient(broker, clientID string, logger log.FieldLogger) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.WithError(err).Warn("MQTT connection lost")
		})
	return mqtt.NewClient(opts)
}

// Subscriber feeds messages from Topic to Handler until its context ends.
type Subscriber struct {
	Client  mqtt.Client
	Topic   string
	Handler *Handler
	Log     log.FieldLogger
}

// Run connects, subscribes and blocks until ctx is done, then unsubscribes
// and disconnects.
func (s *Subscriber) Run(ctx context.Context) error {
	if token := s.Client.Connect(); !wait(ctx, token) {
		return fmt.Errorf("connect to mqtt broker: %w", tokenErr(ctx, token))
	}
	defer s.Client.Disconnect(250)

	token := s.Client.Subscribe(s.Topic, QoS, s.Handler.MessageHandler(ctx))
	if !wait(ctx, token) {
		return fmt.Errorf("subscribe %s: %w", s.Topic, tokenErr(ctx, token))
	}
	s.logger().WithField("topic", s.Topic).Info("Listening for telemetry")

	<-ctx.Done()
	s.Client.Unsubscribe(s.Topic).WaitTimeout(time.Second)
	s.logger().Info("Telemetry ingest stopped")
	return nil
}

func (s *Subscriber) logger() log.FieldLogger {
	if s.Log == nil {
		return log.StandardLogger()
	}
	return s.Log
}

// wait blocks until token completes without error or ctx ends.
func wait(ctx context.Context, token mqtt.Token) bool {
	select {
	case <-token.Done():
		return token.Error() == nil
	case <-ctx.Done():
		return false
	}
}

func tokenErr(ctx context.Context, token mqtt.Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return token.Error()
}
