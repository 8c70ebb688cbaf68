// Package mqtt drives lamps through an MQTT broker.
//
// Each command is published with QoS 1 to <prefix>/<lamp id>/set and counts
// as applied once the broker acknowledges it. No acknowledgement within the
// timeout is a switch fault.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// DefaultTopicPrefix is used when no prefix is configured
const DefaultTopicPrefix = "lamps"

// defaultWait bounds a publish when the context has no deadline
const defaultWait = 5 * time.Second

// publisher is the subset of paho.Client used by Switch
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
}

// Command is the JSON payload of a lamp command
type Command struct {
	State      string `json:"state,omitempty"` // "ON" or "OFF"
	Brightness int    `json:"brightness,omitempty"`
}

// Switch publishes lamp commands to an MQTT broker
// This implements the ports.Switch interface
type Switch struct {
	client publisher
	prefix string
}

// NewSwitch connects to the broker and returns a Switch
func NewSwitch(broker, clientID, prefix string) (*Switch, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return newSwitch(client, prefix), nil
}

func newSwitch(client publisher, prefix string) *Switch {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Switch{client: client, prefix: prefix}
}

// Topic returns the command topic of a lamp
func (s *Switch) Topic(lampID int64) string {
	return fmt.Sprintf("%s/%d/set", s.prefix, lampID)
}

// TurnOn publishes {"state":"ON"}
func (s *Switch) TurnOn(ctx context.Context, lampID int64) error {
	return s.publish(ctx, domain.OpTurnOn, lampID, Command{State: "ON"})
}

// TurnOff publishes {"state":"OFF"}
func (s *Switch) TurnOff(ctx context.Context, lampID int64) error {
	return s.publish(ctx, domain.OpTurnOff, lampID, Command{State: "OFF"})
}

// SetBrightness publishes {"brightness":N}
func (s *Switch) SetBrightness(ctx context.Context, lampID int64, brightness int) error {
	if err := domain.ValidateBrightness(brightness); err != nil {
		return &domain.SwitchError{Op: domain.OpSetBrightness, LampID: lampID, Err: err}
	}
	return s.publish(ctx, domain.OpSetBrightness, lampID, Command{Brightness: brightness})
}

// Close disconnects from the broker
func (s *Switch) Close() error {
	if c, ok := s.client.(paho.Client); ok {
		c.Disconnect(1000) // 1 second timeout
	}
	return nil
}

func (s *Switch) publish(ctx context.Context, op string, lampID int64, cmd Command) error {
	fail := func(err error) error {
		return &domain.SwitchError{Op: op, LampID: lampID, Err: err}
	}

	if !s.client.IsConnectionOpen() {
		return fail(domain.ErrSwitchUnavailable)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fail(fmt.Errorf("format payload: %w", err))
	}

	wait := defaultWait
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}

	// QoS 1 (at-least-once), not retained
	topic := s.Topic(lampID)
	token := s.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(wait) {
		return fail(fmt.Errorf("publish timeout"))
	}
	if err := token.Error(); err != nil {
		return fail(fmt.Errorf("publish: %w", err))
	}

	log.Info().
		Str("topic", topic).
		Str("op", op).
		Int64("lamp_id", lampID).
		Msg("published lamp command")

	return nil
}
