package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// fakeToken completes immediately unless hang is set
type fakeToken struct {
	err  error
	hang bool
}

func (t *fakeToken) Wait() bool {
	return !t.hang
}

func (t *fakeToken) WaitTimeout(time.Duration) bool {
	return !t.hang
}

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.hang {
		close(ch)
	}
	return ch
}

func (t *fakeToken) Error() error {
	return t.err
}

type published struct {
	topic   string
	qos     byte
	payload []byte
}

// fakeClient records publishes for test assertions
type fakeClient struct {
	mu           sync.Mutex
	messages     []published
	token        *fakeToken
	disconnected bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{token: &fakeToken{}}
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return c.token
}

func (c *fakeClient) IsConnectionOpen() bool {
	return !c.disconnected
}

func TestSwitch_PublishesCommands(t *testing.T) {
	client := newFakeClient()
	sw := newSwitch(client, "home/lamps")
	ctx := context.Background()

	if err := sw.SetBrightness(ctx, 4, 60); err != nil {
		t.Fatalf("SetBrightness failed: %v", err)
	}
	if err := sw.TurnOn(ctx, 4); err != nil {
		t.Fatalf("TurnOn failed: %v", err)
	}
	if err := sw.TurnOff(ctx, 4); err != nil {
		t.Fatalf("TurnOff failed: %v", err)
	}

	want := []Command{{Brightness: 60}, {State: "ON"}, {State: "OFF"}}
	if len(client.messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(client.messages))
	}
	for i, msg := range client.messages {
		if msg.topic != "home/lamps/4/set" {
			t.Errorf("message %d: unexpected topic %q", i, msg.topic)
		}
		if msg.qos != 1 {
			t.Errorf("message %d: expected QoS 1, got %d", i, msg.qos)
		}
		var got Command
		if err := json.Unmarshal(msg.payload, &got); err != nil {
			t.Fatalf("message %d: invalid JSON: %v", i, err)
		}
		if got != want[i] {
			t.Errorf("message %d: expected %+v, got %+v", i, want[i], got)
		}
	}
}

func TestSwitch_DefaultPrefix(t *testing.T) {
	sw := newSwitch(newFakeClient(), "")
	if got := sw.Topic(12); got != "lamps/12/set" {
		t.Errorf("expected lamps/12/set, got %q", got)
	}
}

func TestSwitch_Faults(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(c *fakeClient)
		wantErr error
	}{
		{
			name:  "publish timeout",
			setup: func(c *fakeClient) { c.token.hang = true },
		},
		{
			name:  "broker error",
			setup: func(c *fakeClient) { c.token.err = errors.New("not authorized") },
		},
		{
			name:    "disconnected",
			setup:   func(c *fakeClient) { c.disconnected = true },
			wantErr: domain.ErrSwitchUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newFakeClient()
			tt.setup(client)
			sw := newSwitch(client, "")

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			err := sw.TurnOn(ctx, 9)

			var swErr *domain.SwitchError
			if !errors.As(err, &swErr) {
				t.Fatalf("expected SwitchError, got %v", err)
			}
			if swErr.Op != domain.OpTurnOn || swErr.LampID != 9 {
				t.Errorf("unexpected switch error: %+v", swErr)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v in chain, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSwitch_RejectsInvalidBrightness(t *testing.T) {
	client := newFakeClient()
	sw := newSwitch(client, "")

	err := sw.SetBrightness(context.Background(), 1, 0)
	if !errors.Is(err, domain.ErrInvalidBrightness) {
		t.Errorf("expected ErrInvalidBrightness, got %v", err)
	}
	if len(client.messages) != 0 {
		t.Errorf("expected nothing published, got %d messages", len(client.messages))
	}
}
