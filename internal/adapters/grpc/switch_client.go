package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// SwitchClient talks to a remote switch service
// This implements the ports.Switch interface
type SwitchClient struct {
	conn grpc.ClientConnInterface

	// closer is set when the client owns the connection
	closer func() error
}

// NewSwitchClient connects to the switch service at addr
func NewSwitchClient(addr string, opts ...grpc.DialOption) (*SwitchClient, error) {
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create switch client: %w", err)
	}
	return &SwitchClient{conn: conn, closer: conn.Close}, nil
}

// NewSwitchClientFromConn uses an existing connection, which the caller closes
func NewSwitchClientFromConn(conn grpc.ClientConnInterface) *SwitchClient {
	return &SwitchClient{conn: conn}
}

// TurnOn switches the lamp on
func (c *SwitchClient) TurnOn(ctx context.Context, lampID int64) error {
	err := c.conn.Invoke(ctx, turnOnMethod, wrapperspb.Int64(lampID), new(emptypb.Empty))
	return switchError(domain.OpTurnOn, lampID, err)
}

// TurnOff switches the lamp off
func (c *SwitchClient) TurnOff(ctx context.Context, lampID int64) error {
	err := c.conn.Invoke(ctx, turnOffMethod, wrapperspb.Int64(lampID), new(emptypb.Empty))
	return switchError(domain.OpTurnOff, lampID, err)
}

// SetBrightness sets the brightness percentage of the lamp
func (c *SwitchClient) SetBrightness(ctx context.Context, lampID int64, brightness int) error {
	req, err := structpb.NewStruct(map[string]any{
		fieldLampID:     lampID,
		fieldBrightness: brightness,
	})
	if err != nil {
		return switchError(domain.OpSetBrightness, lampID, err)
	}

	err = c.conn.Invoke(ctx, setBrightnessMethod, req, new(emptypb.Empty))
	return switchError(domain.OpSetBrightness, lampID, err)
}

// Close closes the connection if the client opened it
func (c *SwitchClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// switchError wraps a call failure into a domain.SwitchError
func switchError(op string, lampID int64, err error) error {
	if err == nil {
		return nil
	}
	if status.Code(err) == codes.Unavailable {
		err = fmt.Errorf("%w: %s", domain.ErrSwitchUnavailable, status.Convert(err).Message())
	}
	return &domain.SwitchError{Op: op, LampID: lampID, Err: err}
}
