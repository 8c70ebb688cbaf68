package grpc

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/ports"
)

// SwitchServiceName is the fully qualified gRPC service name
const SwitchServiceName = "lamps.switch.v1.Switch"

const (
	turnOnMethod        = "/" + SwitchServiceName + "/TurnOn"
	turnOffMethod       = "/" + SwitchServiceName + "/TurnOff"
	setBrightnessMethod = "/" + SwitchServiceName + "/SetBrightness"
)

// SetBrightness request fields
const (
	fieldLampID     = "lamp_id"
	fieldBrightness = "brightness"
)

// SwitchServiceServer is the server API of the switch service.
// Messages are protobuf well-known types, so no generated code is needed.
type SwitchServiceServer interface {
	TurnOn(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error)
	TurnOff(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error)
	SetBrightness(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterSwitchServiceServer registers srv on a gRPC server
func RegisterSwitchServiceServer(s grpc.ServiceRegistrar, srv SwitchServiceServer) {
	s.RegisterService(&switchServiceDesc, srv)
}

var switchServiceDesc = grpc.ServiceDesc{
	ServiceName: SwitchServiceName,
	HandlerType: (*SwitchServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "TurnOn", Handler: turnOnHandler},
		{MethodName: "TurnOff", Handler: turnOffHandler},
		{MethodName: "SetBrightness", Handler: setBrightnessHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lamps/switch/v1/switch.proto",
}

func turnOnHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwitchServiceServer).TurnOn(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: turnOnMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SwitchServiceServer).TurnOn(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func turnOffHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwitchServiceServer).TurnOff(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: turnOffMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SwitchServiceServer).TurnOff(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

func setBrightnessHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SwitchServiceServer).SetBrightness(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: setBrightnessMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SwitchServiceServer).SetBrightness(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// SwitchHandler exposes a ports.Switch as the gRPC switch service
type SwitchHandler struct {
	sw ports.Switch
}

// NewSwitchHandler creates a new gRPC handler
func NewSwitchHandler(sw ports.Switch) *SwitchHandler {
	return &SwitchHandler{sw: sw}
}

// TurnOn switches the lamp on
func (h *SwitchHandler) TurnOn(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	log.Info().Int64("lamp_id", req.GetValue()).Msg("TurnOn called")

	if err := h.sw.TurnOn(ctx, req.GetValue()); err != nil {
		return nil, switchStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// TurnOff switches the lamp off
func (h *SwitchHandler) TurnOff(ctx context.Context, req *wrapperspb.Int64Value) (*emptypb.Empty, error) {
	log.Info().Int64("lamp_id", req.GetValue()).Msg("TurnOff called")

	if err := h.sw.TurnOff(ctx, req.GetValue()); err != nil {
		return nil, switchStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// SetBrightness sets the brightness of the lamp
func (h *SwitchHandler) SetBrightness(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	lampID, err := intField(req, fieldLampID)
	if err != nil {
		return nil, err
	}
	brightness, err := intField(req, fieldBrightness)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateBrightness(int(brightness)); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	log.Info().
		Int64("lamp_id", lampID).
		Int64("brightness", brightness).
		Msg("SetBrightness called")

	if err := h.sw.SetBrightness(ctx, lampID, int(brightness)); err != nil {
		return nil, switchStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// switchStatus converts a switch fault to a gRPC status
func switchStatus(err error) error {
	log.Error().Err(err).Msg("switch command failed")

	if errors.Is(err, context.DeadlineExceeded) {
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	return status.Error(codes.Unavailable, err.Error())
}

// intField reads an integral number from a Struct field
func intField(s *structpb.Struct, name string) (int64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, status.Errorf(codes.InvalidArgument, "missing field %q", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) {
		return 0, status.Errorf(codes.InvalidArgument, "field %q must be an integer", name)
	}
	return int64(n.NumberValue), nil
}
