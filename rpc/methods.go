package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spooky-finn/liquidity-bridge/domain"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func (s *server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.coordinator.Status())
}

func (s *server) GetBooks(ctx context.Context, in *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	depth := s.validationService.Depth(int(in.GetValue()))
	return toStruct(s.coordinator.Books(depth))
}

// GetSpreadHistory returns the newest in.Value records, or the whole buffer when it is 0.
func (s *server) GetSpreadHistory(ctx context.Context, in *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	return toStruct(map[string]any{"records": s.coordinator.SpreadHistory(int(in.GetValue()))})
}

func (s *server) GetSlippageHistory(ctx context.Context, in *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	return toStruct(map[string]any{"records": s.coordinator.SlippageHistory(int(in.GetValue()))})
}

func (s *server) Quote(ctx context.Context, in *wrapperspb.DoubleValue) (*structpb.Struct, error) {
	if err := s.validationService.ValidateAmount(in.GetValue()); err != nil {
		return nil, toStatusError(err)
	}

	quote, err := s.coordinator.Quote(in.GetValue())
	if err != nil {
		return nil, toStatusError(err)
	}
	return toStruct(quote)
}

func (s *server) SelectMarket(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if !s.validationService.IsSupportedMarket(in.GetValue()) {
		return nil, status.Errorf(codes.NotFound, "market %q is not supported", in.GetValue())
	}

	if err := s.coordinator.SelectMarket(in.GetValue()); err != nil {
		return nil, toStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *server) SetTrackedAmount(ctx context.Context, in *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
	if err := s.validationService.ValidateAmount(in.GetValue()); err != nil {
		return nil, toStatusError(err)
	}

	if err := s.coordinator.SetTrackedAmount(in.GetValue()); err != nil {
		return nil, toStatusError(err)
	}
	return &emptypb.Empty{}, nil
}

// toStruct converts a JSON-tagged value into a protobuf Struct, keeping the JSON field names.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %s", err)
	}

	out := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %s", err)
	}
	return out, nil
}

func toStatusError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownMarket):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return status.Error(codes.Internal, fmt.Sprintf("internal error: %s", err))
}
