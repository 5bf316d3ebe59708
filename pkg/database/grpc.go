package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"old_vibes/pkg/logger"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// JSONCodecName content-subtype of the json codec
const JSONCodecName = "json"

// JSONCodec grpc codec exchanging plain json structs, used for peers that publish no protobuf stubs
type JSONCodec struct{}

// Marshal implements encoding.Codec
func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements encoding.Codec
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Name implements encoding.Codec
func (JSONCodec) Name() string {
	return JSONCodecName
}

var _ encoding.Codec = JSONCodec{}

// CreateGRPCClient create grpc client using the json codec.
// When wait > 0 it blocks until the connection is READY or wait elapses.
func CreateGRPCClient(grpcIP string, wait time.Duration) (*grpc.ClientConn, error) {
	client, err := grpc.NewClient(grpcIP,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(JSONCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client[%s]: %w", grpcIP, err)
	}

	if wait <= 0 {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	client.Connect()
	for {
		state := client.GetState()
		logger.Log.Debug("grpc connection state", zap.String("target", grpcIP), zap.String("state", state.String()))
		if state == connectivity.Ready {
			logger.Log.Info("grpc connection is READY", zap.String("target", grpcIP))
			return client, nil
		}
		if !client.WaitForStateChange(ctx, state) {
			client.Close()
			return nil, fmt.Errorf("connection[%s] did not become READY within %s", grpcIP, wait)
		}
	}
}

// NewGRPCServer create grpc server using the json codec
func NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ForceServerCodec(JSONCodec{}))
	return grpc.NewServer(opts...)
}
