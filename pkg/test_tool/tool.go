package testtool

import (
	"context"
	"log"
	"net"
	"strings"
	"sync"

	"old_vibes/pkg/database"
	listingpb "old_vibes/pkg/proto/listing"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// SetupContainer 通用函式來啟動測試容器
func SetupContainer(ctx context.Context, req testcontainers.ContainerRequest) (testcontainers.Container, string, string, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", "", err
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, "", "", err
	}

	natPort, err := nat.NewPort("tcp", strings.TrimSuffix(req.ExposedPorts[0], "/tcp"))
	if err != nil {
		return nil, "", "", err
	}

	port, err := container.MappedPort(ctx, natPort)
	if err != nil {
		return nil, "", "", err
	}

	return container, host, port.Port(), nil
}

// StartMockListingGRPCServer 啟動測試用 listing grpc server
func StartMockListingGRPCServer(listings ...*listingpb.Listing) (*grpc.Server, *MockListingService, string) {
	listener, err := net.Listen("tcp", "127.0.0.1:0") // 隨機取得可用 Port
	if err != nil {
		log.Fatalf("❌ Failed to start gRPC listener: %v", err)
	}

	grpcServer := database.NewGRPCServer()
	mockListingService := NewMockListingService(listings...)
	listingpb.RegisterListingServiceServer(grpcServer, mockListingService)

	go func() {
		if err := grpcServer.Serve(listener); err != nil {
			log.Printf("❌ Mock gRPC Listing Service stopped: %v", err)
		}
	}()

	return grpcServer, mockListingService, listener.Addr().String()
}

// MockListingService in-memory listing grpc service
type MockListingService struct {
	listingpb.UnimplementedListingServiceServer

	mu       sync.Mutex
	listings map[string]*listingpb.Listing
	calls    int
}

// NewMockListingService create a MockListingService
func NewMockListingService(listings ...*listingpb.Listing) *MockListingService {
	m := &MockListingService{listings: make(map[string]*listingpb.Listing)}
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return m
}

// Put add or replace a listing
func (m *MockListingService) Put(l *listingpb.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
}

// Calls number of GetListing calls served
func (m *MockListingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// GetListing implements listingpb.ListingServiceServer
func (m *MockListingService) GetListing(_ context.Context, req *listingpb.GetListingRequest) (*listingpb.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	l, ok := m.listings[req.ID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "listing %s not found", req.ID)
	}
	return l, nil
}
