// Package listing is the client/server contract of listing.ListingService.
// Messages are plain structs carried by the json codec of pkg/database.
package listing

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	// ServiceName full grpc service name
	ServiceName = "listing.ListingService"
	// GetListingMethod full method name
	GetListingMethod = "/listing.ListingService/GetListing"
)

// GetListingRequest request of GetListing
type GetListingRequest struct {
	ID string `json:"id"`
}

// Listing reply of GetListing
type Listing struct {
	ID       string  `json:"id"`
	OwnerID  string  `json:"owner_id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"image_url"`
	Status   string  `json:"status"`
}

// ListingServiceClient client api
type ListingServiceClient interface {
	GetListing(ctx context.Context, in *GetListingRequest, opts ...grpc.CallOption) (*Listing, error)
}

type listingServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewListingServiceClient create client on an existing connection
func NewListingServiceClient(cc grpc.ClientConnInterface) ListingServiceClient {
	return &listingServiceClient{cc}
}

func (c *listingServiceClient) GetListing(ctx context.Context, in *GetListingRequest, opts ...grpc.CallOption) (*Listing, error) {
	out := new(Listing)
	if err := c.cc.Invoke(ctx, GetListingMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListingServiceServer server api
type ListingServiceServer interface {
	GetListing(context.Context, *GetListingRequest) (*Listing, error)
}

// UnimplementedListingServiceServer returns Unimplemented for every method
type UnimplementedListingServiceServer struct{}

// GetListing not implemented
func (UnimplementedListingServiceServer) GetListing(context.Context, *GetListingRequest) (*Listing, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetListing not implemented")
}

// RegisterListingServiceServer register srv on s
func RegisterListingServiceServer(s grpc.ServiceRegistrar, srv ListingServiceServer) {
	s.RegisterService(&ListingServiceDesc, srv)
}

func getListingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetListingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ListingServiceServer).GetListing(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetListingMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ListingServiceServer).GetListing(ctx, req.(*GetListingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ListingServiceDesc grpc.ServiceDesc of listing.ListingService
var ListingServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ListingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetListing",
			Handler:    getListingHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "listing.proto",
}
