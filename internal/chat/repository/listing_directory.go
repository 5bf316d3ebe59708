package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"old_vibes/internal/chat/domain"
	"old_vibes/pkg/database"
	"old_vibes/pkg/logger"
	listingpb "old_vibes/pkg/proto/listing"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListingDirectory resolves listings owned by the listing service
type ListingDirectory interface {
	// GetListing returns ErrNotFound when the listing does not resolve
	GetListing(ctx context.Context, listingID string) (*domain.ListingSummary, error)
}

type grpcListingDirectory struct {
	client  listingpb.ListingServiceClient
	timeout time.Duration
}

// NewGRPCListingDirectory ListingDirectory backed by listing.ListingService
func NewGRPCListingDirectory(conn grpc.ClientConnInterface, timeout time.Duration) ListingDirectory {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &grpcListingDirectory{
		client:  listingpb.NewListingServiceClient(conn),
		timeout: timeout,
	}
}

func (d *grpcListingDirectory) GetListing(ctx context.Context, listingID string) (*domain.ListingSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.client.GetListing(ctx, &listingpb.GetListingRequest{ID: listingID})
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &domain.ListingSummary{
		ID:       resp.ID,
		OwnerID:  resp.OwnerID,
		Title:    resp.Title,
		Price:    resp.Price,
		ImageURL: resp.ImageURL,
		Status:   domain.ListingStatus(resp.Status),
	}, nil
}

type cachedListingDirectory struct {
	inner ListingDirectory
	cache database.RedisRepository[domain.ListingSummary]
	ttl   time.Duration
}

// NewCachedListingDirectory read-through redis cache in front of inner; cache failures fall back to inner
func NewCachedListingDirectory(inner ListingDirectory, cache database.RedisRepository[domain.ListingSummary], ttl time.Duration) ListingDirectory {
	return &cachedListingDirectory{inner: inner, cache: cache, ttl: ttl}
}

func listingCacheKey(listingID string) string {
	return "chat:listing:" + listingID
}

func (d *cachedListingDirectory) GetListing(ctx context.Context, listingID string) (*domain.ListingSummary, error) {
	key := listingCacheKey(listingID)
	cached, err := d.cache.Get(ctx, key)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		logger.Log.Warn("listing cache read failed", zap.String("listing_id", listingID), zap.Error(err))
	}

	listing, err := d.inner.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Set(ctx, key, *listing, d.ttl); err != nil {
		logger.Log.Error("listing cache write failed", zap.String("listing_id", listingID), zap.Error(err))
	}
	return listing, nil
}

// StaticListingDirectory in-memory ListingDirectory
type StaticListingDirectory struct {
	mu       sync.RWMutex
	listings map[string]domain.ListingSummary
}

// NewStaticListingDirectory create a StaticListingDirectory
func NewStaticListingDirectory(listings ...domain.ListingSummary) *StaticListingDirectory {
	d := &StaticListingDirectory{listings: make(map[string]domain.ListingSummary)}
	for _, l := range listings {
		d.listings[l.ID] = l
	}
	return d
}

// Put add or replace a listing
func (d *StaticListingDirectory) Put(l domain.ListingSummary) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listings[l.ID] = l
}

// Remove drop a listing
func (d *StaticListingDirectory) Remove(listingID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listings, listingID)
}

// GetListing implements ListingDirectory
func (d *StaticListingDirectory) GetListing(_ context.Context, listingID string) (*domain.ListingSummary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	l, ok := d.listings[listingID]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}
