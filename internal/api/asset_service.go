package api

import (
	"context"

	"ferry/internal/assets"
)

// AssetReader abstracts the store interactions needed for API queries.
type AssetReader interface {
	List(ctx context.Context, states ...assets.MigrationState) ([]*assets.AssetRecord, error)
	GetByID(ctx context.Context, id string) (*assets.AssetRecord, error)
	Stats(ctx context.Context) (map[assets.MigrationState]int, error)
	Health(ctx context.Context) (assets.HealthSummary, error)
}

// AssetService exposes read-only asset operations returning API DTOs.
type AssetService struct {
	store AssetReader
}

// NewAssetService constructs an AssetService around the provided reader.
func NewAssetService(store AssetReader) *AssetService {
	if store == nil {
		return nil
	}
	return &AssetService{store: store}
}

// List returns assets filtered by migration state.
func (s *AssetService) List(ctx context.Context, states ...assets.MigrationState) ([]Asset, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	recs, err := s.store.List(ctx, states...)
	if err != nil {
		return nil, err
	}
	return FromAssetRecords(recs), nil
}

// Describe fetches a single asset, nil when missing.
func (s *AssetService) Describe(ctx context.Context, id string) (*Asset, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	rec, err := s.store.GetByID(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	dto := FromAssetRecord(rec)
	return &dto, nil
}

// Stats returns record counts keyed by migration state string.
func (s *AssetService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeStats(stats), nil
}

// Health returns the operator health aggregate.
func (s *AssetService) Health(ctx context.Context) (HealthResponse, error) {
	if s == nil || s.store == nil {
		return HealthResponse{}, nil
	}
	summary, err := s.store.Health(ctx)
	if err != nil {
		return HealthResponse{}, err
	}
	return FromHealthSummary(summary), nil
}
