package integration

import (
	"context"

	"github.com/erp/syncbridge/internal/domain/integration"
)

// SyncResultQueryService reads recent sync outcomes
type SyncResultQueryService struct {
	repo integration.SyncOutcomeRepository
}

// NewSyncResultQueryService creates a new SyncResultQueryService
func NewSyncResultQueryService(repo integration.SyncOutcomeRepository) *SyncResultQueryService {
	return &SyncResultQueryService{repo: repo}
}

// ListRecent returns up to limit outcomes, most recent first
func (s *SyncResultQueryService) ListRecent(ctx context.Context, limit int) ([]SyncResultResponse, error) {
	outcomes, err := s.repo.ListRecent(ctx, integration.NormalizeListLimit(limit))
	if err != nil {
		return nil, err
	}
	return ToSyncResultResponses(outcomes), nil
}
