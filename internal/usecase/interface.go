package usecase

import (
	"context"

	"budget-ledger/internal/domain"
)

// SnapshotRepository defines the interface for fetching budget snapshots.
// The usecase layer depends on this interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go SnapshotRepository,SnapshotWriter
type SnapshotRepository interface {
	LoadSnapshot(ctx context.Context, source string) (*domain.Snapshot, error)
}

// SnapshotWriter persists a snapshot under a budget name.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, name string, snapshot *domain.Snapshot) error
}
