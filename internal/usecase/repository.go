package usecase

import (
	"context"

	"github.com/DRSN-tech/match-service/internal/domain"
)

type EmbeddingRepository interface {
	FetchAll(ctx context.Context) ([]domain.ImageEmbedding, error)
}

type CatalogRepository interface {
	GetProjectIDs(ctx context.Context) ([]int64, error)
	GetProductIDs(ctx context.Context) ([]int64, error)
}

type MatchRepository interface {
	GetAll(ctx context.Context) ([]domain.Match, error)
	GetForProject(ctx context.Context, projectID int64) ([]domain.Match, error)
	GetForProduct(ctx context.Context, productID int64) ([]domain.Match, error)
	Upsert(ctx context.Context, match *domain.Match) error
	Delete(ctx context.Context, projectID, productID int64) error
	// DeleteSuperseded удаляет строки проекта, проставленные другим run_id.
	DeleteSuperseded(ctx context.Context, projectID int64, runID string) (int64, error)
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.Run) error
	Finish(ctx context.Context, run *domain.Run) error
}

// LockRepository защищает пересчёты от гонок между собой.
// Полный пересчёт берёт эксклюзивную блокировку, точечное обновление проекта —
// разделяемую: обновления разных проектов совместимы между собой, но не с пересчётом.
type LockRepository interface {
	TryLockRebuild(ctx context.Context) (release func(), ok bool, err error)
	TryLockRefresh(ctx context.Context) (release func(), ok bool, err error)
}

type CacheRepository interface {
	GetProjectMatches(ctx context.Context, projectID int64) ([]domain.Match, bool, error)
	SetProjectMatches(ctx context.Context, projectID int64, matches []domain.Match) error
	DeleteProjects(ctx context.Context, ids []int64) error
}
