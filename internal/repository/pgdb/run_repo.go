package pgdb

import (
	"context"

	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// RunRepo реализует журнал пересчётов поверх PostgreSQL.
// Записи append-only: единственное изменение — терминальный статус своего запуска.
type RunRepo struct {
	pool *pgxpool.Pool
	conv converter.RunConverter
}

func NewRunRepo(pool *pgxpool.Pool, conv converter.RunConverter) *RunRepo {
	return &RunRepo{
		pool: pool,
		conv: conv,
	}
}

// Create заводит запись запуска со статусом started.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	model := r.conv.ToModel(run)

	query := `
		INSERT INTO match_runs (run_id, status, started_at)
		VALUES ($1, $2, $3);
	`

	if _, err := r.pool.Exec(ctx, query, model.RunID, model.Status, model.StartedAt); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Finish один раз переводит запись запуска в терминальный статус с метриками.
func (r *RunRepo) Finish(ctx context.Context, run *domain.Run) error {
	model := r.conv.ToModel(run)

	query := `
		UPDATE match_runs
		SET status = $2,
			completed_at = $3,
			projects_count = $4,
			products_count = $5,
			matches_upserted = $6,
			matches_deleted_stale = $7,
			error_message = $8
		WHERE run_id = $1;
	`

	_, err := r.pool.Exec(ctx, query,
		model.RunID,
		model.Status,
		model.CompletedAt,
		model.ProjectsCount,
		model.ProductsCount,
		model.MatchesUpserted,
		model.MatchesDeletedStale,
		model.ErrorMessage,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
