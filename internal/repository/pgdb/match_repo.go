package pgdb

import (
	"context"

	"github.com/DRSN-tech/match-service/internal/domain"
	"github.com/DRSN-tech/match-service/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/DRSN-tech/match-service/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const matchColumns = `
	project_id, product_id, score, tier, reasons,
	evidence_project_image_id, evidence_product_image_id, run_id, updated_at`

// querier покрывает общие методы пула и транзакции.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MatchRepo реализует хранилище матчей поверх PostgreSQL.
// Операции записи выполняются в транзакции из контекста, если она открыта,
// иначе напрямую через пул: полный пересчёт пишет построчно без транзакции,
// точечное обновление проекта — атомарно.
type MatchRepo struct {
	pool *pgxpool.Pool
	conv converter.MatchConverter
}

func NewMatchRepo(pool *pgxpool.Pool, conv converter.MatchConverter) *MatchRepo {
	return &MatchRepo{
		pool: pool,
		conv: conv,
	}
}

func (m *MatchRepo) db(ctx context.Context) querier {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}
	return m.pool
}

// GetAll возвращает все сохранённые матчи (для чистки устаревших строк).
func (m *MatchRepo) GetAll(ctx context.Context) ([]domain.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches`

	return m.queryMatches(ctx, query)
}

// GetForProject возвращает матчи проекта: score по убыванию, product_id по возрастанию.
func (m *MatchRepo) GetForProject(ctx context.Context, projectID int64) ([]domain.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE project_id = $1
		ORDER BY score DESC, product_id ASC`

	return m.queryMatches(ctx, query, projectID)
}

// GetForProduct возвращает матчи продукта: score по убыванию, project_id по возрастанию.
func (m *MatchRepo) GetForProduct(ctx context.Context, productID int64) ([]domain.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE product_id = $1
		ORDER BY score DESC, project_id ASC`

	return m.queryMatches(ctx, query, productID)
}

// Upsert идемпотентно создаёт или обновляет матч по ключу (project_id, product_id).
func (m *MatchRepo) Upsert(ctx context.Context, match *domain.Match) error {
	model, err := m.conv.ToModel(match)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO matches (` + matchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (project_id, product_id)
		DO UPDATE SET
			score = EXCLUDED.score,
			tier = EXCLUDED.tier,
			reasons = EXCLUDED.reasons,
			evidence_project_image_id = EXCLUDED.evidence_project_image_id,
			evidence_product_image_id = EXCLUDED.evidence_product_image_id,
			run_id = EXCLUDED.run_id,
			updated_at = EXCLUDED.updated_at;
	`

	_, err = m.db(ctx).Exec(ctx, query,
		model.ProjectID,
		model.ProductID,
		model.Score,
		model.Tier,
		model.Reasons,
		model.EvidenceProjectImageID,
		model.EvidenceProductImageID,
		model.RunID,
		model.UpdatedAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Delete удаляет один матч по ключу.
func (m *MatchRepo) Delete(ctx context.Context, projectID, productID int64) error {
	query := `DELETE FROM matches WHERE project_id = $1 AND product_id = $2`

	if _, err := m.db(ctx).Exec(ctx, query, projectID, productID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// DeleteSuperseded удаляет строки проекта, проставленные другим run_id:
// набор матчей проекта становится точной заменой текущего запуска.
func (m *MatchRepo) DeleteSuperseded(ctx context.Context, projectID int64, runID string) (int64, error) {
	query := `DELETE FROM matches WHERE project_id = $1 AND run_id <> $2`

	tag, err := m.db(ctx).Exec(ctx, query, projectID, runID)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected(), nil
}

func (m *MatchRepo) queryMatches(ctx context.Context, query string, args ...any) ([]domain.Match, error) {
	rows, err := m.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	models := make([]*converter.MatchModel, 0)
	for rows.Next() {
		var model converter.MatchModel
		if err := rows.Scan(
			&model.ProjectID, &model.ProductID, &model.Score, &model.Tier, &model.Reasons,
			&model.EvidenceProjectImageID, &model.EvidenceProductImageID, &model.RunID, &model.UpdatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		models = append(models, &model)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result, err := m.conv.ToArrEntity(models)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
