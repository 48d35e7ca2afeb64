package pgdb

import (
	"context"

	"github.com/DRSN-tech/match-service/pkg/e"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// CatalogRepo читает актуальный состав каталогов из таблиц основного бэкенда.
// Таблицы projects и products принадлежат ему; этот сервис их только читает.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// GetProjectIDs возвращает идентификаторы действующих проектов.
func (c *CatalogRepo) GetProjectIDs(ctx context.Context) ([]int64, error) {
	return c.queryIDs(ctx, `SELECT id FROM projects WHERE is_archived = false`)
}

// GetProductIDs возвращает идентификаторы действующих продуктов.
func (c *CatalogRepo) GetProductIDs(ctx context.Context) ([]int64, error) {
	return c.queryIDs(ctx, `SELECT id FROM products WHERE is_archived = false`)
}

func (c *CatalogRepo) queryIDs(ctx context.Context, query string) ([]int64, error) {
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return ids, nil
}
